// Package bson provides a BSON codec implementation.
package bson

import (
	"github.com/zoobzio/quarry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// bsonCodec implements quarry.Codec for BSON.
type bsonCodec struct{}

// New returns a BSON codec. BSON payloads are always documents, so only
// records (not null or bare arrays) can be sent.
func New() quarry.Codec {
	return &bsonCodec{}
}

// ContentType returns the MIME type for BSON.
func (c *bsonCodec) ContentType() string {
	return "application/bson"
}

// Marshal encodes v as BSON.
func (c *bsonCodec) Marshal(v any) ([]byte, error) {
	return bson.Marshal(v)
}

// Unmarshal decodes BSON data into v. Decoding into a *any yields a plain
// map[string]any document with []any arrays.
func (c *bsonCodec) Unmarshal(data []byte, v any) error {
	target, ok := v.(*any)
	if !ok {
		return bson.Unmarshal(data, v)
	}
	var m bson.M
	if err := bson.Unmarshal(data, &m); err != nil {
		return err
	}
	*target = normalize(m)
	return nil
}

// normalize replaces driver container types with their plain equivalents.
func normalize(v any) any {
	switch t := v.(type) {
	case primitive.M:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case primitive.A:
		return normalizeSlice(t)
	case []any:
		return normalizeSlice(t)
	case primitive.DateTime:
		return t.Time().UTC()
	}
	return v
}

func normalizeMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, e := range in {
		out[k] = normalize(e)
	}
	return out
}

func normalizeSlice(in []any) []any {
	out := make([]any, len(in))
	for i, e := range in {
		out[i] = normalize(e)
	}
	return out
}
