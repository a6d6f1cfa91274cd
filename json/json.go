// Package json provides a JSON codec implementation.
package json

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/zoobzio/quarry"
)

// jsonCodec implements quarry.Codec for JSON.
type jsonCodec struct{}

// New returns a JSON codec. Numbers unmarshaled into an untyped document
// are kept as json.Number so integers and decimals are not rounded.
func New() quarry.Codec {
	return &jsonCodec{}
}

// ContentType returns the MIME type for JSON.
func (c *jsonCodec) ContentType() string {
	return "application/json"
}

// Marshal encodes v as JSON.
func (c *jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes JSON data into v.
func (c *jsonCodec) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
