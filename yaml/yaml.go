// Package yaml provides a YAML codec implementation.
package yaml

import (
	"fmt"

	"github.com/zoobzio/quarry"
	"gopkg.in/yaml.v3"
)

// yamlCodec implements quarry.Codec for YAML.
type yamlCodec struct{}

// New returns a YAML codec.
func New() quarry.Codec {
	return &yamlCodec{}
}

// ContentType returns the MIME type for YAML.
func (c *yamlCodec) ContentType() string {
	return "application/yaml"
}

// Marshal encodes v as YAML.
func (c *yamlCodec) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

// Unmarshal decodes YAML data into v. Decoding into a *any yields a plain
// document: mappings with non-string keys become map[string]any with each
// key formatted as text.
func (c *yamlCodec) Unmarshal(data []byte, v any) error {
	target, ok := v.(*any)
	if !ok {
		return yaml.Unmarshal(data, v)
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	*target = normalize(raw)
	return nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	}
	return v
}
