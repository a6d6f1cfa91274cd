// Package cbor provides a CBOR codec implementation.
package cbor

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/zoobzio/quarry"
)

// cborCodec implements quarry.Codec for CBOR.
type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// New returns a CBOR codec. Untyped maps decode as map[string]any.
func New() quarry.Codec {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return &cborCodec{enc: enc, dec: dec}
}

// ContentType returns the MIME type for CBOR.
func (c *cborCodec) ContentType() string {
	return "application/cbor"
}

// Marshal encodes v as CBOR using deterministic core encoding.
func (c *cborCodec) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func (c *cborCodec) Unmarshal(data []byte, v any) error {
	return c.dec.Unmarshal(data, v)
}
