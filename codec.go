package quarry

// Codec converts documents to and from bytes.
//
// Unmarshal into a *any must yield a document: map[string]any for objects
// and []any for arrays, so the result can be passed straight to Decode.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/json").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}
