package quarry

// Override interfaces let a record type bypass reflection-driven encode and
// decode. They are checked at every record level, including nested records,
// so a hand-written or generated implementation can replace one type's
// mapping without affecting its neighbors.

// DocumentMarshaler produces the document form of a record.
type DocumentMarshaler interface {
	MarshalDocument() (map[string]any, error)
}

// DocumentUnmarshaler populates a record from its document form.
// It is called on a zero value of the type.
type DocumentUnmarshaler interface {
	UnmarshalDocument(doc map[string]any) error
}
