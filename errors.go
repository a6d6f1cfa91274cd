package quarry

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrNoFields indicates a record type declares no mappable fields.
	ErrNoFields = errors.New("record type has no fields")

	// ErrDuplicateName indicates two fields share an external name.
	ErrDuplicateName = errors.New("duplicate external name")

	// ErrCyclicType indicates a record type nests itself, directly or through
	// other record types.
	ErrCyclicType = errors.New("cyclic record type")

	// ErrUnsupportedType indicates a field type has no type shape.
	ErrUnsupportedType = errors.New("unsupported field type")

	// ErrUnknownField indicates an option referenced a field the type does not declare.
	ErrUnknownField = errors.New("unknown field")

	// ErrAlreadyRegistered indicates Register was called twice for one type.
	ErrAlreadyRegistered = errors.New("type already registered")

	// ErrNotRecord indicates a value is not a struct or pointer to struct.
	ErrNotRecord = errors.New("not a record type")

	// ErrMissingRequiredField indicates a non-optional field decoded from null.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrTypeMismatch indicates a document value cannot become the field's type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrMissingEncryptor indicates a required encryptor was not registered.
	ErrMissingEncryptor = errors.New("missing encryptor")

	// ErrMissingHasher indicates a required hasher was not registered.
	ErrMissingHasher = errors.New("missing hasher")

	// ErrMissingMasker indicates a required masker was not registered.
	ErrMissingMasker = errors.New("missing masker")

	// ErrInvalidTag indicates a struct tag has an invalid format or value.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrUnmarshal indicates the codec failed to unmarshal input data.
	ErrUnmarshal = errors.New("unmarshal failed")

	// ErrMarshal indicates the codec failed to marshal output data.
	ErrMarshal = errors.New("marshal failed")

	// ErrEncrypt indicates encryption of a field failed.
	ErrEncrypt = errors.New("encrypt failed")

	// ErrDecrypt indicates decryption of a field failed.
	ErrDecrypt = errors.New("decrypt failed")

	// ErrHash indicates hashing of a field failed.
	ErrHash = errors.New("hash failed")
)

// ConfigError represents a declaration problem found while describing a
// record type or validating its transforms.
type ConfigError struct {
	Err       error  // Underlying sentinel error (ErrNoFields, ErrMissingEncryptor, ...)
	Type      string // Record type name
	Field     string // Field name that triggered the error
	Algorithm string // Algorithm or capability that was missing/invalid
}

func (e *ConfigError) Error() string {
	msg := e.Err.Error()
	if e.Algorithm != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Algorithm)
	}
	switch {
	case e.Type != "" && e.Field != "":
		return fmt.Sprintf("%s (%s.%s)", msg, e.Type, e.Field)
	case e.Type != "":
		return fmt.Sprintf("%s (%s)", msg, e.Type)
	case e.Field != "":
		return fmt.Sprintf("%s (field %s)", msg, e.Field)
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DecodeKind classifies a decode failure.
type DecodeKind int

const (
	// MissingRequiredField means null or absent input for a non-optional field.
	MissingRequiredField DecodeKind = iota + 1
	// TypeMismatch means the input value cannot be converted to the field type.
	TypeMismatch
)

func (k DecodeKind) String() string {
	switch k {
	case MissingRequiredField:
		return "missing required field"
	case TypeMismatch:
		return "type mismatch"
	}
	return "unknown"
}

// DecodeError reports where and why a document failed to decode.
type DecodeError struct {
	Kind  DecodeKind
	Path  string // dotted path to the failing field, e.g. lines[2].amount
	Value any    // offending input value, nil for missing fields
	Cause error  // parser or conversion error, if any
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decode %s: %s: %v", e.Path, e.Kind, e.Cause)
	}
	if e.Kind == TypeMismatch {
		return fmt.Sprintf("decode %s: %s (got %T)", e.Path, e.Kind, e.Value)
	}
	return fmt.Sprintf("decode %s: %s", e.Path, e.Kind)
}

// Unwrap exposes the kind's sentinel so errors.Is matches
// ErrMissingRequiredField or ErrTypeMismatch, and the cause alongside it.
func (e *DecodeError) Unwrap() []error {
	var sentinel error = ErrTypeMismatch
	if e.Kind == MissingRequiredField {
		sentinel = ErrMissingRequiredField
	}
	if e.Cause != nil {
		return []error{sentinel, e.Cause}
	}
	return []error{sentinel}
}

// TransformError represents an error during field transformation.
type TransformError struct {
	Err       error  // Underlying sentinel error (ErrEncrypt, ErrDecrypt, ErrHash)
	Field     string // Field name that failed
	Operation string // Operation that failed (encrypt, decrypt, hash)
	Cause     error  // Original error from the underlying operation
}

func (e *TransformError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s field %s: %v", e.Operation, e.Field, e.Cause)
	}
	return fmt.Sprintf("%s field %s", e.Operation, e.Field)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// CodecError represents a marshal/unmarshal error.
type CodecError struct {
	Err         error  // Underlying sentinel error (ErrMarshal, ErrUnmarshal)
	ContentType string // Codec content type
	Cause       error  // Original error from the codec
}

func (e *CodecError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %v", e.Err.Error(), e.ContentType, e.Cause)
	}
	return e.Err.Error()
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

func newConfigError(sentinel error, typeName, field, algorithm string) error {
	return &ConfigError{
		Err:       sentinel,
		Type:      typeName,
		Field:     field,
		Algorithm: algorithm,
	}
}

func newTransformError(sentinel error, operation, field string, cause error) error {
	return &TransformError{
		Err:       sentinel,
		Field:     field,
		Operation: operation,
		Cause:     cause,
	}
}

func newCodecError(sentinel error, contentType string, cause error) error {
	return &CodecError{
		Err:         sentinel,
		ContentType: contentType,
		Cause:       cause,
	}
}
