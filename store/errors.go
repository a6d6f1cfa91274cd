package store

import (
	"errors"
	"fmt"
)

// Sentinel errors for store operations.
var (
	// ErrInvalidTable indicates a Table without a name, columns or a primary
	// key listed among its columns.
	ErrInvalidTable = errors.New("quarry: invalid table")

	// ErrNoPrimaryKey indicates no field of the record maps to the primary key.
	ErrNoPrimaryKey = errors.New("quarry: no primary key field")

	// ErrAmbiguousPrimaryKey indicates more than one field is tagged pk.
	ErrAmbiguousPrimaryKey = errors.New("quarry: ambiguous primary key")

	// ErrInvalidCriteria indicates a search criterion names an unknown column
	// or operator.
	ErrInvalidCriteria = errors.New("quarry: invalid search criteria")

	// ErrUnknownColumn indicates a patch names a column the table lacks.
	ErrUnknownColumn = errors.New("quarry: unknown column")

	// ErrMissingKey indicates an insert without a key into a table whose
	// keys are caller provided.
	ErrMissingKey = errors.New("quarry: primary key value required")

	// ErrDuplicateKey indicates an insert collided with an existing key.
	ErrDuplicateKey = errors.New("quarry: duplicate key")

	// ErrSessionClosed indicates use of a session or cursor after its unit
	// of work ended.
	ErrSessionClosed = errors.New("quarry: session closed")

	// ErrScopeActive indicates Begin was called while a scope was open.
	ErrScopeActive = errors.New("quarry: unit of work already active")

	// ErrNoScope indicates End was called without an open scope.
	ErrNoScope = errors.New("quarry: no active unit of work")
)

// StoreError wraps a backend failure with the operation and table it
// happened on.
type StoreError struct {
	Op    string
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("quarry: %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func wrapStore(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Table: table, Err: err}
}
