package store

import "context"

// Session is one transactional conversation with a backend. Writes are
// visible to the session immediately and to others after Commit.
type Session interface {
	// Insert writes row and returns its primary key, assigning one per the
	// table's KeyStrategy when the row's key is nil or absent.
	Insert(ctx context.Context, table Table, row Row) (key any, err error)
	// Query returns a cursor over the rows matching filter.
	Query(ctx context.Context, table Table, filter Filter) (Cursor, error)
	// Update sets the columns of patch on every matching row.
	Update(ctx context.Context, table Table, filter Filter, patch Row) (int64, error)
	// Delete removes every matching row.
	Delete(ctx context.Context, table Table, filter Filter) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close() error
}

// Cursor iterates query results once.
type Cursor interface {
	Next() bool
	Row() Row
	Err() error
	Close() error
}

// SessionFactory opens a new session.
type SessionFactory func(ctx context.Context) (Session, error)

// SliceCursor is a Cursor over rows already in memory.
type SliceCursor struct {
	rows []Row
	pos  int
	cur  Row
}

// NewSliceCursor returns a cursor yielding rows in order.
func NewSliceCursor(rows []Row) *SliceCursor {
	return &SliceCursor{rows: rows}
}

func (c *SliceCursor) Next() bool {
	if c.pos >= len(c.rows) {
		c.cur = nil
		return false
	}
	c.cur = c.rows[c.pos]
	c.pos++
	return true
}

func (c *SliceCursor) Row() Row     { return c.cur }
func (c *SliceCursor) Err() error   { return nil }
func (c *SliceCursor) Close() error { c.pos = len(c.rows); return nil }
