// Package memory provides an in-process store backend. Each session works
// on a private snapshot of the committed tables; Commit publishes the
// snapshot and Rollback discards it. Concurrent commits are last writer
// wins. Rows are deep copied on the way in and out, so callers never share
// memory with stored data.
package memory

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/zoobzio/quarry/store"
)

// ErrClosed indicates use of a session after Close.
var ErrClosed = errors.New("quarry: memory session closed")

type table struct {
	rows []store.Row
	seq  int64
}

func (t *table) clone() *table {
	rows := make([]store.Row, len(t.rows))
	for i, r := range t.rows {
		rows[i] = r.Clone()
	}
	return &table{rows: rows, seq: t.seq}
}

// Store holds committed tables.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
}

// New creates an empty Store.
func New() *Store {
	return &Store{tables: make(map[string]*table)}
}

// Session opens a session on a snapshot of the committed tables. It
// satisfies store.SessionFactory.
func (s *Store) Session(_ context.Context) (store.Session, error) {
	return &Session{store: s, tables: s.snapshot()}, nil
}

// Rows returns a copy of the committed rows of a table in insertion order.
func (s *Store) Rows(name string) []store.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return nil
	}
	return t.clone().rows
}

func (s *Store) snapshot() map[string]*table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*table, len(s.tables))
	for name, t := range s.tables {
		out[name] = t.clone()
	}
	return out
}

func (s *Store) publish(tables map[string]*table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[string]*table, len(tables))
	for name, t := range tables {
		s.tables[name] = t.clone()
	}
}

// Session is a store.Session over a private snapshot.
type Session struct {
	store  *Store
	tables map[string]*table
	closed bool
}

func (s *Session) table(name string) *table {
	t, ok := s.tables[name]
	if !ok {
		t = &table{}
		s.tables[name] = t
	}
	return t
}

// Insert implements store.Session.
func (s *Session) Insert(_ context.Context, tbl store.Table, row store.Row) (any, error) {
	if s.closed {
		return nil, ErrClosed
	}
	t := s.table(tbl.Name)

	picked := make(store.Row, len(tbl.Columns))
	for _, c := range tbl.Columns {
		picked[c] = row[c]
	}
	stored := picked.Clone()

	key := deref(stored[tbl.PrimaryKey])
	if key == nil {
		switch tbl.Keys {
		case store.KeySequence:
			t.seq++
			key = t.seq
		case store.KeyUUID:
			key = uuid.NewString()
		default:
			return nil, fmt.Errorf("%w: %s", store.ErrMissingKey, tbl.Name)
		}
	}
	for _, r := range t.rows {
		if equal(r[tbl.PrimaryKey], key) {
			return nil, fmt.Errorf("%w: %v in %s", store.ErrDuplicateKey, key, tbl.Name)
		}
	}
	if n, ok := asInt(key); ok && n > t.seq {
		t.seq = n
	}

	stored[tbl.PrimaryKey] = key
	t.rows = append(t.rows, stored)
	return key, nil
}

// Query implements store.Session. The cursor reads a copy of the matching
// rows taken when Query is called.
func (s *Session) Query(_ context.Context, tbl store.Table, filter store.Filter) (store.Cursor, error) {
	if s.closed {
		return nil, ErrClosed
	}
	var rows []store.Row
	for _, r := range s.table(tbl.Name).rows {
		if match(r, filter) {
			rows = append(rows, r.Clone())
		}
	}
	return store.NewSliceCursor(rows), nil
}

// Update implements store.Session.
func (s *Session) Update(_ context.Context, tbl store.Table, filter store.Filter, patch store.Row) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	t := s.table(tbl.Name)
	var n int64
	for _, r := range t.rows {
		if !match(r, filter) {
			continue
		}
		for c, v := range patch.Clone() {
			r[c] = v
		}
		n++
	}
	return n, nil
}

// Delete implements store.Session.
func (s *Session) Delete(_ context.Context, tbl store.Table, filter store.Filter) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	t := s.table(tbl.Name)
	kept := t.rows[:0]
	var n int64
	for _, r := range t.rows {
		if match(r, filter) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	clear(t.rows[len(kept):])
	t.rows = kept
	return n, nil
}

// Commit publishes the session's tables.
func (s *Session) Commit(_ context.Context) error {
	if s.closed {
		return ErrClosed
	}
	s.store.publish(s.tables)
	return nil
}

// Rollback discards uncommitted changes.
func (s *Session) Rollback(_ context.Context) error {
	if s.closed {
		return ErrClosed
	}
	s.tables = s.store.snapshot()
	return nil
}

// Close ends the session. It is safe to call more than once.
func (s *Session) Close() error {
	s.closed = true
	s.tables = nil
	return nil
}

func asInt(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	}
	return 0, false
}
