// Package sqlstore is a store backend over database/sql. Each session runs
// in a transaction begun on first use; Commit and Rollback end it and the
// next operation begins another.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/zoobzio/quarry/store"
)

// DB is a store over a *sql.DB.
type DB struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// Open opens a database from cfg. A nil logger uses slog.Default().
func Open(cfg Config, logger *slog.Logger) (*DB, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("quarry: sqlstore open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.Dialect.Name == SQLite.Name && strings.Contains(cfg.DSN, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return New(db, cfg.Dialect, logger), nil
}

// New wraps an open *sql.DB. A nil logger uses slog.Default().
func New(db *sql.DB, dialect Dialect, logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.Default()
	}
	return &DB{db: db, dialect: dialect, logger: logger}
}

// DB returns the underlying *sql.DB.
func (d *DB) DB() *sql.DB {
	return d.db
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Session opens a session. It satisfies store.SessionFactory.
func (d *DB) Session(_ context.Context) (store.Session, error) {
	return &Session{db: d}, nil
}

// Session is a store.Session over one transaction at a time.
type Session struct {
	db     *DB
	tx     *sql.Tx
	closed bool
}

func (s *Session) begin(ctx context.Context) (*sql.Tx, error) {
	if s.closed {
		return nil, store.ErrSessionClosed
	}
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("quarry: sqlstore begin: %w", err)
	}
	s.tx = tx
	return tx, nil
}

func (s *Session) log(ctx context.Context, query string, args []any) {
	s.db.logger.DebugContext(ctx, "sqlstore statement", "sql", query, "args", len(args))
}

// Insert implements store.Session.
func (s *Session) Insert(ctx context.Context, t store.Table, row store.Row) (any, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}

	values := make(store.Row, len(t.Columns))
	for _, c := range t.Columns {
		values[c] = row[c]
	}
	cols := slices.Clone(t.Columns)
	if values[t.PrimaryKey] == nil {
		switch t.Keys {
		case store.KeySequence:
			cols = slices.DeleteFunc(cols, func(c string) bool { return c == t.PrimaryKey })
		case store.KeyUUID:
			values[t.PrimaryKey] = uuid.NewString()
		default:
			return nil, fmt.Errorf("%w: %s", store.ErrMissingKey, t.Name)
		}
	}

	query, args := insertSQL(s.db.dialect, t, cols, values)
	s.log(ctx, query, args)

	var key any
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&key); err != nil {
		return nil, translate(err)
	}
	if b, ok := key.([]byte); ok {
		key = string(b)
	}
	return key, nil
}

// Query implements store.Session.
func (s *Session) Query(ctx context.Context, t store.Table, f store.Filter) (store.Cursor, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	query, args := selectSQL(s.db.dialect, t, f)
	s.log(ctx, query, args)

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	return NewCursor(rows, t.Columns), nil
}

// Update implements store.Session. An empty patch changes nothing and
// reports how many rows match.
func (s *Session) Update(ctx context.Context, t store.Table, f store.Filter, patch store.Row) (int64, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}

	if len(patch) == 0 {
		query, args := countSQL(s.db.dialect, t, f)
		s.log(ctx, query, args)
		var n int64
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
			return 0, translate(err)
		}
		return n, nil
	}

	cols := make([]string, 0, len(patch))
	for c := range patch {
		cols = append(cols, c)
	}
	slices.Sort(cols)

	query, args := updateSQL(s.db.dialect, t, f, cols, patch)
	s.log(ctx, query, args)
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}

// Delete implements store.Session.
func (s *Session) Delete(ctx context.Context, t store.Table, f store.Filter) (int64, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	query, args := deleteSQL(s.db.dialect, t, f)
	s.log(ctx, query, args)
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}

// Commit commits the open transaction, if any.
func (s *Session) Commit(_ context.Context) error {
	if s.closed {
		return store.ErrSessionClosed
	}
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("quarry: sqlstore commit: %w", err)
	}
	return nil
}

// Rollback rolls back the open transaction, if any.
func (s *Session) Rollback(_ context.Context) error {
	if s.closed {
		return store.ErrSessionClosed
	}
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("quarry: sqlstore rollback: %w", err)
	}
	return nil
}

// Close rolls back any open transaction and ends the session.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	err := s.Rollback(context.Background())
	s.closed = true
	return err
}

// NewCursor adapts rows selecting columns, in order, to a store.Cursor.
// Byte values are read as strings.
func NewCursor(rows *sql.Rows, columns []string) store.Cursor {
	return &cursor{rows: rows, columns: columns}
}

type cursor struct {
	rows    *sql.Rows
	columns []string
	row     store.Row
	err     error
}

func (c *cursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		c.row = nil
		return false
	}
	values := make([]any, len(c.columns))
	ptrs := make([]any, len(c.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		c.err = err
		c.row = nil
		return false
	}
	row := make(store.Row, len(c.columns))
	for i, col := range c.columns {
		if b, ok := values[i].([]byte); ok {
			values[i] = string(b)
		}
		row[col] = values[i]
	}
	c.row = row
	return true
}

func (c *cursor) Row() store.Row { return c.row }

func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *cursor) Close() error { return c.rows.Close() }

// translate maps driver constraint errors onto store sentinels.
func translate(err error) error {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("%w: %v", store.ErrDuplicateKey, err)
		}
		return err
	}
	var state interface{ SQLState() string }
	if errors.As(err, &state) && state.SQLState() == "23505" {
		return fmt.Errorf("%w: %v", store.ErrDuplicateKey, err)
	}
	return err
}
