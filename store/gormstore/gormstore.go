// Package gormstore is a PostgreSQL store backend built on GORM. Each
// session runs in a GORM transaction begun on first use.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/zoobzio/quarry/store"
	"github.com/zoobzio/quarry/store/sqlstore"
)

// Store is a store over a *gorm.DB.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to PostgreSQL. A nil logger uses slog.Default().
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: cfg.PreferSimpleProtocol,
	}), &gorm.Config{
		Logger:         newLogger(logger, cfg),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("quarry: gormstore open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("quarry: gormstore pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return New(db, logger), nil
}

// New wraps an open *gorm.DB. A nil logger uses slog.Default().
func New(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// DB returns the underlying *gorm.DB.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Session opens a session. It satisfies store.SessionFactory.
func (s *Store) Session(_ context.Context) (store.Session, error) {
	return &Session{store: s}, nil
}

// Session is a store.Session over one GORM transaction at a time.
type Session struct {
	store  *Store
	tx     *gorm.DB
	closed bool
}

func (s *Session) begin(ctx context.Context) (*gorm.DB, error) {
	if s.closed {
		return nil, store.ErrSessionClosed
	}
	if s.tx != nil {
		return s.tx.WithContext(ctx), nil
	}
	tx := s.store.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("quarry: gormstore begin: %w", tx.Error)
	}
	s.tx = tx
	return tx, nil
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

	query, vars := insertExpr(t, cols, values)
	var key any
	if err := tx.Raw(query, vars...).Row().Scan(&key); err != nil {
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
	rows, err := selectQuery(tx, t, f).Rows()
	if err != nil {
		return nil, translate(err)
	}
	return sqlstore.NewCursor(rows, t.Columns), nil
}

// Update implements store.Session. An empty patch changes nothing and
// reports how many rows match.
func (s *Session) Update(ctx context.Context, t store.Table, f store.Filter, patch store.Row) (int64, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}

	where := whereClause(f)
	if where == nil {
		tx = tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	}
	q := tx.Table(t.Name)
	if where != nil {
		q = q.Clauses(*where)
	}

	if len(patch) == 0 {
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return 0, translate(err)
		}
		return n, nil
	}

	res := q.Updates(map[string]any(patch))
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

// Delete implements store.Session.
func (s *Session) Delete(ctx context.Context, t store.Table, f store.Filter) (int64, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	query, vars := deleteExpr(t, f)
	res := tx.Exec(query, vars...)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
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
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("quarry: gormstore commit: %w", err)
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
	if err := tx.Rollback().Error; err != nil {
		return fmt.Errorf("quarry: gormstore rollback: %w", err)
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

// conditions renders a filter as GORM expressions. Equality with nil
// matches nothing.
func conditions(f store.Filter) []clause.Expression {
	exprs := make([]clause.Expression, 0, len(f))
	for _, p := range f {
		col := clause.Column{Name: p.Column}
		switch p.Op {
		case store.OpPrefix:
			exprs = append(exprs, clause.Expr{SQL: "starts_with(?, ?)", Vars: []any{col, p.Value}})
		case store.OpGte:
			exprs = append(exprs, clause.Gte{Column: col, Value: p.Value})
		case store.OpLte:
			exprs = append(exprs, clause.Lte{Column: col, Value: p.Value})
		default:
			if p.Value == nil {
				exprs = append(exprs, clause.Expr{SQL: "1 = 0"})
				continue
			}
			exprs = append(exprs, clause.Eq{Column: col, Value: p.Value})
		}
	}
	return exprs
}

func whereClause(f store.Filter) *clause.Where {
	if len(f) == 0 {
		return nil
	}
	return &clause.Where{Exprs: conditions(f)}
}

func selectQuery(tx *gorm.DB, t store.Table, f store.Filter) *gorm.DB {
	q := tx.Table(t.Name).Select(t.Columns)
	if where := whereClause(f); where != nil {
		q = q.Clauses(*where)
	}
	return q.Order(clause.OrderByColumn{Column: clause.Column{Name: t.PrimaryKey}})
}

func insertExpr(t store.Table, cols []string, row store.Row) (string, []any) {
	table := clause.Table{Name: t.Name}
	key := clause.Column{Name: t.PrimaryKey}
	if len(cols) == 0 {
		return "INSERT INTO ? DEFAULT VALUES RETURNING ?", []any{table, key}
	}
	columns := make([]clause.Column, len(cols))
	values := make([]any, len(cols))
	for i, c := range cols {
		columns[i] = clause.Column{Name: c}
		values[i] = row[c]
	}
	return "INSERT INTO ? ? VALUES ? RETURNING ?", []any{table, columns, values, key}
}

func deleteExpr(t store.Table, f store.Filter) (string, []any) {
	table := clause.Table{Name: t.Name}
	if len(f) == 0 {
		return "DELETE FROM ?", []any{table}
	}
	return "DELETE FROM ? WHERE ?", []any{table, clause.And(conditions(f)...)}
}

// translate maps constraint violations onto store sentinels.
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", store.ErrDuplicateKey, err)
	}
	var state interface{ SQLState() string }
	if errors.As(err, &state) && state.SQLState() == "23505" {
		return fmt.Errorf("%w: %v", store.ErrDuplicateKey, err)
	}
	return err
}

// slogWriter routes GORM's log lines to slog.
type slogWriter struct {
	logger *slog.Logger
}

func (w slogWriter) Printf(format string, args ...any) {
	w.logger.Debug(fmt.Sprintf(format, args...), "component", "gorm")
}

func newLogger(logger *slog.Logger, cfg Config) gormlogger.Interface {
	return gormlogger.New(slogWriter{logger: logger}, gormlogger.Config{
		SlowThreshold:             cfg.SlowThreshold,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
		LogLevel:                  gormlogger.Warn,
	})
}
