package store

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/zoobzio/quarry"
)

// Repository runs create, read, update, delete and search operations for
// records of type T against any Session.
type Repository[T any] struct {
	binding *Binding[T]
	logger  *slog.Logger
}

// NewRepository creates a Repository over binding. A nil logger uses
// slog.Default().
func NewRepository[T any](binding *Binding[T], logger *slog.Logger) *Repository[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository[T]{binding: binding, logger: logger}
}

// Binding returns the repository's binding.
func (r *Repository[T]) Binding() *Binding[T] {
	return r.binding
}

func (r *Repository[T]) tableName() string {
	return r.binding.table.Name
}

// Create inserts rec, writes the stored key back into rec and returns it.
func (r *Repository[T]) Create(ctx context.Context, s Session, rec *T) (key any, err error) {
	start := time.Now()
	defer func() {
		emitOp(ctx, opCreate, r.tableName(), rowCount(err == nil), time.Since(start), err)
	}()

	row, err := r.binding.ToRow(rec)
	if err != nil {
		return nil, err
	}
	key, err = s.Insert(ctx, r.binding.table, row)
	if err != nil {
		return nil, wrapStore(opCreate, r.tableName(), err)
	}
	if err = r.binding.SetKey(rec, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Get fetches the record whose primary key is key. It returns (nil, nil)
// when no row matches.
func (r *Repository[T]) Get(ctx context.Context, s Session, key any) (rec *T, err error) {
	start := time.Now()
	defer func() {
		emitOp(ctx, opGet, r.tableName(), rowCount(rec != nil), time.Since(start), err)
	}()

	if _, err = r.binding.PrimaryKey(); err != nil {
		return nil, err
	}
	if key == nil {
		return nil, nil
	}

	c, err := s.Query(ctx, r.binding.table, r.binding.KeyFilter(key))
	if err != nil {
		return nil, wrapStore(opGet, r.tableName(), err)
	}
	res := newResults(c, r.binding)
	defer res.Close()

	if res.Next() {
		return res.Record(), nil
	}
	if err = res.Err(); err != nil {
		return nil, wrapStore(opGet, r.tableName(), err)
	}
	return nil, nil
}

// Update sets the patch columns on the row keyed by rec's primary key and
// returns the number of rows changed. On success every patch entry is also
// written into rec, whether or not a row matched. Patch keys must be table
// columns.
func (r *Repository[T]) Update(ctx context.Context, s Session, rec *T, patch map[string]any) (n int64, err error) {
	start := time.Now()
	defer func() {
		emitOp(ctx, opUpdate, r.tableName(), n, time.Since(start), err)
	}()

	for col := range patch {
		if !r.binding.table.HasColumn(col) {
			return 0, fmt.Errorf("%w: %s has no column %s", ErrUnknownColumn, r.tableName(), col)
		}
	}
	key, err := r.binding.Key(rec)
	if err != nil {
		return 0, err
	}

	stored := Row(patch).Clone()
	if stored == nil {
		stored = Row{}
	}
	if err = r.binding.encrypt(stored); err != nil {
		return 0, err
	}
	n, err = s.Update(ctx, r.binding.table, r.binding.KeyFilter(key), stored)
	if err != nil {
		return 0, wrapStore(opUpdate, r.tableName(), err)
	}

	dst, err := quarry.NewColumnAdapter(rec)
	if err != nil {
		return n, err
	}
	cols := slices.Sorted(maps.Keys(patch))
	if copied := quarry.CopyFields(quarry.MapAdapter(Row(patch).Clone()), dst, cols); copied != len(cols) {
		r.logger.Debug("patch partially mirrored onto record",
			"table", r.tableName(), "columns", len(cols), "copied", copied)
	}
	return n, nil
}

// UpdateFull writes every non-key column of rec to the row keyed by rec's
// primary key and returns the number of rows changed.
func (r *Repository[T]) UpdateFull(ctx context.Context, s Session, rec *T) (int64, error) {
	if _, err := r.binding.PrimaryKey(); err != nil {
		return 0, err
	}
	src, err := quarry.NewColumnAdapter(rec)
	if err != nil {
		return 0, err
	}

	cols := make([]string, 0, len(r.binding.table.Columns))
	for _, c := range r.binding.table.Columns {
		if c != r.binding.table.PrimaryKey {
			cols = append(cols, c)
		}
	}
	patch := make(map[string]any, len(cols))
	quarry.CopyFields(src, quarry.MapAdapter(patch), cols)
	return r.Update(ctx, s, rec, patch)
}

// Delete removes the row keyed by rec's primary key and returns the number
// of rows removed.
func (r *Repository[T]) Delete(ctx context.Context, s Session, rec *T) (n int64, err error) {
	start := time.Now()
	defer func() {
		emitOp(ctx, opDelete, r.tableName(), n, time.Since(start), err)
	}()

	key, err := r.binding.Key(rec)
	if err != nil {
		return 0, err
	}
	n, err = s.Delete(ctx, r.binding.table, r.binding.KeyFilter(key))
	if err != nil {
		return 0, wrapStore(opDelete, r.tableName(), err)
	}
	return n, nil
}

// Search returns the records matching every criterion. Keys are a column
// name for equality, or column-prefix, column-gte or column-lte.
func (r *Repository[T]) Search(ctx context.Context, s Session, criteria map[string]any) (res *Results[T], err error) {
	start := time.Now()
	defer func() {
		emitOp(ctx, opSearch, r.tableName(), 0, time.Since(start), err)
	}()

	if _, err = r.binding.PrimaryKey(); err != nil {
		return nil, err
	}
	filter, err := ParseCriteria(r.binding.table, criteria)
	if err != nil {
		return nil, err
	}
	c, err := s.Query(ctx, r.binding.table, filter)
	if err != nil {
		return nil, wrapStore(opSearch, r.tableName(), err)
	}
	return newResults(c, r.binding), nil
}

// GetOne returns the first record matching criteria, or (nil, nil) when
// none does.
func (r *Repository[T]) GetOne(ctx context.Context, s Session, criteria map[string]any) (*T, error) {
	res, err := r.Search(ctx, s, criteria)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	if res.Next() {
		return res.Record(), nil
	}
	return nil, res.Err()
}

// TryGetOne is GetOne with errors discarded: it returns nil when nothing
// matches or anything fails.
func (r *Repository[T]) TryGetOne(ctx context.Context, s Session, criteria map[string]any) *T {
	rec, err := r.GetOne(ctx, s, criteria)
	if err != nil {
		r.logger.Debug("search failed, returning no record",
			"table", r.tableName(), "error", err)
		return nil
	}
	return rec
}

func rowCount(ok bool) int64 {
	if ok {
		return 1
	}
	return 0
}
