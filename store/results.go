package store

import "iter"

// Results lazily maps query rows to records. It is single pass: records are
// produced as the caller advances and cannot be replayed.
type Results[T any] struct {
	cursor  Cursor
	binding *Binding[T]
	rec     *T
	err     error
	done    bool
}

func newResults[T any](c Cursor, b *Binding[T]) *Results[T] {
	return &Results[T]{cursor: c, binding: b}
}

// Next advances to the next record. It returns false when the rows are
// exhausted or an error occurred; check Err afterwards.
func (r *Results[T]) Next() bool {
	if r.done {
		return false
	}
	if !r.cursor.Next() {
		r.err = r.cursor.Err()
		r.finish()
		return false
	}
	rec, err := r.binding.FromRow(r.cursor.Row())
	if err != nil {
		r.err = err
		r.finish()
		return false
	}
	r.rec = rec
	return true
}

// Record returns the current record.
func (r *Results[T]) Record() *T {
	return r.rec
}

// Err returns the first error met while iterating.
func (r *Results[T]) Err() error {
	return r.err
}

// Close releases the underlying cursor. It is safe to call more than once.
func (r *Results[T]) Close() error {
	if r.done {
		return nil
	}
	r.done = true
	r.rec = nil
	return r.cursor.Close()
}

func (r *Results[T]) finish() {
	r.rec = nil
	if r.done {
		return
	}
	r.done = true
	if err := r.cursor.Close(); err != nil && r.err == nil {
		r.err = err
	}
}

// All returns an iterator over the remaining records. Iteration stops at
// the first error, which is yielded with a nil record. The cursor is closed
// when the loop ends.
func (r *Results[T]) All() iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		defer r.Close()
		for r.Next() {
			if !yield(r.rec, nil) {
				return
			}
		}
		if r.err != nil {
			yield(nil, r.err)
		}
	}
}

// Collect drains the remaining records into a slice.
func (r *Results[T]) Collect() ([]*T, error) {
	var out []*T
	for rec, err := range r.All() {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}
