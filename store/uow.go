package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
)

// Outcome is how an operation inside a unit of work ended.
type Outcome int

const (
	// Success commits the scope.
	Success Outcome = iota
	// SuccessWithSideEffectOnly commits the scope and reports no error. It
	// marks operations that finished early by producing their result as a
	// side effect, such as a response already written.
	SuccessWithSideEffectOnly
	// Failure rolls the scope back and propagates the cause.
	Failure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case SuccessWithSideEffectOnly:
		return "success_side_effect_only"
	case Failure:
		return "failure"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// ErrHalt marks an operation that stopped early after completing its side
// effect. The default classifier maps errors wrapping ErrHalt to
// SuccessWithSideEffectOnly.
var ErrHalt = errors.New("quarry: halted after side effect")

// errFailed stands in for a Failure outcome reported without a cause.
var errFailed = errors.New("quarry: unit of work failed")

// Classifier maps an operation's error to an Outcome.
type Classifier func(err error) Outcome

// DefaultClassifier maps nil to Success, ErrHalt to
// SuccessWithSideEffectOnly and anything else to Failure.
func DefaultClassifier(err error) Outcome {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrHalt):
		return SuccessWithSideEffectOnly
	default:
		return Failure
	}
}

// Operation is work run inside a unit of work.
type Operation func(ctx context.Context, s Session) error

// UnitOfWorkOption configures a UnitOfWork.
type UnitOfWorkOption func(*UnitOfWork)

// WithLogger sets the logger failures are reported to.
func WithLogger(logger *slog.Logger) UnitOfWorkOption {
	return func(u *UnitOfWork) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// WithClassifier replaces DefaultClassifier for Do and Wrap.
func WithClassifier(c Classifier) UnitOfWorkOption {
	return func(u *UnitOfWork) {
		if c != nil {
			u.classify = c
		}
	}
}

// UnitOfWork scopes a session around a group of operations. A scope is
// opened with Begin and ended with End, which commits or rolls back by
// outcome and always closes the session. Run, Do and Wrap pair the two
// around a function.
//
// A UnitOfWork holds at most one open scope and is not safe for concurrent
// use; give each goroutine its own.
type UnitOfWork struct {
	factory  SessionFactory
	logger   *slog.Logger
	classify Classifier
	active   *scopedSession
}

// NewUnitOfWork creates a UnitOfWork opening sessions from factory.
func NewUnitOfWork(factory SessionFactory, opts ...UnitOfWorkOption) *UnitOfWork {
	u := &UnitOfWork{
		factory:  factory,
		logger:   slog.Default(),
		classify: DefaultClassifier,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Active reports whether a scope is open.
func (u *UnitOfWork) Active() bool {
	return u.active != nil
}

// Begin opens a scope and returns its session. The session stops working
// once the scope ends.
func (u *UnitOfWork) Begin(ctx context.Context) (Session, error) {
	if u.active != nil {
		return nil, ErrScopeActive
	}
	s, err := u.factory(ctx)
	emitBegin(ctx, err)
	if err != nil {
		return nil, fmt.Errorf("quarry: open session: %w", err)
	}
	u.active = &scopedSession{inner: s}
	return u.active, nil
}

// End closes the open scope. Success and SuccessWithSideEffectOnly commit;
// Failure logs cause and rolls back. The session is closed whatever
// happens. The returned error reports only commit, rollback and close
// failures; propagating cause is the caller's business.
func (u *UnitOfWork) End(ctx context.Context, outcome Outcome, cause error) error {
	sc := u.active
	if sc == nil {
		return ErrNoScope
	}
	u.active = nil

	var err error
	committed := outcome != Failure
	if committed {
		if err = sc.inner.Commit(ctx); err != nil {
			err = fmt.Errorf("quarry: commit: %w", err)
			if rerr := sc.inner.Rollback(ctx); rerr != nil {
				err = errors.Join(err, fmt.Errorf("quarry: rollback: %w", rerr))
			}
		}
	} else {
		if cause == nil {
			cause = errFailed
		}
		u.logger.ErrorContext(ctx, "unit of work failed, rolling back",
			"error", cause,
			"stack", string(debug.Stack()),
		)
		if rerr := sc.inner.Rollback(ctx); rerr != nil {
			err = fmt.Errorf("quarry: rollback: %w", rerr)
		}
	}

	sc.closed.Store(true)
	if cerr := sc.inner.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("quarry: close: %w", cerr))
	}
	emitEnd(ctx, outcome, committed, err)
	return err
}

// Run opens a scope, calls fn and ends the scope with the outcome fn
// reports. Failure returns fn's error. Success commits and still returns
// fn's error if it gave one. SuccessWithSideEffectOnly commits and returns
// nil. If fn panics the scope is rolled back and the panic continues.
func (u *UnitOfWork) Run(ctx context.Context, fn func(ctx context.Context, s Session) (Outcome, error)) error {
	s, err := u.Begin(ctx)
	if err != nil {
		return err
	}

	ended := false
	defer func() {
		if ended {
			return
		}
		if r := recover(); r != nil {
			_ = u.End(ctx, Failure, fmt.Errorf("quarry: panic: %v", r))
			panic(r)
		}
	}()

	outcome, cause := fn(ctx, s)
	ended = true
	endErr := u.End(ctx, outcome, cause)

	switch outcome {
	case SuccessWithSideEffectOnly:
		return endErr
	case Failure:
		if cause == nil {
			cause = errFailed
		}
	}
	if cause == nil {
		return endErr
	}
	if endErr == nil {
		return cause
	}
	return errors.Join(cause, endErr)
}

// Do runs fn in a scope, deriving the outcome from its error with the
// configured classifier.
func (u *UnitOfWork) Do(ctx context.Context, fn Operation) error {
	return u.Run(ctx, func(ctx context.Context, s Session) (Outcome, error) {
		err := fn(ctx, s)
		return u.classify(err), err
	})
}

// Wrap adapts fn so each call runs in its own scope.
func (u *UnitOfWork) Wrap(fn Operation) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return u.Do(ctx, fn)
	}
}

// scopedSession refuses use once its scope has ended. Close is owned by
// the unit of work and is a no-op for callers.
type scopedSession struct {
	inner  Session
	closed atomic.Bool
}

func (s *scopedSession) Insert(ctx context.Context, table Table, row Row) (any, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	return s.inner.Insert(ctx, table, row)
}

func (s *scopedSession) Query(ctx context.Context, table Table, filter Filter) (Cursor, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	c, err := s.inner.Query(ctx, table, filter)
	if err != nil {
		return nil, err
	}
	return &scopedCursor{inner: c, scope: s}, nil
}

func (s *scopedSession) Update(ctx context.Context, table Table, filter Filter, patch Row) (int64, error) {
	if s.closed.Load() {
		return 0, ErrSessionClosed
	}
	return s.inner.Update(ctx, table, filter, patch)
}

func (s *scopedSession) Delete(ctx context.Context, table Table, filter Filter) (int64, error) {
	if s.closed.Load() {
		return 0, ErrSessionClosed
	}
	return s.inner.Delete(ctx, table, filter)
}

func (s *scopedSession) Commit(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	return s.inner.Commit(ctx)
}

func (s *scopedSession) Rollback(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	return s.inner.Rollback(ctx)
}

func (s *scopedSession) Close() error {
	return nil
}

type scopedCursor struct {
	inner Cursor
	scope *scopedSession
	err   error
}

func (c *scopedCursor) Next() bool {
	if c.scope.closed.Load() {
		c.err = ErrSessionClosed
		return false
	}
	return c.inner.Next()
}

func (c *scopedCursor) Row() Row {
	if c.err != nil {
		return nil
	}
	return c.inner.Row()
}

func (c *scopedCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.inner.Err()
}

func (c *scopedCursor) Close() error {
	if c.scope.closed.Load() {
		return nil
	}
	return c.inner.Close()
}
