package store

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for store events.
var (
	SignalCreate   = capitan.NewSignal("quarry.store.create", "Record inserted")
	SignalGet      = capitan.NewSignal("quarry.store.get", "Record fetched by key")
	SignalUpdate   = capitan.NewSignal("quarry.store.update", "Record columns updated")
	SignalDelete   = capitan.NewSignal("quarry.store.delete", "Record deleted")
	SignalSearch   = capitan.NewSignal("quarry.store.search", "Search issued")
	SignalBegin    = capitan.NewSignal("quarry.uow.begin", "Unit of work opened")
	SignalCommit   = capitan.NewSignal("quarry.uow.commit", "Unit of work committed")
	SignalRollback = capitan.NewSignal("quarry.uow.rollback", "Unit of work rolled back")
)

// Keys for typed event data.
var (
	KeyTable    = capitan.NewStringKey("table")
	KeyRows     = capitan.NewIntKey("rows") // absent on search signals
	KeyOutcome  = capitan.NewStringKey("outcome")
	KeyDuration = capitan.NewDurationKey("duration")
	KeyError    = capitan.NewErrorKey("error")
)

// Store operations, as emitted.
const (
	opCreate = "create"
	opGet    = "get"
	opUpdate = "update"
	opDelete = "delete"
	opSearch = "search"
)

// reportsRows is false for search: results are read lazily, so no count
// exists when the signal fires.
func reportsRows(op string) bool {
	return op != opSearch
}

func emitOp(ctx context.Context, op, table string, rows int64, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyTable.Field(table),
		KeyDuration.Field(duration),
	}
	if reportsRows(op) {
		fields = append(fields, KeyRows.Field(int(rows)))
	}
	emit := capitan.Emit
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		emit = capitan.Error
	}
	switch op {
	case opCreate:
		emit(ctx, SignalCreate, fields...)
	case opGet:
		emit(ctx, SignalGet, fields...)
	case opUpdate:
		emit(ctx, SignalUpdate, fields...)
	case opDelete:
		emit(ctx, SignalDelete, fields...)
	case opSearch:
		emit(ctx, SignalSearch, fields...)
	}
}

func emitBegin(ctx context.Context, err error) {
	if err != nil {
		capitan.Error(ctx, SignalBegin, KeyError.Field(err))
		return
	}
	capitan.Emit(ctx, SignalBegin)
}

func emitEnd(ctx context.Context, outcome Outcome, committed bool, err error) {
	fields := []capitan.Field{
		KeyOutcome.Field(outcome.String()),
	}
	emit := capitan.Emit
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		emit = capitan.Error
	}
	if committed {
		emit(ctx, SignalCommit, fields...)
		return
	}
	emit(ctx, SignalRollback, fields...)
}
