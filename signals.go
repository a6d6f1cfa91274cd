package quarry

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for mapping events.
var (
	SignalRegistered       = capitan.NewSignal("quarry.type.registered", "Record type described")
	SignalEncoded          = capitan.NewSignal("quarry.encode.complete", "Record encoded to a document")
	SignalDecoded          = capitan.NewSignal("quarry.decode.complete", "Document decoded to a record")
	SignalProcessorCreated = capitan.NewSignal("quarry.processor.created", "Processor instantiated")
	SignalReceiveComplete  = capitan.NewSignal("quarry.receive.complete", "Receive operation finished")
	SignalSendComplete     = capitan.NewSignal("quarry.send.complete", "Send operation finished")
)

// Keys for typed event data.
var (
	KeyContentType   = capitan.NewStringKey("content_type")
	KeyTypeName      = capitan.NewStringKey("type_name")
	KeyFieldCount    = capitan.NewIntKey("field_count")
	KeySize          = capitan.NewIntKey("size")
	KeyDuration      = capitan.NewDurationKey("duration")
	KeyError         = capitan.NewErrorKey("error")
	KeyHashedCount   = capitan.NewIntKey("hashed_count")
	KeyMaskedCount   = capitan.NewIntKey("masked_count")
	KeyRedactedCount = capitan.NewIntKey("redacted_count")
)

func emitRegistered(ctx context.Context, d *Descriptor) {
	capitan.Emit(ctx, SignalRegistered,
		KeyTypeName.Field(d.Name()),
		KeyFieldCount.Field(len(d.fields)),
	)
}

func emitEncoded(ctx context.Context, typeName string, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalEncoded, fields...)
		return
	}
	capitan.Emit(ctx, SignalEncoded, fields...)
}

func emitDecoded(ctx context.Context, typeName string, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalDecoded, fields...)
		return
	}
	capitan.Emit(ctx, SignalDecoded, fields...)
}

func emitProcessorCreated(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalProcessorCreated,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

func emitReceiveComplete(ctx context.Context, contentType, typeName string, size int, duration time.Duration, hashed int, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
		KeyHashedCount.Field(hashed),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalReceiveComplete, fields...)
		return
	}
	capitan.Emit(ctx, SignalReceiveComplete, fields...)
}

func emitSendComplete(ctx context.Context, contentType, typeName string, size int, duration time.Duration, masked, redacted int, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
		KeyMaskedCount.Field(masked),
		KeyRedactedCount.Field(redacted),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalSendComplete, fields...)
		return
	}
	capitan.Emit(ctx, SignalSendComplete, fields...)
}
