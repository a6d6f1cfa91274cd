package quarry

import (
	"context"
	"sync"
	"time"
)

// Processor maps records of type T across an external boundary through a
// Codec. Receive turns inbound bytes into a record, hashing receive.hash
// fields of the document first. Send turns a record into outbound bytes,
// masking and redacting fields of the document after encoding.
//
// Processors are safe for concurrent use. Validation of the configured
// hashers and maskers runs once, on first use.
type Processor[T any] struct {
	codec      Codec
	desc       *Descriptor
	transforms *Transformer

	validateOnce sync.Once
	validateErr  error
}

// NewProcessor creates a Processor for T using codec.
func NewProcessor[T any](codec Codec) (*Processor[T], error) {
	desc, err := Describe[T]()
	if err != nil {
		return nil, err
	}
	p := &Processor[T]{
		codec:      codec,
		desc:       desc,
		transforms: NewTransformer(desc),
	}
	emitProcessorCreated(context.Background(), codec.ContentType(), desc.Name())
	return p, nil
}

// Descriptor returns the field descriptor of T.
func (p *Processor[T]) Descriptor() *Descriptor {
	return p.desc
}

// SetHasher registers a hasher for the given algorithm.
// Returns the processor for chaining.
func (p *Processor[T]) SetHasher(algo HashAlgo, h Hasher) *Processor[T] {
	p.transforms.SetHasher(algo, h)
	return p
}

// SetMasker registers a masker for the given type.
// Returns the processor for chaining.
func (p *Processor[T]) SetMasker(mt MaskType, m Masker) *Processor[T] {
	p.transforms.SetMasker(mt, m)
	return p
}

// Validate checks that all hashers and maskers T's tags need are registered.
func (p *Processor[T]) Validate() error {
	p.validateOnce.Do(func() {
		p.validateErr = p.transforms.Validate(StageReceive, StageSend)
	})
	return p.validateErr
}

// Receive unmarshals data into a document, applies receive transforms and
// decodes it into a T. A null payload yields (nil, nil).
func (p *Processor[T]) Receive(ctx context.Context, data []byte) (out *T, err error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		emitReceiveComplete(ctx, p.codec.ContentType(), p.desc.Name(),
			len(data), time.Since(start), p.transforms.Count(StageReceive), err)
	}()

	var doc any
	if err := p.codec.Unmarshal(data, &doc); err != nil {
		return nil, newCodecError(ErrUnmarshal, p.codec.ContentType(), err)
	}
	if m, ok := asMapping(doc); ok {
		if err := p.transforms.Receive(m); err != nil {
			return nil, err
		}
		doc = m
	}
	return Decode[T](doc)
}

// Send encodes obj, applies send transforms and marshals the document.
// A nil obj marshals as null.
func (p *Processor[T]) Send(ctx context.Context, obj *T) (data []byte, err error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		emitSendComplete(ctx, p.codec.ContentType(), p.desc.Name(), len(data), time.Since(start),
			len(p.transforms.mask), len(p.transforms.redact), err)
	}()

	var payload any
	if obj != nil {
		doc, err := Encode(obj)
		if err != nil {
			return nil, err
		}
		p.transforms.Send(doc)
		payload = doc
	}

	data, err = p.codec.Marshal(payload)
	if err != nil {
		return nil, newCodecError(ErrMarshal, p.codec.ContentType(), err)
	}
	return data, nil
}
