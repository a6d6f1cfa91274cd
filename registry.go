package quarry

import (
	"reflect"
	"sync"
)

// registryKey combines type and codec for cache lookup.
type registryKey struct {
	typ         reflect.Type
	contentType string
}

var (
	registry   = make(map[registryKey]any)
	registryMu sync.RWMutex
)

// Use returns a cached processor or builds a new one.
// The processor is cached by type and codec content type.
func Use[T any](codec Codec) (*Processor[T], error) {
	key := registryKey{typ: reflect.TypeFor[T](), contentType: codec.ContentType()}

	registryMu.RLock()
	if cached, ok := registry[key]; ok {
		registryMu.RUnlock()
		return cached.(*Processor[T]), nil
	}
	registryMu.RUnlock()

	registryMu.Lock()
	defer registryMu.Unlock()

	if cached, ok := registry[key]; ok {
		return cached.(*Processor[T]), nil
	}

	processor, err := NewProcessor[T](codec)
	if err != nil {
		return nil, err
	}

	registry[key] = processor
	return processor, nil
}

// Reset clears the processor cache and the descriptor registry.
// This is primarily useful for test isolation.
func Reset() {
	registryMu.Lock()
	registry = make(map[registryKey]any)
	registryMu.Unlock()

	descriptorsMu.Lock()
	descriptors = make(map[reflect.Type]*Descriptor)
	descriptorsMu.Unlock()
}
