package quarry

import (
	"encoding/base64"
	"fmt"
	"sync"
)

// Stage selects which transforms a boundary applies.
type Stage int

const (
	// StageReceive hashes inbound document fields (receive.hash).
	StageReceive Stage = iota + 1
	// StageSend masks and redacts outbound document fields (send.mask, send.redact).
	StageSend
	// StageStore encrypts row columns on the way to a store (store.encrypt).
	StageStore
	// StageLoad decrypts row columns read from a store (load.decrypt).
	StageLoad
)

// transformStep is one field's transform within a stage.
type transformStep struct {
	field *Field
	arg   string // algorithm, mask type or redaction text
}

// Transformer applies a record type's tagged field transforms to its
// document and row forms. Documents are keyed by external name and rows by
// column. Only top-level fields of the record are transformed.
//
// Transformers are safe for concurrent use; capabilities may be replaced at
// any time to rotate keys.
type Transformer struct {
	desc *Descriptor

	hash    []transformStep
	decrypt []transformStep
	encrypt []transformStep
	mask    []transformStep
	redact  []transformStep

	mu         sync.RWMutex
	encryptors map[EncryptAlgo]Encryptor
	hashers    map[HashAlgo]Hasher
	maskers    map[MaskType]Masker
}

// NewTransformer builds the transform plan for desc with the builtin
// hashers and maskers. Encryptors must be supplied with SetEncryptor.
func NewTransformer(desc *Descriptor) *Transformer {
	t := &Transformer{
		desc:       desc,
		encryptors: make(map[EncryptAlgo]Encryptor),
		hashers:    builtinHashers(),
		maskers:    builtinMaskers(),
	}
	for _, f := range desc.fields {
		for tag, arg := range f.Transforms {
			step := transformStep{field: f, arg: arg}
			switch tag {
			case tagReceiveHash:
				t.hash = append(t.hash, step)
			case tagLoadDecrypt:
				t.decrypt = append(t.decrypt, step)
			case tagStoreEncrypt:
				t.encrypt = append(t.encrypt, step)
			case tagSendMask:
				t.mask = append(t.mask, step)
			case tagSendRedact:
				t.redact = append(t.redact, step)
			}
		}
	}
	return t
}

// SetEncryptor registers an encryptor for the given algorithm.
func (t *Transformer) SetEncryptor(algo EncryptAlgo, enc Encryptor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.encryptors[algo] = enc
}

// SetHasher registers a hasher for the given algorithm.
func (t *Transformer) SetHasher(algo HashAlgo, h Hasher) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hashers[algo] = h
}

// SetMasker registers a masker for the given type.
func (t *Transformer) SetMasker(mt MaskType, m Masker) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maskers[mt] = m
}

// Count returns how many fields a stage transforms.
func (t *Transformer) Count(stage Stage) int {
	switch stage {
	case StageReceive:
		return len(t.hash)
	case StageSend:
		return len(t.mask) + len(t.redact)
	case StageStore:
		return len(t.encrypt)
	case StageLoad:
		return len(t.decrypt)
	}
	return 0
}

// Validate checks that every capability the given stages need is registered.
func (t *Transformer) Validate(stages ...Stage) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, stage := range stages {
		switch stage {
		case StageReceive:
			for _, s := range t.hash {
				if _, ok := t.hashers[HashAlgo(s.arg)]; !ok {
					return newConfigError(ErrMissingHasher, t.desc.name, s.field.Name, s.arg)
				}
			}
		case StageSend:
			for _, s := range t.mask {
				if _, ok := t.maskers[MaskType(s.arg)]; !ok {
					return newConfigError(ErrMissingMasker, t.desc.name, s.field.Name, s.arg)
				}
			}
		case StageStore, StageLoad:
			steps := t.encrypt
			if stage == StageLoad {
				steps = t.decrypt
			}
			for _, s := range steps {
				if _, ok := t.encryptors[EncryptAlgo(s.arg)]; !ok {
					return newConfigError(ErrMissingEncryptor, t.desc.name, s.field.Name, s.arg)
				}
			}
		}
	}
	return nil
}

// Receive hashes receive.hash fields of an inbound document in place.
func (t *Transformer) Receive(doc map[string]any) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, s := range t.hash {
		v, ok := doc[s.field.External].(string)
		if !ok {
			continue
		}
		hashed, err := t.hashers[HashAlgo(s.arg)].Hash([]byte(v))
		if err != nil {
			return newTransformError(ErrHash, "hash", s.field.Name, err)
		}
		doc[s.field.External] = hashed
	}
	return nil
}

// Send masks then redacts fields of an outbound document in place.
// Redaction replaces any non-null value.
func (t *Transformer) Send(doc map[string]any) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, s := range t.mask {
		if v, ok := doc[s.field.External].(string); ok {
			doc[s.field.External] = t.maskers[MaskType(s.arg)].Mask(v)
		}
	}
	for _, s := range t.redact {
		if v, ok := doc[s.field.External]; ok && v != nil {
			doc[s.field.External] = s.arg
		}
	}
}

// Store encrypts store.encrypt columns of a row in place. Ciphertext is
// stored base64 encoded.
func (t *Transformer) Store(row map[string]any) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, s := range t.encrypt {
		col := s.field.Column
		v, ok := row[col].(string)
		if !ok {
			continue
		}
		ciphertext, err := t.encryptors[EncryptAlgo(s.arg)].Encrypt([]byte(v))
		if err != nil {
			return newTransformError(ErrEncrypt, "encrypt", s.field.Name, err)
		}
		row[col] = base64.StdEncoding.EncodeToString(ciphertext)
	}
	return nil
}

// Load decrypts load.decrypt columns of a row in place.
func (t *Transformer) Load(row map[string]any) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, s := range t.decrypt {
		col := s.field.Column
		var encoded string
		switch v := row[col].(type) {
		case string:
			encoded = v
		case []byte:
			encoded = string(v)
		default:
			continue
		}
		ciphertext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return newTransformError(ErrDecrypt, "decrypt", s.field.Name, fmt.Errorf("base64: %w", err))
		}
		plaintext, err := t.encryptors[EncryptAlgo(s.arg)].Decrypt(ciphertext)
		if err != nil {
			return newTransformError(ErrDecrypt, "decrypt", s.field.Name, err)
		}
		row[col] = string(plaintext)
	}
	return nil
}
