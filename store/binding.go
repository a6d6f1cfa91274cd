package store

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/zoobzio/quarry"
)

// BindOption configures a Binding.
type BindOption func(*bindConfig)

type bindConfig struct {
	primaryKey string
	encryptors map[quarry.EncryptAlgo]quarry.Encryptor
}

// WithPrimaryKey names the Go field holding the primary key, overriding
// pk tags and column matching.
func WithPrimaryKey(field string) BindOption {
	return func(c *bindConfig) {
		c.primaryKey = field
	}
}

// WithEncryptor registers the encryptor used by store.encrypt and
// load.decrypt fields of the given algorithm.
func WithEncryptor(algo quarry.EncryptAlgo, enc quarry.Encryptor) BindOption {
	return func(c *bindConfig) {
		if c.encryptors == nil {
			c.encryptors = make(map[quarry.EncryptAlgo]quarry.Encryptor)
		}
		c.encryptors[algo] = enc
	}
}

// Binding ties record type T to a table. It converts records to rows and
// back and knows which field holds the primary key.
//
// The primary key field is resolved on first use, in order: the
// WithPrimaryKey option, a field tagged db:",pk", the field whose column is
// the table's primary key. A binding that fails to resolve returns the same
// configuration error from every call.
type Binding[T any] struct {
	table      Table
	desc       *quarry.Descriptor
	transforms *quarry.Transformer
	override   string

	resolveOnce sync.Once
	resolveErr  error
	key         *quarry.Field
}

// Bind creates a Binding of T to table.
func Bind[T any](table Table, opts ...BindOption) (*Binding[T], error) {
	if err := table.validate(); err != nil {
		return nil, err
	}
	desc, err := quarry.Describe[T]()
	if err != nil {
		return nil, err
	}

	cfg := &bindConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	b := &Binding[T]{
		table:      table,
		desc:       desc,
		transforms: quarry.NewTransformer(desc),
		override:   cfg.primaryKey,
	}
	for algo, enc := range cfg.encryptors {
		b.transforms.SetEncryptor(algo, enc)
	}
	return b, nil
}

// Table returns the bound table.
func (b *Binding[T]) Table() Table { return b.table }

// Descriptor returns the descriptor of T.
func (b *Binding[T]) Descriptor() *quarry.Descriptor { return b.desc }

// SetEncryptor registers or replaces an encryptor, for key rotation.
func (b *Binding[T]) SetEncryptor(algo quarry.EncryptAlgo, enc quarry.Encryptor) {
	b.transforms.SetEncryptor(algo, enc)
}

// PrimaryKey returns the field holding the primary key.
func (b *Binding[T]) PrimaryKey() (*quarry.Field, error) {
	b.resolveOnce.Do(func() {
		b.key, b.resolveErr = b.resolveKey()
		if b.resolveErr == nil {
			b.resolveErr = b.transforms.Validate(quarry.StageStore, quarry.StageLoad)
		}
	})
	return b.key, b.resolveErr
}

func (b *Binding[T]) resolveKey() (*quarry.Field, error) {
	name := b.desc.Name()

	if b.override != "" {
		f, ok := b.desc.Field(b.override)
		if !ok {
			return nil, &quarry.ConfigError{Err: ErrNoPrimaryKey, Type: name, Field: b.override}
		}
		return f, nil
	}

	var tagged *quarry.Field
	for _, f := range b.desc.Fields() {
		if !f.PrimaryKey {
			continue
		}
		if tagged != nil {
			return nil, &quarry.ConfigError{Err: ErrAmbiguousPrimaryKey, Type: name, Field: f.Name}
		}
		tagged = f
	}
	if tagged != nil {
		return tagged, nil
	}

	if f, ok := b.desc.ByColumn(b.table.PrimaryKey); ok {
		return f, nil
	}
	return nil, &quarry.ConfigError{Err: ErrNoPrimaryKey, Type: name, Field: b.table.PrimaryKey}
}

// Key returns rec's primary key value, nil when unset.
func (b *Binding[T]) Key(rec *T) (any, error) {
	f, err := b.PrimaryKey()
	if err != nil {
		return nil, err
	}
	src, err := quarry.NewStructAdapter(rec)
	if err != nil {
		return nil, err
	}
	v, _ := src.TryGet(f.Name)
	return v, nil
}

// SetKey writes v into rec's primary key field.
func (b *Binding[T]) SetKey(rec *T, v any) error {
	f, err := b.PrimaryKey()
	if err != nil {
		return err
	}
	dst, err := quarry.NewStructAdapter(rec)
	if err != nil {
		return err
	}
	if err := dst.TrySet(f.Name, v); err != nil {
		return fmt.Errorf("quarry: set primary key %s: %w", f.Name, err)
	}
	return nil
}

// KeyFilter matches the row whose primary key is key.
func (b *Binding[T]) KeyFilter(key any) Filter {
	return Eq(b.table.PrimaryKey, key)
}

// ToRow copies rec's values for every table column into a new row and
// encrypts store.encrypt columns. A zero key is written as nil so the
// backend assigns one.
func (b *Binding[T]) ToRow(rec *T) (Row, error) {
	if _, err := b.PrimaryKey(); err != nil {
		return nil, err
	}
	src, err := quarry.NewColumnAdapter(rec)
	if err != nil {
		return nil, err
	}

	values := make(Row, len(b.table.Columns))
	quarry.CopyFields(src, quarry.MapAdapter(values), b.table.Columns)
	row := values.Clone()
	row[b.table.PrimaryKey] = nil
	if key, _ := b.Key(rec); key != nil && !reflect.ValueOf(key).IsZero() {
		row[b.table.PrimaryKey] = key
	}

	if err := b.transforms.Store(row); err != nil {
		return nil, err
	}
	return row, nil
}

// FromRow builds a new record from row, decrypting load.decrypt columns.
// Columns the record cannot hold are ignored.
func (b *Binding[T]) FromRow(row Row) (*T, error) {
	if _, err := b.PrimaryKey(); err != nil {
		return nil, err
	}

	plain := row.Clone()
	if plain == nil {
		plain = Row{}
	}
	if err := b.transforms.Load(plain); err != nil {
		return nil, err
	}

	rec := new(T)
	dst, err := quarry.NewColumnAdapter(rec)
	if err != nil {
		return nil, err
	}
	src := quarry.MapAdapter(plain)
	quarry.CopyFields(src, dst, b.table.Columns)
	if v, ok := plain[b.table.PrimaryKey]; ok {
		_ = b.SetKey(rec, v)
	}
	return rec, nil
}

// encrypt applies store.encrypt transforms to a patch keyed by column.
func (b *Binding[T]) encrypt(patch Row) error {
	return b.transforms.Store(patch)
}
