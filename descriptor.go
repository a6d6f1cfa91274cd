package quarry

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/zoobzio/sentinel"
)

// Struct tags understood by quarry.
const (
	tagDoc          = "doc"
	tagDB           = "db"
	tagReceiveHash  = "receive.hash"
	tagLoadDecrypt  = "load.decrypt"
	tagStoreEncrypt = "store.encrypt"
	tagSendMask     = "send.mask"
	tagSendRedact   = "send.redact"
)

var transformTags = []string{tagReceiveHash, tagLoadDecrypt, tagStoreEncrypt, tagSendMask, tagSendRedact}

func init() {
	sentinel.Tag(tagDoc)
	sentinel.Tag(tagDB)
	for _, t := range transformTags {
		sentinel.Tag(t)
	}
}

// Parser turns a raw string into a field value during decode. When a field
// has a parser and the incoming value is a string, the parser's result is
// used verbatim and the field's shape is not consulted.
type Parser func(s string) (any, error)

// Field describes one declared field of a record type.
type Field struct {
	Name       string       // Go field name
	Index      []int        // reflect.Value.FieldByIndex access path
	Type       reflect.Type // declared Go type
	Shape      *Shape       // resolved type shape
	External   string       // document key
	Column     string       // store column, empty when excluded with db:"-"
	Skip       bool         // omitted from encoded output
	PrimaryKey bool         // declared with db:",pk"
	Parser     Parser       // optional custom string parser
	Transforms map[string]string
}

// Optional reports whether the field may be absent.
func (f *Field) Optional() bool {
	return f.Shape.Kind == ShapeOptional
}

// Descriptor is the ordered field list of a record type.
// Descriptors are immutable once built and safe for concurrent use.
type Descriptor struct {
	typ        reflect.Type
	name       string
	fields     []*Field
	byName     map[string]*Field
	byExternal map[string]*Field
	byColumn   map[string]*Field
}

// Type returns the record's Go type.
func (d *Descriptor) Type() reflect.Type { return d.typ }

// Name returns the record type's name.
func (d *Descriptor) Name() string { return d.name }

// Fields returns the fields in declaration order.
func (d *Descriptor) Fields() []*Field {
	out := make([]*Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// Field looks a field up by Go name.
func (d *Descriptor) Field(name string) (*Field, bool) {
	f, ok := d.byName[name]
	return f, ok
}

// ByExternal looks a field up by document key.
func (d *Descriptor) ByExternal(name string) (*Field, bool) {
	f, ok := d.byExternal[name]
	return f, ok
}

// ByColumn looks a field up by store column.
func (d *Descriptor) ByColumn(name string) (*Field, bool) {
	f, ok := d.byColumn[name]
	return f, ok
}

// Columns returns the store columns of all mapped fields in order.
func (d *Descriptor) Columns() []string {
	cols := make([]string, 0, len(d.fields))
	for _, f := range d.fields {
		if f.Column != "" {
			cols = append(cols, f.Column)
		}
	}
	return cols
}

// Option configures a record type at registration.
type Option func(*describeConfig)

type describeConfig struct {
	parsers map[string]Parser
}

// WithParser attaches a custom string parser to the named Go field.
func WithParser(field string, p Parser) Option {
	return func(c *describeConfig) {
		if c.parsers == nil {
			c.parsers = make(map[string]Parser)
		}
		c.parsers[field] = p
	}
}

var (
	descriptors   = make(map[reflect.Type]*Descriptor)
	descriptorsMu sync.RWMutex
)

// Register describes T with the given options and caches the result.
// Nested record types are described with defaults; register them first
// when they need options of their own.
func Register[T any](opts ...Option) (*Descriptor, error) {
	rt := reflect.TypeFor[T]()
	if rt.Kind() != reflect.Struct {
		return nil, newConfigError(ErrNotRecord, rt.String(), "", "")
	}
	sentinel.Scan[T]()

	cfg := &describeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	descriptorsMu.Lock()
	if _, ok := descriptors[rt]; ok {
		descriptorsMu.Unlock()
		return nil, newConfigError(ErrAlreadyRegistered, rt.String(), "", "")
	}
	b := newBuilder(rt, cfg)
	d, err := b.describe(rt)
	if err == nil {
		b.commit()
	}
	descriptorsMu.Unlock()

	if err != nil {
		return nil, err
	}
	emitRegistered(context.Background(), d)
	return d, nil
}

// Describe returns the descriptor for T, describing it with defaults on
// first use.
func Describe[T any]() (*Descriptor, error) {
	rt := reflect.TypeFor[T]()
	if rt.Kind() == reflect.Struct {
		if d, ok := lookupDescriptor(rt); ok {
			return d, nil
		}
		sentinel.Scan[T]()
	}
	return DescribeType(rt)
}

// DescribeType returns the descriptor for rt, dereferencing pointer types.
func DescribeType(rt reflect.Type) (*Descriptor, error) {
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil, newConfigError(ErrNotRecord, rt.String(), "", "")
	}

	if d, ok := lookupDescriptor(rt); ok {
		return d, nil
	}

	descriptorsMu.Lock()
	if d, ok := descriptors[rt]; ok {
		descriptorsMu.Unlock()
		return d, nil
	}
	b := newBuilder(rt, &describeConfig{})
	d, err := b.describe(rt)
	if err == nil {
		b.commit()
	}
	descriptorsMu.Unlock()

	if err != nil {
		return nil, err
	}
	emitRegistered(context.Background(), d)
	return d, nil
}

func lookupDescriptor(rt reflect.Type) (*Descriptor, bool) {
	descriptorsMu.RLock()
	defer descriptorsMu.RUnlock()
	d, ok := descriptors[rt]
	return d, ok
}

// builder describes a root type and every record type reachable from it.
// Nested record types must form a DAG. Callers hold descriptorsMu for
// writing.
type builder struct {
	root     reflect.Type
	cfg      *describeConfig
	building map[reflect.Type]*Descriptor
	visiting map[reflect.Type]bool
}

func newBuilder(root reflect.Type, cfg *describeConfig) *builder {
	return &builder{
		root:     root,
		cfg:      cfg,
		building: make(map[reflect.Type]*Descriptor),
		visiting: make(map[reflect.Type]bool),
	}
}

func (b *builder) commit() {
	for rt, d := range b.building {
		descriptors[rt] = d
	}
}

func (b *builder) describe(rt reflect.Type) (*Descriptor, error) {
	if d, ok := descriptors[rt]; ok {
		return d, nil
	}
	if d, ok := b.building[rt]; ok {
		return d, nil
	}
	if b.visiting[rt] {
		return nil, newConfigError(ErrCyclicType, rt.String(), "", "")
	}
	b.visiting[rt] = true
	defer delete(b.visiting, rt)

	d := &Descriptor{
		typ:        rt,
		name:       rt.Name(),
		byName:     make(map[string]*Field),
		byExternal: make(map[string]*Field),
		byColumn:   make(map[string]*Field),
	}
	if d.name == "" {
		d.name = rt.String()
	}

	meta := metadataFor(rt)
	for _, fm := range meta.Fields {
		sf := rt.FieldByIndex(fm.Index)
		if !sf.IsExported() {
			continue
		}

		f, err := b.describeField(d, fm, sf)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}

		if _, dup := d.byExternal[f.External]; dup {
			return nil, newConfigError(ErrDuplicateName, d.name, f.Name, f.External)
		}
		if f.Column != "" {
			if _, dup := d.byColumn[f.Column]; dup {
				return nil, newConfigError(ErrDuplicateName, d.name, f.Name, f.Column)
			}
			d.byColumn[f.Column] = f
		}
		d.fields = append(d.fields, f)
		d.byName[f.Name] = f
		d.byExternal[f.External] = f
	}

	if len(d.fields) == 0 {
		return nil, newConfigError(ErrNoFields, d.name, "", "")
	}

	if rt == b.root {
		for name, p := range b.cfg.parsers {
			f, ok := d.byName[name]
			if !ok {
				return nil, newConfigError(ErrUnknownField, d.name, name, "")
			}
			f.Parser = p
		}
	}

	b.building[rt] = d
	return d, nil
}

// describeField builds one field. A nil field with a nil error means the
// field is excluded with doc:"-".
func (b *builder) describeField(d *Descriptor, fm sentinel.FieldMetadata, sf reflect.StructField) (*Field, error) {
	docTag, _ := lookupTag(fm, sf, tagDoc)
	if docTag == "-" {
		return nil, nil
	}

	f := &Field{
		Name:     sf.Name,
		Index:    sf.Index,
		Type:     sf.Type,
		External: sf.Name,
	}

	name, flags := splitTag(docTag)
	if name != "" {
		f.External = name
	}
	for _, flag := range flags {
		if flag == "skip" {
			f.Skip = true
		}
	}

	f.Column = f.External
	if dbTag, ok := lookupTag(fm, sf, tagDB); ok {
		col, dbFlags := splitTag(dbTag)
		switch {
		case col == "-":
			f.Column = ""
		case col != "":
			f.Column = col
		}
		for _, flag := range dbFlags {
			if flag == "pk" {
				f.PrimaryKey = true
			}
		}
	}

	shape, err := b.resolveShape(sf.Type)
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) && ce.Field == "" {
			ce.Type = d.name
			ce.Field = f.Name
		}
		return nil, err
	}
	f.Shape = shape

	for _, tag := range transformTags {
		val, ok := lookupTag(fm, sf, tag)
		if !ok {
			continue
		}
		if err := validateTransformTag(tag, val, shape); err != nil {
			return nil, newConfigError(err, d.name, f.Name, val)
		}
		if f.Transforms == nil {
			f.Transforms = make(map[string]string)
		}
		f.Transforms[tag] = val
	}

	return f, nil
}

// metadataFor returns sentinel metadata for rt, scanning by reflection when
// sentinel has not seen the type.
func metadataFor(rt reflect.Type) sentinel.Metadata {
	if meta, ok := sentinel.Lookup(rt.String()); ok && len(meta.Fields) > 0 {
		return meta
	}

	meta := sentinel.Metadata{
		TypeName:    rt.Name(),
		PackageName: rt.PkgPath(),
		Fields:      make([]sentinel.FieldMetadata, 0, rt.NumField()),
	}
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		fm := sentinel.FieldMetadata{
			Name:        sf.Name,
			Type:        sf.Type.String(),
			ReflectType: sf.Type,
			Index:       sf.Index,
			Tags:        make(map[string]string),
		}
		switch sf.Type.Kind() {
		case reflect.Struct:
			fm.Kind = sentinel.KindStruct
		case reflect.Pointer:
			fm.Kind = sentinel.KindPointer
		case reflect.Slice, reflect.Array:
			fm.Kind = sentinel.KindSlice
		case reflect.Map:
			fm.Kind = sentinel.KindMap
		case reflect.Interface:
			fm.Kind = sentinel.KindInterface
		default:
			fm.Kind = sentinel.KindScalar
		}
		meta.Fields = append(meta.Fields, fm)
	}
	return meta
}

func lookupTag(fm sentinel.FieldMetadata, sf reflect.StructField, key string) (string, bool) {
	if v, ok := fm.Tags[key]; ok {
		return v, true
	}
	return sf.Tag.Lookup(key)
}

func splitTag(tag string) (string, []string) {
	parts := strings.Split(tag, ",")
	return strings.TrimSpace(parts[0]), parts[1:]
}
