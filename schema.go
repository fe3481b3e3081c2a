package structdef

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-multierror"
)

// MaxFieldID is the largest id a field can carry.
const MaxFieldID = 1<<16 - 1

// Field is one numbered, named, typed entry of a Schema.
type Field struct {
	ID   int
	Name string
	Type FieldType

	// Default is written when the input lacks the field and filled in when
	// a record lacks it. Stored in canonical form.
	Default    any
	Required   bool
	Compressed bool
	Single     bool
	MaxLen     int
	Deprecated bool
}

type FieldOption func(*Field)

func WithDefault(v any) FieldOption {
	return func(f *Field) { f.Default = v }
}

// Required fails serialization and deserialization when the field is absent.
func Required() FieldOption {
	return func(f *Field) { f.Required = true }
}

// Compressed zstd-compresses the field payload whenever that makes it smaller.
func Compressed() FieldOption {
	return func(f *Field) { f.Compressed = true }
}

// SinglePrecision stores floats as float32. Only valid for double, CFrame and
// Vector3 fields and their arrays.
func SinglePrecision() FieldOption {
	return func(f *Field) { f.Single = true }
}

// MaxLen bounds strings (in bytes) and arrays (in elements).
func MaxLen(n int) FieldOption {
	return func(f *Field) { f.MaxLen = n }
}

// Deprecated keeps the id and name reserved; the field is never written and is
// ignored when read.
func Deprecated() FieldOption {
	return func(f *Field) { f.Deprecated = true }
}

// Schema accumulates field definitions. Build it once; it is not safe to call
// Field concurrently with anything else.
type Schema struct {
	fields []*Field
	byID   map[int]*Field
	byName map[string]*Field
	err    *multierror.Error
}

func NewSchema() *Schema {
	return &Schema{
		byID:   make(map[int]*Field),
		byName: make(map[string]*Field),
	}
}

// Field registers a field and returns s for chaining. Problems are collected
// and reported by Err.
func (s *Schema) Field(id int, name string, t FieldType, opts ...FieldOption) *Schema {
	f := &Field{ID: id, Name: name, Type: t}
	for _, opt := range opts {
		opt(f)
	}
	if err := s.check(f); err != nil {
		s.err = multierror.Append(s.err, fmt.Errorf("field %d %q: %w", id, name, err))
		return s
	}
	s.fields = append(s.fields, f)
	slices.SortFunc(s.fields, func(a, b *Field) int { return a.ID - b.ID })
	s.byID[id] = f
	s.byName[name] = f
	return s
}

func (s *Schema) check(f *Field) error {
	switch {
	case f.ID < 1 || f.ID > MaxFieldID:
		return ErrInvalidID
	case f.Name == "":
		return ErrEmptyName
	case !f.Type.Valid():
		return fmt.Errorf("%w: %d", ErrUnknownFieldType, uint8(f.Type))
	}
	if _, ok := s.byID[f.ID]; ok {
		return ErrDuplicateID
	}
	if _, ok := s.byName[f.Name]; ok {
		return ErrDuplicateName
	}
	if f.Single && !f.Type.Float() {
		return fmt.Errorf("%w: single precision on %s", ErrInvalidOption, f.Type)
	}
	if f.MaxLen < 0 || (f.MaxLen > 0 && f.Type != TypeString && !f.Type.IsArray()) {
		return fmt.Errorf("%w: max length on %s", ErrInvalidOption, f.Type)
	}
	if f.Required && (f.Deprecated || f.Default != nil) {
		return fmt.Errorf("%w: required field cannot be deprecated or defaulted", ErrInvalidOption)
	}
	if f.Default != nil {
		v, err := normalize(f.Type, f.Default)
		if err != nil {
			return fmt.Errorf("default: %w", err)
		}
		if f.MaxLen > 0 && length(f.Type, v) > f.MaxLen {
			return fmt.Errorf("default: %w", ErrTooLong)
		}
		f.Default = v
	}
	return nil
}

// Err returns every definition problem, or nil.
func (s *Schema) Err() error {
	return s.err.ErrorOrNil()
}

// Fields returns the fields ordered by id.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	for i, f := range s.fields {
		out[i] = *f
		out[i].Default = cloneValue(f.Default)
	}
	return out
}

func (s *Schema) Len() int { return len(s.fields) }

func (s *Schema) Lookup(name string) (Field, bool) {
	f, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	cp := *f
	cp.Default = cloneValue(f.Default)
	return cp, true
}

func (s *Schema) LookupID(id int) (Field, bool) {
	f, ok := s.byID[id]
	if !ok {
		return Field{}, false
	}
	cp := *f
	cp.Default = cloneValue(f.Default)
	return cp, true
}

// Fingerprint identifies the field layout. Two schemas with the same ids,
// names and types share a fingerprint regardless of declaration order.
func (s *Schema) Fingerprint() uint64 {
	d := xxhash.New()
	var buf []byte
	for _, f := range s.fields {
		buf = strconv.AppendInt(buf[:0], int64(f.ID), 10)
		buf = append(buf, ':')
		buf = append(buf, f.Name...)
		buf = append(buf, ':')
		buf = append(buf, f.Type.String()...)
		buf = append(buf, ';')
		_, _ = d.Write(buf)
	}
	return d.Sum64()
}

// Serialize encodes data with default Options.
func (s *Schema) Serialize(data any) (string, error) {
	d, err := New(s, Options{})
	if err != nil {
		return "", err
	}
	return d.Serialize(data)
}

func (s *Schema) clone() *Schema {
	c := NewSchema()
	for _, f := range s.fields {
		cp := *f
		cp.Default = cloneValue(f.Default)
		c.fields = append(c.fields, &cp)
		c.byID[cp.ID] = &cp
		c.byName[cp.Name] = &cp
	}
	return c
}
