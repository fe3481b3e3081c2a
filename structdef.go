// Package structdef serializes records described by a numbered, typed
// Schema into compact strings and back.
//
//	schema := structdef.NewSchema().
//		Field(1, "name", structdef.TypeString, structdef.Required()).
//		Field(2, "spawn", structdef.TypeCFrame).
//		Field(3, "scores", structdef.TypeInt53Array)
//	def, err := structdef.New(schema, structdef.Options{})
//	s, err := def.Serialize(map[string]any{"name": "ada", "scores": []int{1, 2}})
//	rec, err := def.Deserialize(s)
//
// Field ids, not names or order, identify data on the wire: fields can be
// added, deprecated or widened (int32 to int53 to double) without breaking
// stored content.
package structdef

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// DefaultCompressThreshold is the body size above which frames are zstd
// compressed when Options.CompressThreshold is zero.
const DefaultCompressThreshold = 256

type Options struct {
	Encoding TextEncoding
	// CompressThreshold: 0 means DefaultCompressThreshold, negative disables
	// frame compression.
	CompressThreshold int
	// Strict rejects unknown input fields and content written by a schema
	// with a different fingerprint.
	Strict          bool
	OmitFingerprint bool
	// UnsafeStrings makes decoded strings share memory with the decoded
	// content instead of copying each one.
	UnsafeStrings bool
}

// Record is one decoded entry keyed by field name. Values use the canonical
// Go type of their field (int32, int64, float64, bool, string, geom.CFrame,
// geom.Vector3 or slices of those).
type Record map[string]any

func (r Record) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// StructDef binds a schema snapshot to encoding options. It is safe for
// concurrent use.
type StructDef struct {
	schema      *Schema
	opts        Options
	fingerprint uint64
	mu          sync.RWMutex
	plans       map[reflect.Type]*structPlan
}

// New snapshots schema; later Field calls on it do not affect the result.
func New(schema *Schema, opts Options) (*StructDef, error) {
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	switch opts.Encoding {
	case Base64, Base85, Raw:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, int(opts.Encoding))
	}
	if opts.CompressThreshold == 0 {
		opts.CompressThreshold = DefaultCompressThreshold
	}
	s := schema.clone()
	return &StructDef{
		schema:      s,
		opts:        opts,
		fingerprint: s.Fingerprint(),
		plans:       make(map[reflect.Type]*structPlan),
	}, nil
}

// Schema returns a copy of the bound schema.
func (d *StructDef) Schema() *Schema { return d.schema.clone() }

func (d *StructDef) Options() Options { return d.opts }

func (d *StructDef) writer() frameWriter {
	return frameWriter{
		fingerprint: d.fingerprint,
		withFP:      !d.opts.OmitFingerprint,
		threshold:   d.opts.CompressThreshold,
	}
}

// Serialize encodes one record. data is a Record, a map with string keys, or
// a struct (or pointer to one).
func (d *StructDef) Serialize(data any) (string, error) {
	body, err := d.appendItem(nil, data)
	if err != nil {
		return "", err
	}
	frame, err := d.writer().append(nil, body, 1)
	if err != nil {
		return "", err
	}
	return d.opts.Encoding.encode(frame), nil
}

// SerializeAll encodes every element of the slice items into one frame.
func (d *StructDef) SerializeAll(items any) (string, error) {
	v := reflect.ValueOf(items)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return "", fmt.Errorf("%w: SerializeAll needs a slice, got %T", ErrUnsupported, items)
	}
	var (
		body []byte
		err  error
	)
	for i := 0; i < v.Len(); i++ {
		if body, err = d.appendItem(body, v.Index(i).Interface()); err != nil {
			return "", fmt.Errorf("item %d: %w", i, err)
		}
	}
	frame, err := d.writer().append(nil, body, v.Len())
	if err != nil {
		return "", err
	}
	return d.opts.Encoding.encode(frame), nil
}

func (d *StructDef) appendItem(buf []byte, data any) ([]byte, error) {
	raw, err := d.fieldsOf(data)
	if err != nil {
		return nil, err
	}
	values := make([]fieldValue, 0, len(d.schema.fields))
	for _, f := range d.schema.fields {
		if f.Deprecated {
			continue
		}
		in, ok := raw[f]
		if !ok || absent(in) {
			switch {
			case f.Default != nil:
				values = append(values, fieldValue{f: f, v: f.Default})
			case f.Required:
				return nil, fmt.Errorf("%w: %q", ErrMissingField, f.Name)
			}
			continue
		}
		v, err := normalize(f.Type, in)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		if f.MaxLen > 0 && length(f.Type, v) > f.MaxLen {
			return nil, fmt.Errorf("field %q: %w (%d > %d)", f.Name, ErrTooLong, length(f.Type, v), f.MaxLen)
		}
		values = append(values, fieldValue{f: f, v: v})
	}
	return appendRecord(buf, values)
}

// Append joins serialized content so that DeserializeAll returns the records
// of both.
func (d *StructDef) Append(content, frame string) string {
	if content == "" {
		return frame
	}
	if frame == "" {
		return content
	}
	sep := d.opts.Encoding.separator()
	if sep != "" && strings.HasSuffix(content, sep) {
		sep = ""
	}
	return content + sep + frame
}

// Separator is placed between frames by Append.
func (d *StructDef) Separator() string { return d.opts.Encoding.separator() }

// frames walks every frame in content, calling fn with its decoded body.
// fn returns false to stop.
func (d *StructDef) frames(content string, fn func(FrameInfo, []byte) (bool, error)) error {
	for _, chunk := range d.opts.Encoding.chunks(content) {
		b, err := d.opts.Encoding.decode(chunk)
		if err != nil {
			return err
		}
		for len(b) > 0 {
			info, body, n, err := parseFrame(b)
			if err != nil {
				return err
			}
			if d.opts.Strict && info.HasFingerprint && info.Fingerprint != d.fingerprint {
				return fmt.Errorf("%w: content %016x, schema %016x", ErrSchemaMismatch, info.Fingerprint, d.fingerprint)
			}
			more, err := fn(info, body)
			if err != nil || !more {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// Deserialize returns the first record in content. The frame holding it is
// decoded and validated in full, so a frame DeserializeAll rejects is
// rejected here too. Frames after it are not read.
func (d *StructDef) Deserialize(content string) (Record, error) {
	var rec Record
	err := d.frames(content, func(info FrameInfo, body []byte) (bool, error) {
		if info.Records == 0 {
			return true, nil
		}
		recs, err := d.decodeFrame(info, body, 0)
		if err != nil {
			return false, err
		}
		rec = recs[0]
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrEmpty
	}
	return rec, nil
}

// DeserializeAll returns every record of every frame in content, in order.
func (d *StructDef) DeserializeAll(content string) ([]Record, error) {
	var out []Record
	err := d.frames(content, func(info FrameInfo, body []byte) (bool, error) {
		recs, err := d.decodeFrame(info, body, len(out))
		if err != nil {
			return false, err
		}
		out = append(out, recs...)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// decodeFrame decodes the records of one frame body. base numbers the first
// record in errors.
func (d *StructDef) decodeFrame(info FrameInfo, body []byte, base int) ([]Record, error) {
	r := &reader{b: body, unsafeStrings: d.opts.UnsafeStrings}
	out := make([]Record, 0, min(info.Records, len(body)))
	for i := 0; i < info.Records; i++ {
		rec, err := d.decodeRecord(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", base+i, err)
		}
		out = append(out, rec)
	}
	if r.remaining() != 0 {
		return nil, r.malformed("trailing bytes after records", nil)
	}
	return out, nil
}

func (d *StructDef) decodeRecord(r *reader) (Record, error) {
	n, err := r.count(1)
	if err != nil {
		return nil, err
	}
	rec := make(Record, len(d.schema.fields))
	for i := 0; i < n; i++ {
		id, wt, v, err := r.field()
		if err != nil {
			return nil, err
		}
		f, ok := d.schema.byID[id]
		if !ok || f.Deprecated {
			continue
		}
		if v, err = widen(wt, f.Type, v); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		rec[f.Name] = v
	}
	for _, f := range d.schema.fields {
		if f.Deprecated || rec.Has(f.Name) {
			continue
		}
		switch {
		case f.Default != nil:
			rec[f.Name] = cloneValue(f.Default)
		case f.Required:
			return nil, fmt.Errorf("%w: %q", ErrMissingField, f.Name)
		}
	}
	return rec, nil
}

// Unmarshal decodes the first record of content into out, a pointer to a
// struct or map. Struct fields match by `structdef` tag or by name.
func (d *StructDef) Unmarshal(content string, out any) error {
	rec, err := d.Deserialize(content)
	if err != nil {
		return err
	}
	return decodeInto(map[string]any(rec), out)
}

// UnmarshalAll decodes every record of content into out, a pointer to a slice.
func (d *StructDef) UnmarshalAll(content string, out any) error {
	recs, err := d.DeserializeAll(content)
	if err != nil {
		return err
	}
	items := make([]map[string]any, len(recs))
	for i, r := range recs {
		items[i] = r
	}
	return decodeInto(items, out)
}

func decodeInto(in, out any) error {
	if v := reflect.ValueOf(out); v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("%w: got %T", ErrNotStructPtr, out)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: TagName,
		Result:  out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// Inspect reports the header of every frame in content without decoding
// records.
func (d *StructDef) Inspect(content string) ([]FrameInfo, error) {
	var out []FrameInfo
	err := d.frames(content, func(info FrameInfo, _ []byte) (bool, error) {
		out = append(out, info)
		return true, nil
	})
	return out, err
}
