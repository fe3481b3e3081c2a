package structdef

import (
	"fmt"
	"unsafe"

	"github.com/rawbytedev/structdef/internal/common"
	"github.com/rawbytedev/structdef/internal/compress"
	"github.com/rawbytedev/structdef/pkg/geom"
)

// Record layout:
//   varint fieldCount
//   per field: varint id | wireType byte | payload
// wireType low nibble is the FieldType, the rest are flags.
const (
	wireTypeMask   byte = 0x0F
	wireSingle     byte = 0x20
	wireCompressed byte = 0x40
	wireKnownBits       = wireTypeMask | wireSingle | wireCompressed
)

// cframe orientation byte: 0 means nine rotation floats follow.
const orientFull = 0

type fieldValue struct {
	f *Field
	v any
}

func appendRecord(buf []byte, values []fieldValue) ([]byte, error) {
	buf = common.WriteVarUint(buf, uint64(len(values)))
	var err error
	for _, fv := range values {
		if buf, err = appendField(buf, fv.f, fv.v); err != nil {
			return nil, fmt.Errorf("field %q: %w", fv.f.Name, err)
		}
	}
	return buf, nil
}

func appendField(buf []byte, f *Field, v any) ([]byte, error) {
	buf = common.WriteVarUint(buf, uint64(f.ID))
	wt := byte(f.Type)
	if f.Single {
		wt |= wireSingle
	}
	if !f.Compressed {
		buf = append(buf, wt)
		return appendValue(buf, f.Type, f.Single, v), nil
	}
	payload := appendValue(nil, f.Type, f.Single, v)
	comp, err := compress.Compress(nil, payload)
	if err != nil {
		return nil, err
	}
	if len(comp)+common.MaxVarintLen >= len(payload) {
		buf = append(buf, wt)
		return append(buf, payload...), nil
	}
	buf = append(buf, wt|wireCompressed)
	buf = common.WriteVarUint(buf, uint64(len(comp)))
	return append(buf, comp...), nil
}

func appendFloat(buf []byte, single bool, f float64) []byte {
	if single {
		return common.WriteFloat32(buf, f)
	}
	return common.WriteFloat64(buf, f)
}

func appendVector3(buf []byte, single bool, v geom.Vector3) []byte {
	buf = appendFloat(buf, single, v.X)
	buf = appendFloat(buf, single, v.Y)
	return appendFloat(buf, single, v.Z)
}

func appendCFrame(buf []byte, single bool, c geom.CFrame) []byte {
	buf = appendVector3(buf, single, c.Position)
	if id, ok := c.OrientationID(); ok {
		return append(buf, byte(id))
	}
	buf = append(buf, orientFull)
	for _, r := range c.Rotation {
		buf = appendFloat(buf, single, r)
	}
	return buf
}

// appendValue expects v in canonical form (see normalize).
func appendValue(buf []byte, t FieldType, single bool, v any) []byte {
	switch t {
	case TypeInt32:
		return common.WriteVarInt(buf, int64(v.(int32)))
	case TypeInt53:
		return common.WriteVarInt(buf, v.(int64))
	case TypeDouble:
		return appendFloat(buf, single, v.(float64))
	case TypeBool:
		if v.(bool) {
			return append(buf, 1)
		}
		return append(buf, 0)
	case TypeString:
		s := v.(string)
		buf = common.WriteVarUint(buf, uint64(len(s)))
		return append(buf, s...)
	case TypeVector3:
		return appendVector3(buf, single, v.(geom.Vector3))
	case TypeCFrame:
		return appendCFrame(buf, single, v.(geom.CFrame))
	case TypeBoolArray:
		bs := v.([]bool)
		buf = common.WriteVarUint(buf, uint64(len(bs)))
		return common.PackBools(buf, bs)
	}
	switch vs := v.(type) {
	case []int32:
		buf = common.WriteVarUint(buf, uint64(len(vs)))
		for _, x := range vs {
			buf = common.WriteVarInt(buf, int64(x))
		}
	case []int64:
		buf = common.WriteVarUint(buf, uint64(len(vs)))
		for _, x := range vs {
			buf = common.WriteVarInt(buf, x)
		}
	case []float64:
		buf = common.WriteVarUint(buf, uint64(len(vs)))
		for _, x := range vs {
			buf = appendFloat(buf, single, x)
		}
	case []string:
		buf = common.WriteVarUint(buf, uint64(len(vs)))
		for _, s := range vs {
			buf = common.WriteVarUint(buf, uint64(len(s)))
			buf = append(buf, s...)
		}
	case []geom.Vector3:
		buf = common.WriteVarUint(buf, uint64(len(vs)))
		for _, x := range vs {
			buf = appendVector3(buf, single, x)
		}
	case []geom.CFrame:
		buf = common.WriteVarUint(buf, uint64(len(vs)))
		for _, x := range vs {
			buf = appendCFrame(buf, single, x)
		}
	default:
		panic(fmt.Sprintf("structdef: %T is not canonical for %s", v, t))
	}
	return buf
}

// reader walks a decoded body. Every read is bounds checked.
type reader struct {
	b             []byte
	pos           int
	unsafeStrings bool
}

func (r *reader) remaining() int { return len(r.b) - r.pos }

func (r *reader) malformed(what string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s at offset %d: %w", ErrMalformed, what, r.pos, err)
	}
	return fmt.Errorf("%w: %s at offset %d", ErrMalformed, what, r.pos)
}

func (r *reader) uvarint() (uint64, error) {
	x, n, err := common.ReadVarUint(r.b[r.pos:])
	if err != nil {
		return 0, r.malformed("varint", err)
	}
	r.pos += n
	return x, nil
}

func (r *reader) varint() (int64, error) {
	x, n, err := common.ReadVarInt(r.b[r.pos:])
	if err != nil {
		return 0, r.malformed("varint", err)
	}
	r.pos += n
	return x, nil
}

func (r *reader) u8() (byte, error) {
	if r.remaining() < 1 {
		return 0, r.malformed("byte", common.ErrShortBuffer)
	}
	c := r.b[r.pos]
	r.pos++
	return c, nil
}

func (r *reader) next(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, r.malformed("payload", common.ErrShortBuffer)
	}
	p := r.b[r.pos : r.pos+n]
	r.pos += n
	return p, nil
}

// count reads a length prefix of items packed perByte to a byte (bool
// arrays) or one byte each.
func (r *reader) count(perByte int) (int, error) {
	x, err := r.uvarint()
	if err != nil {
		return 0, err
	}
	if x > uint64(r.remaining())*uint64(perByte) {
		return 0, r.malformed("length prefix", nil)
	}
	return int(x), nil
}

// sized reads a length prefix of items taking at least minSize bytes each.
// The count can never exceed what the remaining input holds.
func (r *reader) sized(minSize int) (int, error) {
	x, err := r.uvarint()
	if err != nil {
		return 0, err
	}
	if x > uint64(r.remaining())/uint64(minSize) {
		return 0, r.malformed("length prefix", nil)
	}
	return int(x), nil
}

// minWireSize is the fewest bytes one value of the element type t takes.
func minWireSize(t FieldType, single bool) int {
	f := 8
	if single {
		f = 4
	}
	switch t {
	case TypeDouble:
		return f
	case TypeVector3:
		return 3 * f
	case TypeCFrame:
		return 3*f + 1
	}
	return 1
}

func (r *reader) float(single bool) (float64, error) {
	var (
		f   float64
		err error
	)
	if single {
		f, err = common.ReadFloat32(r.b[r.pos:])
		r.pos += 4
	} else {
		f, err = common.ReadFloat64(r.b[r.pos:])
		r.pos += 8
	}
	if err != nil {
		return 0, r.malformed("float", err)
	}
	return f, nil
}

func (r *reader) str() (string, error) {
	n, err := r.count(1)
	if err != nil {
		return "", err
	}
	p, err := r.next(n)
	if err != nil {
		return "", err
	}
	if r.unsafeStrings && n > 0 {
		return unsafe.String(&p[0], n), nil
	}
	return string(p), nil
}

func (r *reader) vector3(single bool) (geom.Vector3, error) {
	var comps [3]float64
	for i := range comps {
		f, err := r.float(single)
		if err != nil {
			return geom.Vector3{}, err
		}
		comps[i] = f
	}
	return geom.NewVector3(comps[0], comps[1], comps[2]), nil
}

func (r *reader) cframe(single bool) (geom.CFrame, error) {
	pos, err := r.vector3(single)
	if err != nil {
		return geom.CFrame{}, err
	}
	id, err := r.u8()
	if err != nil {
		return geom.CFrame{}, err
	}
	if id != orientFull {
		cf, ok := geom.FromOrientationID(int(id), pos)
		if !ok {
			return geom.CFrame{}, r.malformed(fmt.Sprintf("orientation id %d", id), nil)
		}
		return cf, nil
	}
	cf := geom.CFrame{Position: pos}
	for i := range cf.Rotation {
		if cf.Rotation[i], err = r.float(single); err != nil {
			return geom.CFrame{}, err
		}
	}
	return cf, nil
}

func (r *reader) value(t FieldType, single bool) (any, error) {
	switch t {
	case TypeInt32:
		x, err := r.varint()
		if err != nil {
			return nil, err
		}
		if x != int64(int32(x)) {
			return nil, r.malformed("int32 overflow", nil)
		}
		return int32(x), nil
	case TypeInt53:
		x, err := r.varint()
		if err != nil {
			return nil, err
		}
		if x > MaxInt53 || x < -MaxInt53 {
			return nil, r.malformed("int53 overflow", nil)
		}
		return x, nil
	case TypeDouble:
		return r.float(single)
	case TypeBool:
		c, err := r.u8()
		if err != nil {
			return nil, err
		}
		return c != 0, nil
	case TypeString:
		return r.str()
	case TypeVector3:
		return r.vector3(single)
	case TypeCFrame:
		return r.cframe(single)
	case TypeBoolArray:
		n, err := r.count(8)
		if err != nil {
			return nil, err
		}
		bs, used, err := common.UnpackBools(r.b[r.pos:], n)
		if err != nil {
			return nil, r.malformed("bool array", err)
		}
		r.pos += used
		return bs, nil
	case TypeInt32Array:
		return readArray[int32](r, t.Elem(), single)
	case TypeInt53Array:
		return readArray[int64](r, t.Elem(), single)
	case TypeDoubleArray:
		return readArray[float64](r, t.Elem(), single)
	case TypeStringArray:
		return readArray[string](r, t.Elem(), single)
	case TypeVector3Array:
		return readArray[geom.Vector3](r, t.Elem(), single)
	case TypeCFrameArray:
		return readArray[geom.CFrame](r, t.Elem(), single)
	}
	return nil, r.malformed(fmt.Sprintf("wire type %d", uint8(t)), nil)
}

func readArray[T any](r *reader, elem FieldType, single bool) ([]T, error) {
	n, err := r.sized(minWireSize(elem, single))
	if err != nil {
		return nil, err
	}
	out := make([]T, n)
	for i := range out {
		x, err := r.value(elem, single)
		if err != nil {
			return nil, err
		}
		out[i] = x.(T)
	}
	return out, nil
}

// field reads one field header and its payload.
func (r *reader) field() (int, FieldType, any, error) {
	id, err := r.uvarint()
	if err != nil {
		return 0, 0, nil, err
	}
	if id == 0 || id > MaxFieldID {
		return 0, 0, nil, r.malformed(fmt.Sprintf("field id %d", id), nil)
	}
	wt, err := r.u8()
	if err != nil {
		return 0, 0, nil, err
	}
	t := FieldType(wt & wireTypeMask)
	if wt&^wireKnownBits != 0 || !t.Valid() {
		return 0, 0, nil, r.malformed(fmt.Sprintf("wire type %#x", wt), nil)
	}
	single := wt&wireSingle != 0
	if wt&wireCompressed == 0 {
		v, err := r.value(t, single)
		return int(id), t, v, err
	}

	n, err := r.count(1)
	if err != nil {
		return 0, 0, nil, err
	}
	comp, err := r.next(n)
	if err != nil {
		return 0, 0, nil, err
	}
	raw, err := compress.Decompress(nil, comp, 0)
	if err != nil {
		return 0, 0, nil, r.malformed("compressed field", err)
	}
	sub := &reader{b: raw, unsafeStrings: r.unsafeStrings}
	v, err := sub.value(t, single)
	if err != nil {
		return 0, 0, nil, err
	}
	if sub.remaining() != 0 {
		return 0, 0, nil, sub.malformed("trailing bytes in compressed field", nil)
	}
	return int(id), t, v, nil
}
