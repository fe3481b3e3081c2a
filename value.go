package structdef

import (
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/ccoveille/go-safecast/v2"

	"github.com/rawbytedev/structdef/pkg/geom"
)

// absent reports whether v carries no value at all.
func absent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// normalize converts v into the canonical Go value for t.
func normalize(t FieldType, v any) (any, error) {
	if t.IsArray() {
		return normalizeArray(t.Elem(), v)
	}
	return normalizeElem(t, v)
}

func mismatch(t FieldType, v any) error {
	return fmt.Errorf("%w: %T is not %s", ErrTypeMismatch, v, t)
}

func normalizeElem(t FieldType, v any) (any, error) {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && !rv.IsNil() {
		v = rv.Elem().Interface()
	}
	switch t {
	case TypeInt32:
		i, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		n, err := safecast.Convert[int32](i)
		if err != nil {
			return nil, fmt.Errorf("%w: %d does not fit int32", ErrOutOfRange, i)
		}
		return n, nil
	case TypeInt53:
		i, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		if i > MaxInt53 || i < -MaxInt53 {
			return nil, fmt.Errorf("%w: %d does not fit int53", ErrOutOfRange, i)
		}
		return i, nil
	case TypeDouble:
		return toFloat64(v)
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch(t, v)
		}
		return b, nil
	case TypeString:
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		}
		return nil, mismatch(t, v)
	case TypeVector3:
		return toVector3(v)
	case TypeCFrame:
		return toCFrame(v)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFieldType, t)
}

func toInt64(v any) (int64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		i, err := safecast.Convert[int64](rv.Uint())
		if err != nil {
			return 0, fmt.Errorf("%w: %d", ErrOutOfRange, rv.Uint())
		}
		return i, nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrTypeMismatch, f)
		}
		if f >= math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("%w: %v", ErrOutOfRange, f)
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("%w: %T is not an integer", ErrTypeMismatch, v)
}

func toFloat64(v any) (float64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return 0, fmt.Errorf("%w: %T is not a number", ErrTypeMismatch, v)
}

// floats reads a slice or array of numbers.
func floats(v any) ([]float64, bool) {
	if fs, ok := v.([]float64); ok {
		return fs, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]float64, rv.Len())
	for i := range out {
		f, err := toFloat64(rv.Index(i).Interface())
		if err != nil {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// cloneValue copies the backing array of slice values so callers can't
// write through to a shared default.
func cloneValue(v any) any {
	switch x := v.(type) {
	case []int32:
		return slices.Clone(x)
	case []int64:
		return slices.Clone(x)
	case []float64:
		return slices.Clone(x)
	case []bool:
		return slices.Clone(x)
	case []string:
		return slices.Clone(x)
	case []geom.Vector3:
		return slices.Clone(x)
	case []geom.CFrame:
		return slices.Clone(x)
	}
	return v
}

func toVector3(v any) (geom.Vector3, error) {
	switch x := v.(type) {
	case geom.Vector3:
		return x, nil
	case map[string]any:
		var comps [3]float64
		for i, name := range [3]string{"x", "y", "z"} {
			c, ok := x[name]
			if !ok {
				return geom.Vector3{}, fmt.Errorf("%w: Vector3 missing %q", ErrTypeMismatch, name)
			}
			f, err := toFloat64(c)
			if err != nil {
				return geom.Vector3{}, err
			}
			comps[i] = f
		}
		return geom.NewVector3(comps[0], comps[1], comps[2]), nil
	}
	if fs, ok := floats(v); ok && len(fs) == 3 {
		return geom.NewVector3(fs[0], fs[1], fs[2]), nil
	}
	return geom.Vector3{}, mismatch(TypeVector3, v)
}

func toCFrame(v any) (geom.CFrame, error) {
	switch x := v.(type) {
	case geom.CFrame:
		return x, nil
	case geom.Vector3:
		return geom.NewCFrame(x.X, x.Y, x.Z), nil
	case map[string]any:
		for k := range x {
			if k != "position" && k != "rotation" {
				return geom.CFrame{}, fmt.Errorf("%w: CFrame has no key %q", ErrTypeMismatch, k)
			}
		}
		cf := geom.Identity()
		if p, ok := x["position"]; ok {
			pos, err := toVector3(p)
			if err != nil {
				return geom.CFrame{}, err
			}
			cf.Position = pos
		}
		if r, ok := x["rotation"]; ok {
			fs, ok := floats(r)
			if !ok || len(fs) != 9 {
				return geom.CFrame{}, fmt.Errorf("%w: CFrame rotation needs 9 numbers", ErrTypeMismatch)
			}
			copy(cf.Rotation[:], fs)
		}
		return cf, nil
	}
	if fs, ok := floats(v); ok {
		cf, err := geom.FromComponents(fs...)
		if err != nil {
			return geom.CFrame{}, fmt.Errorf("%w: %w", ErrTypeMismatch, err)
		}
		return cf, nil
	}
	return geom.CFrame{}, mismatch(TypeCFrame, v)
}

func normalizeArray(elem FieldType, v any) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, mismatch(elem.ArrayOf(), v)
	}
	switch elem {
	case TypeInt32:
		return collect[int32](rv, elem)
	case TypeInt53:
		return collect[int64](rv, elem)
	case TypeDouble:
		return collect[float64](rv, elem)
	case TypeBool:
		return collect[bool](rv, elem)
	case TypeString:
		return collect[string](rv, elem)
	case TypeCFrame:
		return collect[geom.CFrame](rv, elem)
	case TypeVector3:
		return collect[geom.Vector3](rv, elem)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFieldType, elem.ArrayOf())
}

func collect[T any](rv reflect.Value, elem FieldType) ([]T, error) {
	out := make([]T, rv.Len())
	for i := range out {
		x, err := normalizeElem(elem, rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = x.(T)
	}
	return out, nil
}

// length is what MaxLen limits: bytes for strings, elements for arrays.
func length(t FieldType, v any) int {
	if t == TypeString {
		return len(v.(string))
	}
	if t.IsArray() {
		return reflect.ValueOf(v).Len()
	}
	return 0
}

// widen converts a decoded wire value of type from into the schema type to.
func widen(from, to FieldType, v any) (any, error) {
	if from == to {
		return v, nil
	}
	if from.IsArray() != to.IsArray() {
		return nil, fmt.Errorf("%w: wire %s, schema %s", ErrTypeMismatch, from, to)
	}
	if !from.IsArray() {
		return widenElem(from, to, v)
	}
	rv := reflect.ValueOf(v)
	items := make([]any, rv.Len())
	for i := range items {
		x, err := widenElem(from.Elem(), to.Elem(), rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		items[i] = x
	}
	return normalizeArray(to.Elem(), items)
}

func widenElem(from, to FieldType, v any) (any, error) {
	switch {
	case from == TypeInt32 && (to == TypeInt53 || to == TypeDouble),
		from == TypeInt53 && (to == TypeInt32 || to == TypeDouble):
		return normalizeElem(to, v)
	}
	return nil, fmt.Errorf("%w: wire %s, schema %s", ErrTypeMismatch, from, to)
}
