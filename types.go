package structdef

import "fmt"

// FieldType is the declared type of a schema field. Array types follow their
// element type so that t|arrayBit is always the array form.
type FieldType uint8

const (
	TypeInt32 FieldType = iota
	TypeInt53
	TypeDouble
	TypeBool
	TypeString
	TypeCFrame
	TypeVector3
	numElemTypes
)

const arrayBit FieldType = 0x08

const (
	TypeInt32Array   = TypeInt32 | arrayBit
	TypeInt53Array   = TypeInt53 | arrayBit
	TypeDoubleArray  = TypeDouble | arrayBit
	TypeBoolArray    = TypeBool | arrayBit
	TypeStringArray  = TypeString | arrayBit
	TypeCFrameArray  = TypeCFrame | arrayBit
	TypeVector3Array = TypeVector3 | arrayBit
)

// MaxInt53 is the largest integer a double holds exactly together with all
// its neighbours.
const MaxInt53 = 1<<53 - 1

var elemNames = [numElemTypes]string{
	TypeInt32:   "int32",
	TypeInt53:   "int53",
	TypeDouble:  "double",
	TypeBool:    "bool",
	TypeString:  "string",
	TypeCFrame:  "CFrame",
	TypeVector3: "Vector3",
}

var typesByName = func() map[string]FieldType {
	m := make(map[string]FieldType, 2*numElemTypes)
	for i, n := range elemNames {
		m[n] = FieldType(i)
		m[n+"[]"] = FieldType(i) | arrayBit
	}
	return m
}()

// ParseFieldType maps a type tag such as "int32" or "Vector3[]".
func ParseFieldType(s string) (FieldType, error) {
	t, ok := typesByName[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFieldType, s)
	}
	return t, nil
}

func (t FieldType) Valid() bool {
	return t&^arrayBit < numElemTypes
}

func (t FieldType) IsArray() bool { return t&arrayBit != 0 }

// Elem strips the array form.
func (t FieldType) Elem() FieldType { return t &^ arrayBit }

func (t FieldType) ArrayOf() FieldType { return t | arrayBit }

// Float reports whether the type stores floats and honours SinglePrecision.
func (t FieldType) Float() bool {
	switch t.Elem() {
	case TypeDouble, TypeCFrame, TypeVector3:
		return true
	}
	return false
}

func (t FieldType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("FieldType(%d)", uint8(t))
	}
	if t.IsArray() {
		return elemNames[t.Elem()] + "[]"
	}
	return elemNames[t]
}

func (t FieldType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFieldType, uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *FieldType) UnmarshalText(b []byte) error {
	v, err := ParseFieldType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
