package structdef

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/structdef/pkg/geom"
)

func TestSchemaChaining(t *testing.T) {
	s := NewSchema().
		Field(3, "c", TypeBool).
		Field(1, "a", TypeInt32).
		Field(2, "b", TypeString)
	require.NoError(t, s.Err())
	require.Equal(t, 3, s.Len())

	ids := []int{}
	for _, f := range s.Fields() {
		ids = append(ids, f.ID)
	}
	require.Equal(t, []int{1, 2, 3}, ids)

	f, ok := s.Lookup("b")
	require.True(t, ok)
	require.Equal(t, TypeString, f.Type)
	f, ok = s.LookupID(3)
	require.True(t, ok)
	require.Equal(t, "c", f.Name)
	_, ok = s.Lookup("missing")
	require.False(t, ok)
}

func TestSchemaErrorsCollected(t *testing.T) {
	s := NewSchema().
		Field(1, "a", TypeInt32).
		Field(1, "b", TypeInt32).                         // duplicate id
		Field(2, "a", TypeInt32).                         // duplicate name
		Field(0, "zero", TypeInt32).                      // id out of range
		Field(MaxFieldID+1, "big", TypeInt32).            // id out of range
		Field(3, "", TypeInt32).                          // empty name
		Field(4, "bad", FieldType(42)).                   // unknown type
		Field(5, "single", TypeInt32, SinglePrecision()). // not a float
		Field(6, "maxlen", TypeBool, MaxLen(3)).          // not a string or array
		Field(7, "req", TypeString, Required(), Deprecated()).
		Field(8, "def", TypeInt32, WithDefault("nope")).
		Field(9, "ok", TypeString)

	err := s.Err()
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 10)

	require.ErrorIs(t, err, ErrDuplicateID)
	require.ErrorIs(t, err, ErrDuplicateName)
	require.ErrorIs(t, err, ErrInvalidID)
	require.ErrorIs(t, err, ErrEmptyName)
	require.ErrorIs(t, err, ErrUnknownFieldType)
	require.ErrorIs(t, err, ErrInvalidOption)
	require.ErrorIs(t, err, ErrTypeMismatch)

	// valid fields still registered
	require.Equal(t, 2, s.Len())

	_, err = New(s, Options{})
	require.Error(t, err)
	_, err = s.Serialize(map[string]any{})
	require.Error(t, err)
}

func TestSchemaDefaultsNormalized(t *testing.T) {
	s := NewSchema().
		Field(1, "n", TypeInt53, WithDefault(5)).
		Field(2, "v", TypeVector3, WithDefault([]float64{1, 2, 3})).
		Field(3, "tags", TypeStringArray, WithDefault([]any{"x"}), MaxLen(1)).
		Field(4, "long", TypeString, WithDefault("abc"), MaxLen(2))
	require.ErrorIs(t, s.Err(), ErrTooLong)

	f, _ := s.Lookup("n")
	require.Equal(t, int64(5), f.Default)
	f, _ = s.Lookup("v")
	require.Equal(t, geom.NewVector3(1, 2, 3), f.Default)
	f, _ = s.Lookup("tags")
	require.Equal(t, []string{"x"}, f.Default)
}

func TestFingerprint(t *testing.T) {
	a := NewSchema().Field(1, "a", TypeInt32).Field(2, "b", TypeString)
	b := NewSchema().Field(2, "b", TypeString).Field(1, "a", TypeInt32, WithDefault(3))
	require.Equal(t, a.Fingerprint(), b.Fingerprint())

	c := NewSchema().Field(1, "a", TypeInt53).Field(2, "b", TypeString)
	require.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	d := NewSchema().Field(1, "a", TypeInt32).Field(2, "c", TypeString)
	require.NotEqual(t, a.Fingerprint(), d.Fingerprint())
}

func TestStructDefSnapshotsSchema(t *testing.T) {
	s := NewSchema().Field(1, "a", TypeInt32)
	def, err := New(s, Options{})
	require.NoError(t, err)

	s.Field(2, "b", TypeInt32)
	require.Equal(t, 1, def.Schema().Len())

	def.Schema().Field(3, "c", TypeInt32)
	require.Equal(t, 1, def.Schema().Len())
}

func TestSchemaDefaultsNotShared(t *testing.T) {
	s := NewSchema().Field(1, "xs", TypeInt32Array, WithDefault([]int{1, 2}))
	require.NoError(t, s.Err())

	f, _ := s.Lookup("xs")
	f.Default.([]int32)[0] = 9
	f, _ = s.LookupID(1)
	f.Default.([]int32)[1] = 9
	s.Fields()[0].Default.([]int32)[0] = 9

	f, _ = s.Lookup("xs")
	require.Equal(t, []int32{1, 2}, f.Default)
}
