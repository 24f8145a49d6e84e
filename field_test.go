package pvdata

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_interning(t *testing.T) {
	reg := NewRegistry()
	assert.Same(t, reg.Scalar(TInt), reg.Scalar(TInt))
	assert.NotSame(t, reg.Scalar(TInt), reg.Scalar(TUInt))
	assert.Same(t, reg.ScalarArray(TDouble), reg.ScalarArray(TDouble))

	s1 := reg.MustStructure([]string{"a", "b"}, []Field{reg.Scalar(TInt), reg.Scalar(TString)})
	s2 := reg.MustStructure([]string{"a", "b"}, []Field{reg.Scalar(TInt), reg.Scalar(TString)})
	assert.Same(t, s1, s2)

	s3 := reg.MustStructure([]string{"b", "a"}, []Field{reg.Scalar(TString), reg.Scalar(TInt)})
	assert.NotSame(t, s1, s3)
	assert.False(t, Equal(s1, s3))
}

func TestEqual_acrossRegistries(t *testing.T) {
	r1, r2 := NewRegistry(), NewRegistry()
	a := r1.MustStructure([]string{"x"}, []Field{r1.Scalar(TDouble)})
	b := r2.MustStructure([]string{"x"}, []Field{r2.Scalar(TDouble)})
	assert.NotSame(t, a, b)
	assert.True(t, Equal(a, b))
	assert.Equal(t, a.Hash(), b.Hash())

	c, err := r2.StructureID("point", []string{"x"}, []Field{r2.Scalar(TDouble)})
	require.NoError(t, err)
	assert.False(t, Equal(a, c))

	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(a, nil))
}

func TestField_IDs(t *testing.T) {
	reg := NewRegistry()
	bs, err := reg.BoundedString(10)
	require.NoError(t, err)
	bounded, err := reg.BoundedScalarArray(TShort, 4)
	require.NoError(t, err)
	fixed, err := reg.FixedScalarArray(TUByte, 16)
	require.NoError(t, err)
	s := reg.MustStructure([]string{"v"}, []Field{reg.Scalar(TInt)})

	tests := []struct {
		f    Field
		want string
	}{
		{reg.Scalar(TBoolean), "boolean"},
		{reg.Scalar(TULong), "ulong"},
		{bs, "string(10)"},
		{reg.ScalarArray(TFloat), "float[]"},
		{bounded, "short<4>"},
		{fixed, "ubyte[16]"},
		{s, "structure"},
		{reg.StructureArray(s), "structure[]"},
		{reg.VariantUnion(), "any"},
		{reg.VariantUnionArray(), "any[]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.f.ID())
	}
}

func TestRegistry_validation(t *testing.T) {
	reg := NewRegistry()
	i := reg.Scalar(TInt)

	_, err := reg.Structure([]string{"a", "a"}, []Field{i, i})
	assert.ErrorIs(t, err, ErrInvalidSchema)

	_, err = reg.Structure([]string{"a", ""}, []Field{i, i})
	assert.ErrorIs(t, err, ErrInvalidSchema)

	_, err = reg.Structure([]string{"a"}, []Field{i, i})
	assert.ErrorIs(t, err, ErrInvalidSchema)

	_, err = reg.Structure([]string{"a"}, []Field{nil})
	assert.ErrorIs(t, err, ErrInvalidSchema)

	_, err = reg.StructureID("", []string{"a"}, []Field{i})
	assert.ErrorIs(t, err, ErrInvalidSchema)

	_, err = reg.Union(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidSchema)

	_, err = reg.BoundedString(0)
	assert.ErrorIs(t, err, ErrInvalidSchema)

	_, err = reg.FixedScalarArray(TInt, -1)
	assert.ErrorIs(t, err, ErrInvalidSchema)

	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "int[...]", se.ID)

	bad := ScalarType(42)
	_, err = reg.BoundedScalarArray(bad, 2)
	assert.ErrorIs(t, err, ErrInvalidSchema)
	_, err = reg.FixedScalarArray(bad, 2)
	assert.ErrorIs(t, err, ErrInvalidSchema)
	_, err = reg.Builder().Add("x", bad).CreateStructure()
	assert.ErrorIs(t, err, ErrInvalidSchema)
	assert.Panics(t, func() { reg.Scalar(bad) })
	assert.Panics(t, func() { reg.ScalarArray(bad) })
}

func TestUnion_variant(t *testing.T) {
	reg := NewRegistry()
	v := reg.VariantUnion()
	assert.True(t, v.IsVariant())
	assert.Equal(t, 0, v.NumFields())
	assert.Same(t, v, reg.VariantUnionArray().ElementField())

	u := reg.MustUnion([]string{"i", "s"}, []Field{reg.Scalar(TInt), reg.Scalar(TString)})
	assert.False(t, u.IsVariant())
	assert.Equal(t, 1, u.FieldIndex("s"))
	assert.Equal(t, -1, u.FieldIndex("x"))
}

func TestStructure_Lookup(t *testing.T) {
	reg := NewRegistry()
	s, err := reg.Builder().
		Add("value", TDouble).
		AddNestedStructure("alarm").
		Add("severity", TInt).
		AddNestedStructure("detail").
		Add("message", TString).
		EndNested().
		EndNested().
		CreateStructure()
	require.NoError(t, err)

	assert.Same(t, reg.Scalar(TDouble), s.Lookup("value"))
	assert.Same(t, reg.Scalar(TString), s.Lookup("alarm.detail.message"))
	assert.Nil(t, s.Lookup("alarm.nope"))
	assert.Nil(t, s.Lookup("value.x"))
	assert.Equal(t, []string{"value", "alarm"}, s.FieldNames())
}

func TestFieldBuilder(t *testing.T) {
	reg := NewRegistry()
	s, err := reg.Builder().
		SetID("sample_t").
		Add("count", TLong).
		AddBoundedString("name", 8).
		AddArray("data", TDouble).
		AddFixedArray("matrix", TFloat, 9).
		AddNestedUnion("payload").
		Add("i", TInt).
		Add("s", TString).
		EndNested().
		AddNestedStructureArray("rows").
		Add("k", TString).
		EndNested().
		AddNestedUnionArray("anys").
		SetID(AnyID).
		EndNested().
		CreateStructure()
	require.NoError(t, err)

	assert.Equal(t, "sample_t", s.ID())
	assert.Equal(t, 7, s.NumFields())
	assert.Equal(t, 8, s.Field("name").(*Scalar).MaxLength())
	assert.Equal(t, Fixed, s.Field("matrix").(*ScalarArray).SizeType())
	assert.Equal(t, KindUnion, s.Field("payload").Kind())
	assert.Equal(t, KindStructureArray, s.Field("rows").Kind())
	assert.True(t, s.Field("anys").(*UnionArray).IsVariant())

	assert.Equal(t, "sample_t\n"+
		"    long count\n"+
		"    string(8) name\n"+
		"    double[] data\n"+
		"    float[9] matrix\n"+
		"    union payload\n"+
		"        int i\n"+
		"        string s\n"+
		"    structure[] rows\n"+
		"        string k\n"+
		"    any[] anys", s.String())
}

func TestFieldBuilder_errors(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Builder().Add("a", TInt).Add("a", TInt).CreateStructure()
	assert.ErrorIs(t, err, ErrInvalidSchema)

	_, err = reg.Builder().AddNestedStructure("x").Add("a", TInt).CreateStructure()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = reg.Builder().EndNested().CreateStructure()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = reg.Builder().AddBoundedString("s", -3).Add("ok", TInt).CreateStructure()
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestRegistry_AppendRemoveField(t *testing.T) {
	reg := NewRegistry()
	s := reg.MustStructure([]string{"a"}, []Field{reg.Scalar(TInt)})

	s2, err := reg.AppendField(s, "b", reg.Scalar(TString))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, s.FieldNames())
	assert.Equal(t, []string{"a", "b"}, s2.FieldNames())

	s3, err := reg.RemoveField(s2, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, s3.FieldNames())

	_, err = reg.RemoveField(s3, "zzz")
	assert.ErrorIs(t, err, ErrFieldNotFound)

	_, err = reg.AppendField(s, "a", reg.Scalar(TInt))
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestParseScalarType(t *testing.T) {
	for st := TBoolean; st <= TString; st++ {
		got, err := ParseScalarType(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}
	_, err := ParseScalarType("int64")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestScalarType_predicates(t *testing.T) {
	assert.True(t, TLong.IsInteger())
	assert.False(t, TULong.IsInteger())
	assert.True(t, TULong.IsUInteger())
	assert.True(t, TFloat.IsNumeric())
	assert.False(t, TBoolean.IsNumeric())
	assert.True(t, TBoolean.IsPrimitive())
	assert.False(t, TString.IsPrimitive())
	assert.Equal(t, 8, TDouble.Size())
	assert.Equal(t, 0, TString.Size())
}
