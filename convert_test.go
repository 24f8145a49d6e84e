package pvdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreyvit/pvdata/bitset"
	"github.com/andreyvit/pvdata/sharedvec"
)

func TestIsCopyCompatible(t *testing.T) {
	reg := NewRegistry()
	i, d, s, b := reg.Scalar(TInt), reg.Scalar(TDouble), reg.Scalar(TString), reg.Scalar(TBoolean)

	assert.True(t, IsCopyCompatible(i, d))
	assert.True(t, IsCopyCompatible(d, s))
	assert.True(t, IsCopyCompatible(s, b))
	assert.True(t, IsCopyCompatible(b, b))
	assert.False(t, IsCopyCompatible(b, i))
	assert.False(t, IsCopyCompatible(i, reg.ScalarArray(TInt)))
	assert.True(t, IsCopyCompatible(reg.ScalarArray(TInt), reg.ScalarArray(TString)))
	assert.False(t, IsCopyCompatible(nil, i))

	s1 := reg.MustStructure([]string{"x", "y"}, []Field{i, s})
	s2 := reg.MustStructure([]string{"x", "y"}, []Field{d, i})
	s3 := reg.MustStructure([]string{"y", "x"}, []Field{s, i})
	assert.True(t, IsCopyCompatible(s1, s2))
	assert.False(t, IsCopyCompatible(s1, s3))
	assert.True(t, IsCopyCompatible(reg.StructureArray(s1), reg.StructureArray(s2)))

	u1 := reg.MustUnion([]string{"a"}, []Field{i})
	assert.False(t, IsCopyCompatible(u1, reg.VariantUnion()))
	assert.True(t, IsCopyCompatible(reg.VariantUnion(), reg.VariantUnion()))
}

func TestCopy_structure(t *testing.T) {
	reg := NewRegistry()
	from := NewPVStructure(reg.MustStructure([]string{"x", "y"}, []Field{reg.Scalar(TInt), reg.Scalar(TString)}))
	to := NewPVStructure(reg.MustStructure([]string{"x", "y"}, []Field{reg.Scalar(TDouble), reg.Scalar(TLong)}))
	require.NoError(t, from.IntField("x").Put(3))
	require.NoError(t, from.StringField("y").Put("42"))

	require.NoError(t, CopyStructure(from, to))
	assert.Equal(t, 3.0, to.DoubleField("x").Get())
	assert.Equal(t, int64(42), to.LongField("y").Get())

	require.NoError(t, from.StringField("y").Put("forty-two"))
	assert.ErrorIs(t, Copy(from, to), ErrInvalidArgument)

	other := NewPVStructure(reg.MustStructure([]string{"z"}, []Field{reg.Scalar(TInt)}))
	assert.ErrorIs(t, Copy(from, other), ErrFieldTypeMismatch)

	to.SetImmutable()
	assert.ErrorIs(t, Copy(from, to), ErrImmutable)
	assert.NoError(t, Copy(to, to))
}

func TestCopyScalarArray_sharesImmutable(t *testing.T) {
	reg := NewRegistry()
	from := NewPVScalarArray[int32](reg.ScalarArray(TInt))
	require.NoError(t, from.Replace(sharedvec.ConstOf[int32](1, 2, 3)))

	to := NewPVScalarArray[int32](reg.ScalarArray(TInt))
	require.NoError(t, CopyScalarArray(from, to))
	assert.Equal(t, []int32{1, 2, 3}, to.View().Values())
	assert.False(t, to.IsImmutable())

	from.SetImmutable()
	to2 := NewPVScalarArray[int32](reg.ScalarArray(TInt))
	require.NoError(t, CopyScalarArray(from, to2))
	assert.True(t, to2.IsImmutable())
	assert.True(t, from.View().SameStorage(to2.View()))

	strs := NewPVScalarArray[string](reg.ScalarArray(TString))
	require.NoError(t, CopyScalarArray(from, strs))
	assert.Equal(t, []string{"1", "2", "3"}, strs.View().Values())
	assert.False(t, strs.IsImmutable())
}

func TestCopyStructureArray_deep(t *testing.T) {
	reg := NewRegistry()
	elem := elementStructure(t, reg)
	from := NewPVStructureArray(reg.StructureArray(elem))
	_, err := from.AppendNew(1)
	require.NoError(t, err)
	_, err = from.Append(1)
	require.NoError(t, err)
	require.NoError(t, from.View().Values()[0].IntField("v").Put(4))

	to := NewPVStructureArray(reg.StructureArray(elem))
	require.NoError(t, CopyStructureArray(from, to))
	assert.True(t, EqualPV(from, to))
	assert.NotSame(t, from.View().Values()[0], to.View().Values()[0])

	require.NoError(t, to.View().Values()[0].IntField("v").Put(5))
	assert.Equal(t, int32(4), from.View().Values()[0].IntField("v").Get())

	from.SetImmutable()
	frozen := NewPVStructureArray(reg.StructureArray(elem))
	require.NoError(t, CopyStructureArray(from, frozen))
	assert.Same(t, from.View().Values()[0], frozen.View().Values()[0])
	assert.True(t, frozen.IsImmutable())
}

func TestCopyUnion(t *testing.T) {
	reg := NewRegistry()
	from := NewPVUnion(sampleUnion(reg))
	to := NewPVUnion(sampleUnion(reg))

	v, err := from.SelectName("i")
	require.NoError(t, err)
	require.NoError(t, v.(*PVInt).Put(9))
	require.NoError(t, CopyUnion(from, to))
	assert.Equal(t, 0, to.Selector())
	assert.Equal(t, int32(9), to.Value().(*PVInt).Get())
	assert.NotSame(t, from.Value(), to.Value())

	_, err = from.Select(Undefined)
	require.NoError(t, err)
	require.NoError(t, CopyUnion(from, to))
	assert.Equal(t, Undefined, to.Selector())
	assert.Nil(t, to.Value())
}

func TestCopyUnion_variant(t *testing.T) {
	reg := NewRegistry()
	from := NewPVUnion(reg.VariantUnion())
	to := NewPVUnion(reg.VariantUnion())

	d := NewPVScalar[float64](reg.Scalar(TDouble))
	require.NoError(t, d.Put(1.25))
	require.NoError(t, from.SetVariant(d))

	require.NoError(t, CopyUnion(from, to))
	existing := to.Value()
	require.NotNil(t, existing)
	assert.NotSame(t, d, existing)
	assert.Equal(t, 1.25, existing.(*PVDouble).Get())

	require.NoError(t, d.Put(2.5))
	require.NoError(t, CopyUnion(from, to))
	assert.Same(t, existing, to.Value())
	assert.Equal(t, 2.5, existing.(*PVDouble).Get())

	require.NoError(t, from.SetVariant(nil))
	require.NoError(t, CopyUnion(from, to))
	assert.Nil(t, to.Value())
}

func TestCopyMasked(t *testing.T) {
	reg := NewRegistry()
	s := sampleStructure(t, reg)
	from := NewPVStructure(s)
	require.NoError(t, from.IntField("a").Put(1))
	require.NoError(t, from.DoubleField("b.c").Put(2))

	to := NewPVStructure(s)
	require.NoError(t, CopyMasked(from, to, bitset.Of(3), false))
	assert.Equal(t, int32(0), to.IntField("a").Get())
	assert.Equal(t, 2.0, to.DoubleField("b.c").Get())

	to = NewPVStructure(s)
	require.NoError(t, CopyMasked(from, to, bitset.Of(0, 2, 3), true))
	assert.Equal(t, int32(1), to.IntField("a").Get())
	assert.Equal(t, 0.0, to.DoubleField("b.c").Get())

	to = NewPVStructure(s)
	require.NoError(t, CopyMasked(from, to, bitset.Of(0, 1, 2, 3), true))
	assert.True(t, EqualPV(to, NewPVStructure(s)))

	to = NewPVStructure(s)
	require.NoError(t, CopyMasked(from, to, bitset.Of(0), false))
	assert.True(t, EqualPV(from, to))
}

func TestStringConversions(t *testing.T) {
	reg := NewRegistry()
	pva := NewPVScalarArray[uint16](reg.ScalarArray(TUShort))
	require.NoError(t, FromStrings(pva, []string{"1", "0x10", "65535"}))
	assert.Equal(t, []uint16{1, 16, 65535}, pva.View().Values())
	assert.Equal(t, []string{"1", "16", "65535"}, ToStrings(pva))

	assert.ErrorIs(t, FromStrings(pva, []string{"65536"}), ErrInvalidArgument)

	flags := NewPVScalarArray[bool](reg.ScalarArray(TBoolean))
	require.NoError(t, FromStrings(flags, []string{"true", "False"}))
	assert.Equal(t, []string{"true", "false"}, ToStrings(flags))

	pv := NewPVScalar[float32](reg.Scalar(TFloat))
	require.NoError(t, FromString(pv, "0.25"))
	assert.Equal(t, float32(0.25), pv.Get())
	assert.Equal(t, "0.25", pv.String())
}
