package pvdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreyvit/pvdata/sharedvec"
)

func TestCopySubArray_scalars(t *testing.T) {
	reg := NewRegistry()
	from := NewPVScalarArray[int32](reg.ScalarArray(TInt))
	require.NoError(t, from.Replace(sharedvec.ConstOf[int32](0, 1, 2, 3, 4, 5, 6)))
	to := NewPVScalarArray[int32](reg.ScalarArray(TInt))
	require.NoError(t, to.Replace(sharedvec.ConstOf[int32](9, 9)))
	keep := to.View()

	require.NoError(t, CopySubArray(from, 1, 2, to, 1, 3, 3))
	assert.Equal(t, []int32{9, 1, 0, 0, 3, 0, 0, 5}, to.View().Values())
	assert.Equal(t, []int32{9, 9}, keep.Values())

	require.NoError(t, CopySubArray(from, 0, 1, to, 0, 1, 2))
	assert.Equal(t, []int32{0, 1, 0, 0, 3, 0, 0, 5}, to.View().Values())

	// an empty copy leaves the destination alone
	require.NoError(t, CopySubArray(from, 0, 1, to, 100, 1, 0))
	assert.Equal(t, 8, to.Length())
}

func TestCopySubArray_errors(t *testing.T) {
	reg := NewRegistry()
	from := NewPVScalarArray[int32](reg.ScalarArray(TInt))
	require.NoError(t, from.Replace(sharedvec.ConstOf[int32](0, 1, 2)))
	to := NewPVScalarArray[int32](reg.ScalarArray(TInt))

	assert.ErrorIs(t, CopySubArray(from, 0, 0, to, 0, 1, 1), ErrInvalidArgument)
	assert.ErrorIs(t, CopySubArray(from, 0, 1, to, 0, 0, 1), ErrInvalidArgument)
	assert.ErrorIs(t, CopySubArray(from, -1, 1, to, 0, 1, 1), ErrInvalidArgument)
	assert.ErrorIs(t, CopySubArray(from, 0, 1, to, 0, 1, -1), ErrInvalidArgument)
	assert.ErrorIs(t, CopySubArray(from, 1, 1, to, 0, 1, 3), ErrInvalidArgument)
	assert.ErrorIs(t, CopySubArray(from, 0, 2, to, 0, 1, 3), ErrInvalidArgument)

	other := NewPVScalarArray[int64](reg.ScalarArray(TLong))
	assert.ErrorIs(t, CopySubArray(from, 0, 1, other, 0, 1, 1), ErrInvalidArgument)
	scalar := NewPVScalar[int32](reg.Scalar(TInt))
	assert.ErrorIs(t, CopySubArray(scalar, 0, 1, to, 0, 1, 1), ErrInvalidArgument)
	assert.ErrorIs(t, CopySubArray(from, 0, 1, scalar, 0, 1, 1), ErrInvalidArgument)

	to.SetImmutable()
	assert.ErrorIs(t, CopySubArray(from, 0, 1, to, 0, 1, 1), ErrImmutable)
	assert.Equal(t, 0, to.Length())
}

func TestCopySubArray_structures(t *testing.T) {
	reg := NewRegistry()
	elem := reg.MustStructure([]string{"v"}, []Field{reg.Scalar(TInt)})
	from := NewPVStructureArray(reg.StructureArray(elem))
	_, err := from.AppendNew(2)
	require.NoError(t, err)
	_, err = from.Append(1)
	require.NoError(t, err)
	src := from.View().Values()
	require.NoError(t, src[1].SubField("v").(*PVInt).Put(7))

	to := NewPVStructureArray(reg.StructureArray(elem))
	require.NoError(t, CopySubArray(from, 1, 1, to, 1, 1, 2))
	got := to.View().Values()
	require.Len(t, got, 3)
	assert.Nil(t, got[0])
	assert.Nil(t, got[2])
	require.NotNil(t, got[1])
	assert.NotSame(t, src[1], got[1])
	assert.Equal(t, int32(7), got[1].SubField("v").(*PVInt).Get())

	// copies are owned by the destination
	assert.ErrorIs(t, got[1].RemovePVField("v"), ErrInvalidArgument)

	otherElem := reg.MustStructure([]string{"w"}, []Field{reg.Scalar(TInt)})
	other := NewPVStructureArray(reg.StructureArray(otherElem))
	assert.ErrorIs(t, CopySubArray(from, 0, 1, other, 0, 1, 1), ErrInvalidArgument)
}

func TestCopySubArray_unions(t *testing.T) {
	reg := NewRegistry()
	from := NewPVUnionArray(reg.UnionArray(sampleUnion(reg)))
	_, err := from.AppendNew(2)
	require.NoError(t, err)
	u := from.View().Values()[0]
	v, err := u.SelectName("s")
	require.NoError(t, err)
	require.NoError(t, v.(*PVString).Put("x"))

	to := NewPVUnionArray(reg.UnionArray(sampleUnion(reg)))
	require.NoError(t, CopySubArray(from, 0, 1, to, 0, 2, 2))
	got := to.View().Values()
	require.Len(t, got, 3)
	assert.NotSame(t, u, got[0])
	assert.True(t, EqualPV(u, got[0]))
	assert.Nil(t, got[1])
	assert.Equal(t, Undefined, got[2].Selector())
}
