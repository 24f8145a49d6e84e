package pvdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleUnion(reg *Registry) *Union {
	return reg.MustUnion([]string{"i", "s"}, []Field{reg.Scalar(TInt), reg.Scalar(TString)})
}

func TestPVUnion_Select(t *testing.T) {
	reg := NewRegistry()
	pvu := NewPVUnion(sampleUnion(reg))
	assert.Equal(t, Undefined, pvu.Selector())
	assert.Equal(t, "", pvu.SelectedName())

	v, err := pvu.Select(0)
	require.NoError(t, err)
	require.NoError(t, v.(*PVInt).Put(42))
	assert.Equal(t, "i", pvu.SelectedName())

	same, err := pvu.Select(0)
	require.NoError(t, err)
	assert.Same(t, v, same)
	assert.Equal(t, int32(42), same.(*PVInt).Get())

	s, err := pvu.SelectName("s")
	require.NoError(t, err)
	assert.Equal(t, "", s.(*PVString).Get())
	assert.Equal(t, 1, pvu.Selector())

	_, err = pvu.Select(2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 1, pvu.Selector())

	_, err = pvu.SelectName("x")
	assert.ErrorIs(t, err, ErrFieldNotFound)

	none, err := pvu.Select(Undefined)
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Nil(t, pvu.Value())
}

func TestPVUnion_Set(t *testing.T) {
	reg := NewRegistry()
	pvu := NewPVUnion(sampleUnion(reg))
	h := &countingHandler{}
	require.NoError(t, pvu.SetPostHandler(h))

	str := NewPVScalar[string](reg.Scalar(TString))
	require.NoError(t, str.Put("hello"))
	require.NoError(t, pvu.SetName("s", str))
	assert.Same(t, str, pvu.Value())
	assert.Equal(t, 1, h.n)

	assert.ErrorIs(t, pvu.Set(0, str), ErrInvalidArgument)
	assert.ErrorIs(t, pvu.Set(0, nil), ErrInvalidArgument)
	assert.ErrorIs(t, pvu.Set(Undefined, str), ErrInvalidArgument)
	assert.ErrorIs(t, pvu.Set(5, str), ErrInvalidArgument)
	assert.ErrorIs(t, pvu.SetVariant(str), ErrInvalidArgument)

	require.NoError(t, pvu.Set(Undefined, nil))
	assert.Nil(t, pvu.Value())
	assert.Equal(t, 2, h.n)
}

func TestPVUnion_variant(t *testing.T) {
	reg := NewRegistry()
	pvu := NewPVUnion(reg.VariantUnion())
	assert.True(t, pvu.IsVariant())

	_, err := pvu.Select(0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	d := NewPVScalar[float64](reg.Scalar(TDouble))
	require.NoError(t, pvu.SetVariant(d))
	assert.Same(t, d, pvu.Value())
	assert.Equal(t, Undefined, pvu.Selector())

	v, err := pvu.SelectField(reg.Scalar(TDouble))
	require.NoError(t, err)
	assert.Same(t, d, v)

	v, err = pvu.SelectField(reg.ScalarArray(TInt))
	require.NoError(t, err)
	assert.NotSame(t, d, v)
	assert.Equal(t, KindScalarArray, pvu.Value().Field().Kind())

	owned := NewPVStructure(reg.MustStructure([]string{"x"}, []Field{reg.Scalar(TInt)}))
	assert.ErrorIs(t, pvu.SetVariant(owned.SubField("x")), ErrInvalidArgument)

	require.NoError(t, pvu.SetVariant(nil))
	assert.Nil(t, pvu.Value())
}

func TestPVUnion_SetImmutable(t *testing.T) {
	reg := NewRegistry()
	pvu := NewPVUnion(sampleUnion(reg))
	v, err := pvu.Select(0)
	require.NoError(t, err)

	pvu.SetImmutable()
	assert.True(t, v.IsImmutable())
	_, err = pvu.Select(1)
	assert.ErrorIs(t, err, ErrImmutable)
	assert.ErrorIs(t, pvu.Set(Undefined, nil), ErrImmutable)
}

func TestPVUnion_valueIsRoot(t *testing.T) {
	reg := NewRegistry()
	s, err := reg.Builder().
		Add("a", TInt).
		AddField("u", sampleUnion(reg)).
		Add("b", TInt).
		CreateStructure()
	require.NoError(t, err)
	pvs := NewPVStructure(s)

	v, err := pvs.UnionField("u").Select(0)
	require.NoError(t, err)
	assert.Nil(t, v.Parent())
	assert.Equal(t, 0, v.FieldOffset())
	assert.Equal(t, 3, pvs.SubField("b").FieldOffset())
	assert.Equal(t, 4, pvs.NextFieldOffset())
}
