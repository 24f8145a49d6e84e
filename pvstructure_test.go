package pvdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreyvit/pvdata/sharedvec"
)

// sampleStructure is {a: int, b: {c: double}}.
func sampleStructure(t testing.TB, reg *Registry) *Structure {
	s, err := reg.Builder().
		Add("a", TInt).
		AddNestedStructure("b").
		Add("c", TDouble).
		EndNested().
		CreateStructure()
	require.NoError(t, err)
	return s
}

type countingHandler struct {
	n int
}

func (h *countingHandler) PostPut() { h.n++ }

func TestPVStructure_offsets(t *testing.T) {
	pvs := NewPVStructure(sampleStructure(t, NewRegistry()))

	a := pvs.SubField("a")
	b := pvs.SubField("b")
	c := pvs.SubField("b.c")
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, c)

	assert.Equal(t, 0, pvs.FieldOffset())
	assert.Equal(t, 4, pvs.NextFieldOffset())
	assert.Equal(t, 4, pvs.NumberFields())
	assert.Equal(t, 1, a.FieldOffset())
	assert.Equal(t, 2, a.NextFieldOffset())
	assert.Equal(t, 2, b.FieldOffset())
	assert.Equal(t, 4, b.NextFieldOffset())
	assert.Equal(t, 3, c.FieldOffset())
	assert.Equal(t, 1, c.NumberFields())

	assert.Nil(t, pvs.SubFieldAt(0))
	assert.Same(t, a, pvs.SubFieldAt(1))
	assert.Same(t, b, pvs.SubFieldAt(2))
	assert.Same(t, c, pvs.SubFieldAt(3))
	assert.Nil(t, pvs.SubFieldAt(4))
	assert.Same(t, c, b.(*PVStructure).SubFieldAt(3))
}

func TestPVStructure_names(t *testing.T) {
	pvs := NewPVStructure(sampleStructure(t, NewRegistry()))
	c := pvs.SubField("b.c")
	assert.Equal(t, "c", c.FieldName())
	assert.Equal(t, "b.c", c.FullName())
	assert.Same(t, pvs, Root(c))
	assert.Same(t, pvs.SubField("b"), c.Parent())
	assert.Equal(t, "", pvs.FieldName())
	assert.Nil(t, pvs.Parent())
}

func TestPVStructure_lookups(t *testing.T) {
	pvs := NewPVStructure(sampleStructure(t, NewRegistry()))

	assert.NotNil(t, pvs.IntField("a"))
	assert.Nil(t, pvs.DoubleField("a"))
	assert.NotNil(t, pvs.DoubleField("b.c"))
	assert.NotNil(t, pvs.StructureField("b"))
	assert.Nil(t, pvs.SubField("b.c.d"))
	assert.Nil(t, pvs.SubField("a.x"))
	assert.Nil(t, pvs.SubField(""))

	_, err := pvs.MustSubField("b.zz")
	assert.ErrorIs(t, err, ErrFieldNotFound)
	assert.ErrorContains(t, err, "b.zz")

	_, err = pvs.MustSubFieldAt(0)
	assert.ErrorIs(t, err, ErrFieldNotFound)

	c, err := SubFieldAs[*PVDouble](pvs, "b.c")
	require.NoError(t, err)
	assert.Equal(t, "b.c", c.FullName())

	_, err = SubFieldAs[*PVInt](pvs, "b.c")
	assert.ErrorIs(t, err, ErrFieldTypeMismatch)

	_, err = SubFieldAs[*PVInt](pvs, "nope")
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestPVStructure_SetImmutable(t *testing.T) {
	pvs := NewPVStructure(sampleStructure(t, NewRegistry()))
	require.NoError(t, pvs.IntField("a").Put(5))

	pvs.SetImmutable()
	assert.True(t, pvs.IsImmutable())
	assert.True(t, pvs.SubField("b.c").IsImmutable())

	err := pvs.DoubleField("b.c").Put(1)
	assert.ErrorIs(t, err, ErrImmutable)
	assert.ErrorContains(t, err, "b.c")
	assert.Equal(t, int32(5), pvs.IntField("a").Get())

	assert.ErrorIs(t, pvs.AppendPVField("x", NewPVScalar[int32](NewRegistry().Scalar(TInt))), ErrImmutable)
}

func TestPVField_PostHandler(t *testing.T) {
	pvs := NewPVStructure(sampleStructure(t, NewRegistry()))
	a := pvs.IntField("a")

	h := &countingHandler{}
	require.NoError(t, a.SetPostHandler(h))
	require.NoError(t, a.SetPostHandler(h))
	assert.ErrorIs(t, a.SetPostHandler(&countingHandler{}), ErrInvalidArgument)

	require.NoError(t, a.Put(1))
	require.NoError(t, a.Put(2))
	assert.Equal(t, 2, h.n)

	pvs.SetImmutable()
	assert.Error(t, a.Put(3))
	assert.Equal(t, 2, h.n)
}

func TestPVStructure_AppendPVField(t *testing.T) {
	reg := NewRegistry()
	pvs := NewPVStructure(sampleStructure(t, reg))
	b := pvs.StructureField("b")
	old := pvs.Structure()

	extra := NewPVScalar[string](reg.Scalar(TString))
	require.NoError(t, extra.Put("hi"))
	require.NoError(t, b.AppendPVField("d", extra))

	assert.Equal(t, []string{"c", "d"}, b.Structure().FieldNames())
	assert.NotSame(t, old, pvs.Structure())
	assert.Same(t, b.Structure(), pvs.Structure().Field("b"))
	assert.Equal(t, []string{"a", "b"}, old.FieldNames())

	assert.Same(t, pvs, extra.Parent().Parent())
	assert.Equal(t, "b.d", extra.FullName())
	assert.Equal(t, 4, extra.FieldOffset())
	assert.Equal(t, 5, pvs.NextFieldOffset())
	assert.Same(t, extra, pvs.SubFieldAt(4))
	assert.Equal(t, "hi", pvs.StringField("b.d").Get())

	// already attached
	assert.ErrorIs(t, pvs.AppendPVField("again", extra), ErrInvalidArgument)
	// the root itself
	assert.ErrorIs(t, b.AppendPVField("loop", pvs), ErrInvalidArgument)
	// duplicate name
	dup := NewPVScalar[int32](reg.Scalar(TInt))
	assert.ErrorIs(t, pvs.AppendPVField("a", dup), ErrInvalidSchema)
	assert.Nil(t, dup.Parent())
}

func TestPVStructure_RemovePVField(t *testing.T) {
	reg := NewRegistry()
	pvs := NewPVStructure(sampleStructure(t, reg))
	a := pvs.IntField("a")
	require.NoError(t, a.Put(9))

	require.NoError(t, pvs.RemovePVField("a"))
	assert.Equal(t, []string{"b"}, pvs.Structure().FieldNames())
	assert.Nil(t, a.Parent())
	assert.Equal(t, "", a.FieldName())
	assert.Equal(t, 0, a.FieldOffset())
	assert.Equal(t, int32(9), a.Get())

	assert.Equal(t, 1, pvs.SubField("b").FieldOffset())
	assert.Equal(t, 2, pvs.SubField("b.c").FieldOffset())
	assert.Equal(t, 3, pvs.NextFieldOffset())

	assert.ErrorIs(t, pvs.RemovePVField("a"), ErrFieldNotFound)
}

func TestPVStructure_editHeldValues(t *testing.T) {
	reg := NewRegistry()
	elem := elementStructure(t, reg)
	extra := func() PVField { return NewPVScalar[int32](reg.Scalar(TInt)) }

	pva := NewPVStructureArray(reg.StructureArray(elem))
	_, err := pva.AppendNew(1)
	require.NoError(t, err)
	e := pva.View().Values()[0]
	assert.ErrorIs(t, e.AppendPVField("w", extra()), ErrInvalidArgument)
	assert.ErrorIs(t, e.RemovePVField("v"), ErrInvalidArgument)
	assert.Same(t, elem, e.Structure())

	data, err := Marshal(pva)
	require.NoError(t, err)
	out := NewPVStructureArray(pva.StructureArray())
	require.NoError(t, Unmarshal(data, out))
	assert.True(t, EqualPV(pva, out))

	// decoded and replaced elements are held as well
	assert.ErrorIs(t, out.View().Values()[0].AppendPVField("w", extra()), ErrInvalidArgument)
	free := NewPVStructure(elem)
	require.NoError(t, pva.Replace(sharedvec.ConstOf(free)))
	assert.ErrorIs(t, free.AppendPVField("w", extra()), ErrInvalidArgument)

	// an element cannot be moved into a structure
	host := NewPVStructure(sampleStructure(t, reg))
	assert.ErrorIs(t, host.AppendPVField("e", free), ErrInvalidArgument)
	assert.Nil(t, free.Parent())

	pvu := NewPVUnion(reg.MustUnion([]string{"s"}, []Field{elem}))
	v, err := pvu.Select(0)
	require.NoError(t, err)
	assert.ErrorIs(t, v.(*PVStructure).AppendPVField("w", extra()), ErrInvalidArgument)

	set := NewPVStructure(elem)
	require.NoError(t, pvu.Set(0, set))
	assert.ErrorIs(t, set.RemovePVField("v"), ErrInvalidArgument)

	// a variant union does not constrain its value
	vu := NewPVUnion(reg.VariantUnion())
	loose := NewPVStructure(elem)
	require.NoError(t, vu.SetVariant(loose))
	require.NoError(t, loose.AppendPVField("w", extra()))

	// a clone is a free root again
	c := ClonePVStructure(e)
	require.NoError(t, c.AppendPVField("w", extra()))
}

func TestNewPVField_defaults(t *testing.T) {
	reg := NewRegistry()
	s, err := reg.Builder().
		Add("flag", TBoolean).
		Add("name", TString).
		AddArray("data", TInt).
		AddFixedArray("xyz", TDouble, 3).
		AddNestedUnion("u").
		Add("i", TInt).
		EndNested().
		AddNestedStructureArray("rows").
		Add("k", TString).
		EndNested().
		CreateStructure()
	require.NoError(t, err)

	pvs := NewPVStructure(s)
	assert.False(t, pvs.BooleanField("flag").Get())
	assert.Equal(t, "", pvs.StringField("name").Get())
	assert.Equal(t, 0, pvs.ScalarArrayField("data").Length())
	assert.Equal(t, 3, pvs.ScalarArrayField("xyz").Length())
	assert.Equal(t, Undefined, pvs.UnionField("u").Selector())
	assert.Nil(t, pvs.UnionField("u").Value())
	assert.Equal(t, 0, pvs.StructureArrayField("rows").Length())
	assert.Nil(t, pvs.UnionArrayField("rows"))
}

func TestClonePVField(t *testing.T) {
	reg := NewRegistry()
	pvs := NewPVStructure(sampleStructure(t, reg))
	require.NoError(t, pvs.IntField("a").Put(7))
	require.NoError(t, pvs.DoubleField("b.c").Put(2.5))
	pvs.SetImmutable()

	c := ClonePVStructure(pvs)
	assert.True(t, EqualPV(pvs, c))
	assert.False(t, c.IsImmutable())
	assert.NotSame(t, pvs.SubField("b"), c.SubField("b"))

	require.NoError(t, c.IntField("a").Put(8))
	assert.False(t, EqualPV(pvs, c))
	assert.Equal(t, int32(7), pvs.IntField("a").Get())
}

func TestDump(t *testing.T) {
	reg := NewRegistry()
	s, err := reg.Builder().
		Add("a", TInt).
		AddArray("list", TShort).
		AddNestedStructure("b").
		Add("c", TDouble).
		EndNested().
		AddNestedUnion("u").
		Add("s", TString).
		EndNested().
		AddField("v", reg.VariantUnion()).
		CreateStructure()
	require.NoError(t, err)

	pvs := NewPVStructure(s)
	require.NoError(t, pvs.IntField("a").Put(1))
	require.NoError(t, PutArrayFrom(pvs.ScalarArrayField("list"), sharedvec.ConstOf[int16](1, 2)))
	require.NoError(t, pvs.DoubleField("b.c").Put(1.5))
	v, err := pvs.UnionField("u").SelectName("s")
	require.NoError(t, err)
	require.NoError(t, v.(*PVString).Put("x"))

	assert.Equal(t, "structure\n"+
		"    int a 1\n"+
		"    short[] list [1, 2]\n"+
		"    structure b\n"+
		"        double c 1.5\n"+
		"    union u\n"+
		"        string s x\n"+
		"    any v\n"+
		"        (none)", Dump(pvs))
	assert.Equal(t, Dump(pvs), pvs.String())
}
