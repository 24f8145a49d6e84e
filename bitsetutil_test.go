package pvdata

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreyvit/pvdata/bitset"
	"github.com/andreyvit/pvdata/wire"
)

// compressSample is {a: int, b: {c: double, d: {e: int, f: int}}}; offsets
// are a=1 b=2 c=3 d=4 e=5 f=6.
func compressSample(t *testing.T) *PVStructure {
	reg := NewRegistry()
	s, err := reg.Builder().
		Add("a", TInt).
		AddNestedStructure("b").
		Add("c", TDouble).
		AddNestedStructure("d").
		Add("e", TInt).
		Add("f", TInt).
		EndNested().
		EndNested().
		CreateStructure()
	require.NoError(t, err)
	return NewPVStructure(s)
}

func TestCompressBitSet(t *testing.T) {
	pvs := compressSample(t)
	require.Equal(t, 6, pvs.SubField("b.d.f").FieldOffset())

	tests := []struct {
		in      []int
		want    []int
		changed bool
	}{
		{nil, nil, false},
		{[]int{1}, []int{1}, true},
		{[]int{5, 6}, []int{4}, true},
		{[]int{3, 5, 6}, []int{2}, true},
		{[]int{3, 4}, []int{2}, true},
		{[]int{1, 3, 5, 6}, []int{0}, true},
		{[]int{2, 3, 5}, []int{2}, true},
		{[]int{0, 1, 5}, []int{0}, true},
		{[]int{3, 5}, []int{3, 5}, true},
	}
	for _, tt := range tests {
		bs := bitset.Of(tt.in...)
		assert.Equal(t, tt.changed, CompressBitSet(bs, pvs), "in %v", tt.in)
		assert.Equal(t, tt.want, bs.Offsets(), "in %v", tt.in)
	}
}

func TestCompressBitSet_preservesSerialization(t *testing.T) {
	pvs := compressSample(t)
	require.NoError(t, pvs.IntField("a").Put(1))
	require.NoError(t, pvs.DoubleField("b.c").Put(2))
	require.NoError(t, pvs.IntField("b.d.e").Put(3))
	require.NoError(t, pvs.IntField("b.d.f").Put(4))

	in := bitset.Of(3, 5, 6)
	out := in.Clone()
	CompressBitSet(out, pvs)

	w1 := wire.NewWriter(binary.BigEndian)
	require.NoError(t, SerializeChanged(w1, pvs, in, nil))
	w2 := wire.NewWriter(binary.BigEndian)
	require.NoError(t, SerializeChanged(w2, pvs, out, nil))
	assert.Equal(t, []int{2}, out.Offsets())
	assert.Equal(t, w1.Bytes(), w2.Bytes())
	assert.Len(t, w1.Bytes(), 16)
}
