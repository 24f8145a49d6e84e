// Package bitset is the change set used by differential serialization: an
// ordered set of non-negative field offsets with a compact wire form.
package bitset

import (
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"

	"github.com/andreyvit/pvdata/wire"
)

// maxPreallocWords limits the words reserved before a serialized set is read.
const maxPreallocWords = 512

// BitSet is a set of field offsets. The zero value is an empty set.
type BitSet struct {
	bits *bitset.BitSet
}

func New() *BitSet {
	return &BitSet{}
}

func Of(offsets ...int) *BitSet {
	b := New()
	for _, i := range offsets {
		b.Set(i)
	}
	return b
}

func (b *BitSet) ensure() *bitset.BitSet {
	if b.bits == nil {
		b.bits = bitset.New(64)
	}
	return b.bits
}

func checkIndex(i int) uint {
	if i < 0 {
		panic("bitset: negative index " + strconv.Itoa(i))
	}
	return uint(i)
}

func (b *BitSet) Set(i int) *BitSet {
	b.ensure().Set(checkIndex(i))
	return b
}

func (b *BitSet) Clear(i int) *BitSet {
	if b.bits != nil {
		b.bits.Clear(checkIndex(i))
	}
	return b
}

func (b *BitSet) SetTo(i int, v bool) *BitSet {
	if v {
		return b.Set(i)
	}
	return b.Clear(i)
}

func (b *BitSet) Get(i int) bool {
	return b.bits != nil && b.bits.Test(checkIndex(i))
}

// NextSetBit returns the first set offset at or after from, or -1.
func (b *BitSet) NextSetBit(from int) int {
	if b == nil || b.bits == nil || from < 0 {
		return -1
	}
	i, ok := b.bits.NextSet(uint(from))
	if !ok {
		return -1
	}
	return int(i)
}

// NextClearBit returns the first offset at or after from that is not set.
func (b *BitSet) NextClearBit(from int) int {
	if b.bits == nil {
		return from
	}
	i, ok := b.bits.NextClear(checkIndex(from))
	if !ok {
		return max(from, int(b.bits.Len()))
	}
	return int(i)
}

func (b *BitSet) Cardinality() int {
	if b.bits == nil {
		return 0
	}
	return int(b.bits.Count())
}

func (b *BitSet) IsEmpty() bool {
	return b.NextSetBit(0) < 0
}

func (b *BitSet) ClearAll() {
	if b.bits != nil {
		b.bits.ClearAll()
	}
}

// Or adds every offset of o.
func (b *BitSet) Or(o *BitSet) *BitSet {
	if o.bits != nil {
		b.ensure().InPlaceUnion(o.bits)
	}
	return b
}

// And keeps only offsets also present in o.
func (b *BitSet) And(o *BitSet) *BitSet {
	if b.bits == nil {
		return b
	}
	if o.bits == nil {
		b.bits.ClearAll()
		return b
	}
	b.bits.InPlaceIntersection(o.bits)
	return b
}

// AndNot removes every offset of o.
func (b *BitSet) AndNot(o *BitSet) *BitSet {
	if b.bits != nil && o.bits != nil {
		b.bits.InPlaceDifference(o.bits)
	}
	return b
}

func (b *BitSet) Clone() *BitSet {
	if b.bits == nil {
		return New()
	}
	return &BitSet{b.bits.Clone()}
}

// Equal compares set membership, ignoring allocated length.
func (b *BitSet) Equal(o *BitSet) bool {
	x, y := b.words(), o.words()
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// Offsets returns the set offsets in ascending order.
func (b *BitSet) Offsets() []int {
	var out []int
	for i := b.NextSetBit(0); i >= 0; i = b.NextSetBit(i + 1) {
		out = append(out, i)
	}
	return out
}

func (b *BitSet) String() string {
	var buf strings.Builder
	buf.WriteByte('{')
	for n, i := range b.Offsets() {
		if n > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(strconv.Itoa(i))
	}
	buf.WriteByte('}')
	return buf.String()
}

// words returns the backing words with trailing zero words trimmed.
func (b *BitSet) words() []uint64 {
	if b.bits == nil {
		return nil
	}
	w := b.bits.Bytes()
	n := len(w)
	for n > 0 && w[n-1] == 0 {
		n--
	}
	return w[:n]
}

// Serialize writes the set as Size(byte count), whole words in the writer's
// byte order, then the last word's non-zero low bytes, least significant
// first.
func (b *BitSet) Serialize(w *wire.Writer) {
	words := b.words()
	n := len(words)
	if n == 0 {
		w.PutSize(0)
		return
	}
	byteLen := 8 * (n - 1)
	for x := words[n-1]; x != 0; x >>= 8 {
		byteLen++
	}
	w.PutSize(byteLen)
	full := byteLen / 8
	for i := 0; i < full; i++ {
		w.PutUint64(words[i])
	}
	if full < n {
		for x := words[n-1]; x != 0; x >>= 8 {
			w.PutUint8(uint8(x))
		}
	}
}

// Deserialize replaces the contents of b with a set read from r.
func (b *BitSet) Deserialize(r *wire.Reader) error {
	byteLen, err := r.ReadSize()
	if err != nil {
		return err
	}
	if byteLen <= 0 {
		b.ClearAll()
		return nil
	}
	full := byteLen / 8
	words := make([]uint64, 0, min((byteLen+7)/8, maxPreallocWords))
	for i := 0; i < full; i++ {
		v, err := r.ReadUint64()
		if err != nil {
			return err
		}
		words = append(words, v)
	}
	if tail := byteLen - full*8; tail > 0 {
		var last uint64
		for j := 0; j < tail; j++ {
			v, err := r.ReadUint8()
			if err != nil {
				return err
			}
			last |= uint64(v) << (8 * j)
		}
		words = append(words, last)
	}
	b.bits = bitset.From(words)
	return nil
}
