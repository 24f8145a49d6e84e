package pvdata

import (
	"github.com/andreyvit/pvdata/bitset"
)

// CompressBitSet rewrites bs into its smallest equivalent form for pvs: a
// structure whose fields are all set is replaced by the structure's own bit,
// and a set structure bit clears the bits it covers. It reports whether any
// bit within pvs is set.
func CompressBitSet(bs *bitset.BitSet, pvs *PVStructure) bool {
	return compressField(bs, pvs)
}

func compressField(bs *bitset.BitSet, pv PVField) bool {
	offset := pv.FieldOffset()
	n := pv.NumberFields()
	if n == 1 {
		return bs.Get(offset)
	}
	next := bs.NextSetBit(offset)
	if next < 0 || next >= offset+n {
		return false
	}
	if bs.Get(offset) {
		clearRange(bs, offset+1, offset+n)
		return true
	}

	someSet, allSet := false, true
	for _, child := range pv.(*PVStructure).fields {
		if compressField(bs, child) {
			someSet = true
			if !bs.Get(child.FieldOffset()) {
				allSet = false
			}
		} else {
			allSet = false
		}
	}
	if allSet {
		clearRange(bs, offset+1, offset+n)
		bs.Set(offset)
	}
	return someSet
}

func clearRange(bs *bitset.BitSet, from, to int) {
	for i := bs.NextSetBit(from); i >= 0 && i < to; i = bs.NextSetBit(i + 1) {
		bs.Clear(i)
	}
}
