package pvdata

import (
	"github.com/andreyvit/pvdata/sharedvec"
)

// PVStructureArray holds a shared buffer of structures. A nil element is an
// empty slot.
type PVStructureArray struct {
	arrayValue[*PVStructure]
	field *StructureArray
}

func NewPVStructureArray(f *StructureArray) *PVStructureArray {
	pva := newPVStructureArray(f)
	computeOffsets(pva, 0)
	return pva
}

func newPVStructureArray(f *StructureArray) *PVStructureArray {
	return &PVStructureArray{field: f}
}

func (pva *PVStructureArray) Field() Field                    { return pva.field }
func (pva *PVStructureArray) StructureArray() *StructureArray { return pva.field }
func (pva *PVStructureArray) String() string                  { return Dump(pva) }

func (pva *PVStructureArray) SetImmutable() {
	pva.lock()
	for _, e := range pva.value.Values() {
		if e != nil {
			e.SetImmutable()
		}
	}
}

// Replace validates the elements of c, takes over its reference and calls
// PostPut.
func (pva *PVStructureArray) Replace(c sharedvec.Const[*PVStructure]) error {
	if pva.immutable {
		return immutableErr(pva)
	}
	if err := validateElements(&pva.arrayValue, c, pva.field.elem); err != nil {
		return err
	}
	return pva.arrayValue.Replace(c)
}

// Swap validates the elements of *c and exchanges them with the array's.
func (pva *PVStructureArray) Swap(c *sharedvec.Const[*PVStructure]) error {
	if pva.immutable {
		return immutableErr(pva)
	}
	if err := validateElements(&pva.arrayValue, *c, pva.field.elem); err != nil {
		return err
	}
	return pva.arrayValue.Swap(c)
}

// Append adds n empty slots and returns the new length.
func (pva *PVStructureArray) Append(n int) (int, error) {
	return appendElements(&pva.arrayValue, n, nil)
}

// AppendNew adds n structures with default values and returns the new
// length.
func (pva *PVStructureArray) AppendNew(n int) (int, error) {
	return appendElements(&pva.arrayValue, n, pva.newElement)
}

func (pva *PVStructureArray) newElement() *PVStructure {
	e := NewPVStructure(pva.field.elem)
	pin(e)
	return e
}

// Compress removes empty slots, keeping the order of the remaining elements.
func (pva *PVStructureArray) Compress() error {
	return compressElements(&pva.arrayValue)
}
