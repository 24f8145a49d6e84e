package pvdata

import (
	"github.com/andreyvit/pvdata/sharedvec"
)

// PVUnionArray holds a shared buffer of unions. A nil element is an empty
// slot.
type PVUnionArray struct {
	arrayValue[*PVUnion]
	field *UnionArray
}

func NewPVUnionArray(f *UnionArray) *PVUnionArray {
	pva := newPVUnionArray(f)
	computeOffsets(pva, 0)
	return pva
}

func newPVUnionArray(f *UnionArray) *PVUnionArray {
	return &PVUnionArray{field: f}
}

func (pva *PVUnionArray) Field() Field            { return pva.field }
func (pva *PVUnionArray) UnionArray() *UnionArray { return pva.field }
func (pva *PVUnionArray) String() string          { return Dump(pva) }

func (pva *PVUnionArray) SetImmutable() {
	pva.lock()
	for _, e := range pva.value.Values() {
		if e != nil {
			e.SetImmutable()
		}
	}
}

// Replace validates the elements of c, takes over its reference and calls
// PostPut.
func (pva *PVUnionArray) Replace(c sharedvec.Const[*PVUnion]) error {
	if pva.immutable {
		return immutableErr(pva)
	}
	if err := validateElements(&pva.arrayValue, c, pva.field.elem); err != nil {
		return err
	}
	return pva.arrayValue.Replace(c)
}

// Swap validates the elements of *c and exchanges them with the array's.
func (pva *PVUnionArray) Swap(c *sharedvec.Const[*PVUnion]) error {
	if pva.immutable {
		return immutableErr(pva)
	}
	if err := validateElements(&pva.arrayValue, *c, pva.field.elem); err != nil {
		return err
	}
	return pva.arrayValue.Swap(c)
}

// Append adds n empty slots and returns the new length.
func (pva *PVUnionArray) Append(n int) (int, error) {
	return appendElements(&pva.arrayValue, n, nil)
}

// AppendNew adds n unions with nothing selected and returns the new length.
func (pva *PVUnionArray) AppendNew(n int) (int, error) {
	return appendElements(&pva.arrayValue, n, pva.newElement)
}

func (pva *PVUnionArray) newElement() *PVUnion {
	return NewPVUnion(pva.field.elem)
}

func (pva *PVUnionArray) Compress() error {
	return compressElements(&pva.arrayValue)
}
