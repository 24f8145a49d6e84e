package pvdata

import (
	"github.com/andreyvit/pvdata/bitset"
	"github.com/andreyvit/pvdata/sharedvec"
)

// IsCopyCompatible reports whether a value of from can be copied into a
// value of to. Kinds must match throughout. Scalars and scalar arrays also
// match when both element types are numeric or either one is a string.
// Structures and unions must have the same field names in the same order.
func IsCopyCompatible(from, to Field) bool {
	if from == nil || to == nil {
		return false
	}
	if from == to {
		return true
	}
	if from.Kind() != to.Kind() {
		return false
	}
	switch from := from.(type) {
	case *Scalar:
		return scalarsCompatible(from.typ, to.(*Scalar).typ)
	case *ScalarArray:
		return scalarsCompatible(from.elem, to.(*ScalarArray).elem)
	case *Structure:
		return listsCompatible(&from.fieldList, &to.(*Structure).fieldList)
	case *Union:
		to := to.(*Union)
		if from.IsVariant() || to.IsVariant() {
			return from.IsVariant() && to.IsVariant()
		}
		return listsCompatible(&from.fieldList, &to.fieldList)
	case *StructureArray:
		return IsCopyCompatible(from.elem, to.(*StructureArray).elem)
	case *UnionArray:
		return IsCopyCompatible(from.elem, to.(*UnionArray).elem)
	default:
		panic("unreachable")
	}
}

func scalarsCompatible(from, to ScalarType) bool {
	switch {
	case from == to:
		return true
	case from == TString || to == TString:
		return true
	default:
		return from.IsNumeric() && to.IsNumeric()
	}
}

func listsCompatible(from, to *fieldList) bool {
	if len(from.fields) != len(to.fields) {
		return false
	}
	for i, f := range from.fields {
		if from.names[i] != to.names[i] || !IsCopyCompatible(f, to.fields[i]) {
			return false
		}
	}
	return true
}

// Copy copies the value of from into to, converting scalars as needed.
//
// When from is an immutable scalar array of the same element type, to
// shares its storage and becomes immutable as well.
func Copy(from, to PVField) error {
	if from == to {
		return nil
	}
	if to.IsImmutable() {
		return immutableErr(to)
	}
	if !IsCopyCompatible(from.Field(), to.Field()) {
		return fieldErrf(to, ErrFieldTypeMismatch, "cannot copy %s into %s", from.Field().ID(), to.Field().ID())
	}
	return copyValue(from, to, true)
}

func CopyScalar(from, to AnyPVScalar) error           { return Copy(from, to) }
func CopyScalarArray(from, to AnyPVScalarArray) error { return Copy(from, to) }
func CopyStructure(from, to *PVStructure) error       { return Copy(from, to) }
func CopyStructureArray(from, to *PVStructureArray) error {
	return Copy(from, to)
}
func CopyUnion(from, to *PVUnion) error           { return Copy(from, to) }
func CopyUnionArray(from, to *PVUnionArray) error { return Copy(from, to) }

// copyUnchecked copies between fields already known to be compatible,
// without propagating immutability.
func copyUnchecked(from, to PVField) error {
	return copyValue(from, to, false)
}

func copyValue(from, to PVField, shareFrozen bool) error {
	switch from := from.(type) {
	case AnyPVScalar:
		return to.(AnyPVScalar).PutAny(from.AnyValue())
	case AnyPVScalarArray:
		to := to.(AnyPVScalarArray)
		view, err := from.viewAs(to.ScalarArray().elem)
		if err != nil {
			return fieldErrf(to, err, "")
		}
		if err := to.replaceAny(view); err != nil {
			return err
		}
		if shareFrozen && from.IsImmutable() && from.ScalarArray().elem == to.ScalarArray().elem {
			to.SetImmutable()
		}
		return nil
	case *PVStructure:
		to := to.(*PVStructure)
		for i, child := range from.fields {
			if err := copyValue(child, to.fields[i], shareFrozen); err != nil {
				return err
			}
		}
		return nil
	case *PVUnion:
		return copyUnion(from, to.(*PVUnion), shareFrozen)
	case *PVStructureArray:
		to := to.(*PVStructureArray)
		return copyElements(&from.arrayValue, &to.arrayValue, to.field.elem, to.Replace, to.newElement, shareFrozen)
	case *PVUnionArray:
		to := to.(*PVUnionArray)
		return copyElements(&from.arrayValue, &to.arrayValue, to.field.elem, to.Replace, to.newElement, shareFrozen)
	default:
		panic("unreachable")
	}
}

func copyUnion(from, to *PVUnion, shareFrozen bool) error {
	if to.immutable {
		return immutableErr(to)
	}
	if from.IsVariant() {
		if from.value == nil {
			return to.SetVariant(nil)
		}
		if to.value != nil && Equal(to.value.Field(), from.value.Field()) {
			if err := copyValue(from.value, to.value, shareFrozen); err != nil {
				return err
			}
			to.PostPut()
			return nil
		}
		v := NewPVField(from.value.Field())
		if err := copyValue(from.value, v, shareFrozen); err != nil {
			return err
		}
		return to.SetVariant(v)
	}
	if from.value == nil {
		if _, err := to.Select(Undefined); err != nil {
			return err
		}
	} else {
		v, err := to.Select(from.selector)
		if err != nil {
			return err
		}
		if err := copyValue(from.value, v, shareFrozen); err != nil {
			return err
		}
	}
	to.PostPut()
	return nil
}

// copyElements deep-copies every element. With shareFrozen, the elements
// of an immutable source are shared instead and to becomes immutable.
func copyElements[E PVField](from *arrayValue[E], to *arrayValue[E], elem Field, replace func(sharedvec.Const[E]) error, create func() E, shareFrozen bool) error {
	elems := from.value.Values()
	if shareFrozen && from.immutable && allElementsOf(elems, elem) {
		if err := replace(from.View()); err != nil {
			return err
		}
		to.lock()
		return nil
	}
	out := make([]E, len(elems))
	for i, e := range elems {
		if isNilElement(e) {
			continue
		}
		c := create()
		if err := copyValue(e, c, shareFrozen); err != nil {
			return err
		}
		out[i] = c
	}
	v := sharedvec.Wrap(out)
	return replace(sharedvec.MustFreeze(&v))
}

func allElementsOf[E PVField](elems []E, elem Field) bool {
	for _, e := range elems {
		if !isNilElement(e) && !Equal(e.Field(), elem) {
			return false
		}
	}
	return true
}

// CopyMasked copies the fields of from whose offsets are set in bs, or are
// clear when inverse is true. A selected structure is copied as a whole.
func CopyMasked(from, to *PVStructure, bs *bitset.BitSet, inverse bool) error {
	if from == to {
		return nil
	}
	if to.immutable {
		return immutableErr(to)
	}
	if !IsCopyCompatible(from.field, to.field) {
		return fieldErrf(to, ErrFieldTypeMismatch, "cannot copy %s into %s", from.field.ID(), to.field.ID())
	}
	return copyMasked(from, to, bs, inverse)
}

func nextMasked(bs *bitset.BitSet, from int, inverse bool) int {
	if inverse {
		return bs.NextClearBit(from)
	}
	return bs.NextSetBit(from)
}

func copyMasked(from, to *PVStructure, bs *bitset.BitSet, inverse bool) error {
	next := nextMasked(bs, from.offset, inverse)
	if next < 0 || next >= from.next {
		return nil
	}
	if next == from.offset {
		return copyValue(from, to, false)
	}
	for i, child := range from.fields {
		b := child.base()
		next = nextMasked(bs, b.offset, inverse)
		if next < 0 {
			return nil
		}
		if next >= b.next {
			continue
		}
		if b.NumberFields() == 1 {
			if err := copyValue(child, to.fields[i], false); err != nil {
				return err
			}
		} else if err := copyMasked(child.(*PVStructure), to.fields[i].(*PVStructure), bs, inverse); err != nil {
			return err
		}
	}
	return nil
}

// ToStrings returns the elements of a scalar array formatted as text.
func ToStrings(pva AnyPVScalarArray) []string {
	c, err := GetArrayAs[string](pva)
	if err != nil {
		panic(err)
	}
	return c.Values()
}

// FromStrings parses strs into the element type of pva and replaces its
// value.
func FromStrings(pva AnyPVScalarArray, strs []string) error {
	return PutArrayFrom(pva, sharedvec.ConstOf(strs...))
}

// FromString parses s into the type of pv and stores it.
func FromString(pv AnyPVScalar, s string) error {
	return pv.PutAny(s)
}
