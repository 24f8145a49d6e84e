package pvdata

import (
	"github.com/andreyvit/pvdata/sharedvec"
)

type subCopy struct {
	fromOffset, fromStride int
	toOffset, toStride     int
	count                  int
}

func (c subCopy) check(to PVField, fromLen int) error {
	switch {
	case c.fromStride < 1 || c.toStride < 1:
		return fieldErrf(to, ErrInvalidArgument, "stride must be at least 1")
	case c.fromOffset < 0 || c.toOffset < 0 || c.count < 0:
		return fieldErrf(to, ErrInvalidArgument, "negative offset or count")
	case c.count > 0 && c.fromOffset+(c.count-1)*c.fromStride >= fromLen:
		return fieldErrf(to, ErrInvalidArgument, "%d elements with stride %d from offset %d exceed source length %d", c.count, c.fromStride, c.fromOffset, fromLen)
	}
	return nil
}

// stridedCopy returns dst with count elements of src written into it,
// extended as needed. Slots between the old end and a written element are
// zero.
func stridedCopy[E any](c subCopy, src, dst []E, clone func(E) E) []E {
	n := max(len(dst), c.toOffset+(c.count-1)*c.toStride+1)
	out := make([]E, n)
	copy(out, dst)
	for i := 0; i < c.count; i++ {
		e := src[c.fromOffset+i*c.fromStride]
		if clone != nil {
			e = clone(e)
		}
		out[c.toOffset+i*c.toStride] = e
	}
	return out
}

func replaceWith[E any](replace func(sharedvec.Const[E]) error, out []E) error {
	v := sharedvec.Wrap(out)
	return replace(sharedvec.MustFreeze(&v))
}

// CopySubArray copies count elements of the array from, taken fromStride
// apart starting at fromOffset, into the array to, placing them toStride
// apart starting at toOffset. Both arrays must have the same element type.
// The destination grows when needed. Structure and union elements are
// copied, not shared.
func CopySubArray(from PVField, fromOffset, fromStride int, to PVField, toOffset, toStride, count int) error {
	c := subCopy{fromOffset, fromStride, toOffset, toStride, count}
	if to.IsImmutable() {
		return immutableErr(to)
	}
	switch from := from.(type) {
	case AnyPVScalarArray:
		dst, ok := to.(AnyPVScalarArray)
		if !ok || from.ScalarArray().elem != dst.ScalarArray().elem {
			return fieldErrf(to, ErrInvalidArgument, "cannot copy %s elements here", from.Field().ID())
		}
		if err := c.check(to, from.Length()); err != nil || count == 0 {
			return err
		}
		return from.copySub(dst, c)
	case *PVStructureArray:
		dst, ok := to.(*PVStructureArray)
		if !ok || !Equal(from.field.elem, dst.field.elem) {
			return fieldErrf(to, ErrInvalidArgument, "cannot copy %s elements here", from.Field().ID())
		}
		if err := c.check(to, from.Length()); err != nil || count == 0 {
			return err
		}
		out := stridedCopy(c, from.value.Values(), dst.value.Values(), func(e *PVStructure) *PVStructure {
			if e == nil {
				return nil
			}
			return ClonePVStructure(e)
		})
		return replaceWith(dst.Replace, out)
	case *PVUnionArray:
		dst, ok := to.(*PVUnionArray)
		if !ok || !Equal(from.field.elem, dst.field.elem) {
			return fieldErrf(to, ErrInvalidArgument, "cannot copy %s elements here", from.Field().ID())
		}
		if err := c.check(to, from.Length()); err != nil || count == 0 {
			return err
		}
		out := stridedCopy(c, from.value.Values(), dst.value.Values(), func(e *PVUnion) *PVUnion {
			if e == nil {
				return nil
			}
			return ClonePVField(e).(*PVUnion)
		})
		return replaceWith(dst.Replace, out)
	default:
		return fieldErrf(from, ErrInvalidArgument, "not an array")
	}
}

func (pva *PVScalarArray[T]) copySub(to AnyPVScalarArray, c subCopy) error {
	dst := to.(*PVScalarArray[T])
	return replaceWith(dst.Replace, stridedCopy(c, pva.value.Values(), dst.value.Values(), nil))
}

func (pva *PVScalarArray[T]) putAnys(vals []any) error {
	out := make([]T, len(vals))
	for i, v := range vals {
		r, err := castAny(v, pva.field.elem)
		if err != nil {
			return fieldErrf(pva, err, "element %d", i)
		}
		out[i] = r.(T)
	}
	return replaceWith(pva.Replace, out)
}
