package pvdata

import (
	"github.com/andreyvit/pvdata/sharedvec"
)

// arrayValue is the state and the length rules shared by every array node.
type arrayValue[E any] struct {
	pvBase
	value          sharedvec.Const[E]
	capacityLocked bool
	sizeType       ArraySizeType
	max            int
}

// View returns a new reference to the current value. Release it when done
// to let later writes avoid a copy.
func (a *arrayValue[E]) View() sharedvec.Const[E] { return a.value.Clone() }

func (a *arrayValue[E]) Length() int   { return a.value.Len() }
func (a *arrayValue[E]) Capacity() int { return a.value.Cap() }

func (a *arrayValue[E]) IsCapacityMutable() bool {
	return !a.immutable && !a.capacityLocked
}

func (a *arrayValue[E]) SetCapacityMutable(mutable bool) error {
	if a.immutable && mutable {
		return immutableErr(a)
	}
	a.capacityLocked = !mutable
	return nil
}

func (a *arrayValue[E]) lock() {
	a.immutable = true
	a.capacityLocked = true
}

func (a *arrayValue[E]) checkLength(n int) error {
	switch {
	case n < 0:
		return fieldErrf(a, ErrInvalidArgument, "negative length %d", n)
	case a.sizeType == Fixed && n != a.max:
		return fieldErrf(a, ErrInvalidArgument, "invalid length %d for fixed size %d", n, a.max)
	case a.sizeType == Bounded && n > a.max:
		return fieldErrf(a, ErrInvalidArgument, "length %d exceeds bound %d", n, a.max)
	}
	return nil
}

// SetCapacity reserves room for n elements. It never shrinks.
func (a *arrayValue[E]) SetCapacity(n int) error {
	if !a.IsCapacityMutable() {
		return fieldErrf(a, ErrCapacityLocked, "")
	}
	if err := a.checkLength(n); err != nil {
		return err
	}
	if a.value.Cap() < n {
		v := sharedvec.Thaw(&a.value)
		v.Reserve(n)
		a.value = sharedvec.MustFreeze(&v)
	}
	return nil
}

// SetLength truncates or extends the array with default elements. When the
// capacity cannot grow, the length is clamped to it.
func (a *arrayValue[E]) SetLength(n int) error {
	if a.immutable {
		return immutableErr(a)
	}
	if n == a.value.Len() {
		return nil
	}
	if err := a.checkLength(n); err != nil {
		return err
	}
	if n > a.value.Cap() {
		if a.IsCapacityMutable() {
			if err := a.SetCapacity(n); err != nil {
				return err
			}
		}
		n = min(n, a.value.Cap())
	}
	if n <= a.value.Len() {
		a.value.Slice(0, n)
		return nil
	}
	v := sharedvec.Thaw(&a.value)
	v.Resize(n)
	a.value = sharedvec.MustFreeze(&v)
	return nil
}

// Replace takes over the reference held by c and calls PostPut.
func (a *arrayValue[E]) Replace(c sharedvec.Const[E]) error {
	if a.immutable {
		return immutableErr(a)
	}
	if err := a.checkLength(c.Len()); err != nil {
		return err
	}
	a.value.Release()
	a.value = c
	a.PostPut()
	return nil
}

// Swap exchanges the value with *c without checking the length or calling
// PostPut.
func (a *arrayValue[E]) Swap(c *sharedvec.Const[E]) error {
	if a.immutable {
		return immutableErr(a)
	}
	a.value.Swap(c)
	return nil
}

// Reuse hands the current value over as a mutable vector, copying only if
// it is shared, and leaves the array empty.
func (a *arrayValue[E]) Reuse() (sharedvec.Vector[E], error) {
	if a.immutable {
		return sharedvec.Vector[E]{}, immutableErr(a)
	}
	return sharedvec.Thaw(&a.value), nil
}

// Remove deletes n elements starting at offset. It fails for fixed size
// arrays and out-of-range requests.
func (a *arrayValue[E]) Remove(offset, n int) error {
	if n == 0 {
		return nil
	}
	if a.immutable {
		return immutableErr(a)
	}
	length := a.value.Len()
	if offset < 0 || n < 0 || offset+n > length {
		return fieldErrf(a, ErrInvalidArgument, "cannot remove %d elements at %d from %d", n, offset, length)
	}
	if a.sizeType == Fixed {
		return fieldErrf(a, ErrInvalidArgument, "cannot remove from a fixed size array")
	}
	v := sharedvec.Thaw(&a.value)
	data := v.Data()
	copy(data[offset:], data[offset+n:])
	clear(data[length-n:])
	v.Resize(length - n)
	a.value = sharedvec.MustFreeze(&v)
	return nil
}

// compressElements drops empty slots of a structure or union array, keeping
// the order of the rest.
func compressElements[E PVField](a *arrayValue[E]) error {
	if a.immutable {
		return immutableErr(a)
	}
	if a.sizeType == Fixed {
		return nil
	}
	v := sharedvec.Thaw(&a.value)
	data := v.Data()
	n := 0
	for _, e := range data {
		if !isNilElement(e) {
			data[n] = e
			n++
		}
	}
	clear(data[n:])
	v.Resize(n)
	a.value = sharedvec.MustFreeze(&v)
	return nil
}

func appendElements[E PVField](a *arrayValue[E], n int, create func() E) (int, error) {
	if a.immutable {
		return 0, immutableErr(a)
	}
	length := a.value.Len()
	if err := a.checkLength(length + n); err != nil {
		return 0, err
	}
	v := sharedvec.Thaw(&a.value)
	v.Resize(length + n)
	if create != nil {
		data := v.Data()
		for i := length; i < length+n; i++ {
			data[i] = create()
		}
	}
	a.value = sharedvec.MustFreeze(&v)
	return length + n, nil
}

// validateElements checks that every non-empty element is described by
// elem and is not part of another tree.
func validateElements[E PVField](a *arrayValue[E], c sharedvec.Const[E], elem Field) error {
	for i, e := range c.Values() {
		if isNilElement(e) {
			continue
		}
		if !Equal(e.Field(), elem) {
			return fieldErrf(a, ErrInvalidArgument, "element %d is %s, wanted %s", i, e.Field().ID(), elem.ID())
		}
		if e.Parent() != nil {
			return fieldErrf(a, ErrInvalidArgument, "element %d belongs to %s", i, e.Parent().FullName())
		}
	}
	for _, e := range c.Values() {
		if !isNilElement(e) {
			pin(e)
		}
	}
	return nil
}
