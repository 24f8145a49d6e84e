package sharedvec

import "strconv"

// Const is a read-only view of shared storage.
type Const[T any] struct {
	window[T]
}

// ConstOf copies vals into new frozen storage.
func ConstOf[T any](vals ...T) Const[T] {
	v := Of(vals...)
	return Const[T]{v.window}
}

// Values returns the visible elements. The result must not be modified.
func (c Const[T]) Values() []T { return c.values() }

func (c Const[T]) Clone() Const[T] { return Const[T]{c.clone()} }

func (c *Const[T]) Release() { c.release() }

func (c *Const[T]) Swap(o *Const[T]) {
	c.window, o.window = o.window, c.window
}

// SameStorage reports whether both views show the same elements of the same
// storage block.
func (c Const[T]) SameStorage(o Const[T]) bool {
	return c.blk == o.blk && c.off == o.off && c.count == o.count
}

// Thaw turns c into a mutable vector, copying unless c is the only owner of
// its storage. c is left empty.
func Thaw[T any](c *Const[T]) Vector[T] {
	c.makeUnique()
	v := Vector[T]{c.window}
	c.window = window[T]{}
	return v
}

// Map converts every element of src, stopping at the first error.
func Map[To, From any](src Const[From], fn func(From) (To, error)) (Const[To], error) {
	in := src.Values()
	out := make([]To, len(in))
	for i, e := range in {
		var err error
		out[i], err = fn(e)
		if err != nil {
			return Const[To]{}, &ElementError{Index: i, Err: err}
		}
	}
	v := Wrap(out)
	return Const[To]{v.window}, nil
}

type ElementError struct {
	Index int
	Err   error
}

func (e *ElementError) Error() string {
	return "element " + strconv.Itoa(e.Index) + ": " + e.Err.Error()
}

func (e *ElementError) Unwrap() error { return e.Err }
