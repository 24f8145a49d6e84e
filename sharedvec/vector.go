package sharedvec

// Vector is a mutable view of shared storage.
type Vector[T any] struct {
	window[T]
}

func Make[T any](n int) Vector[T] {
	if n == 0 {
		return Vector[T]{}
	}
	return Wrap(make([]T, n))
}

func MakeFill[T any](n int, v T) Vector[T] {
	vec := Make[T](n)
	data := vec.values()
	for i := range data {
		data[i] = v
	}
	return vec
}

// Wrap adopts data as the storage of a new vector. The caller must not keep
// using data afterwards.
func Wrap[T any](data []T) Vector[T] {
	if len(data) == 0 {
		return Vector[T]{}
	}
	data = data[:len(data):len(data)]
	return Vector[T]{window[T]{blk: newBlock(data), count: len(data), total: len(data)}}
}

// Of copies vals into a new vector.
func Of[T any](vals ...T) Vector[T] {
	return Wrap(append([]T(nil), vals...))
}

// Data returns the visible elements for writing, copying the storage first
// if it is shared.
func (v *Vector[T]) Data() []T {
	v.makeUnique()
	return v.values()
}

// Values returns the visible elements without claiming ownership; the
// result must not be modified.
func (v Vector[T]) Values() []T { return v.values() }

func (v *Vector[T]) Set(i int, val T) {
	if i < 0 || i >= v.count {
		panic("sharedvec: index out of range")
	}
	v.makeUnique()
	v.blk.data[v.off+i] = val
}

// MakeUnique copies the storage unless this view is its only owner.
func (v *Vector[T]) MakeUnique() { v.makeUnique() }

// Reserve ensures room for n elements on unique storage.
func (v *Vector[T]) Reserve(n int) {
	if n <= v.total && v.Unique() {
		return
	}
	v.reallocate(max(n, v.count), v.count)
}

// Resize changes the visible length. Grown elements are zero.
func (v *Vector[T]) Resize(n int) {
	var zero T
	v.resize(n, zero)
}

// ResizeFill changes the visible length, setting grown elements to fill.
func (v *Vector[T]) ResizeFill(n int, fill T) {
	v.resize(n, fill)
}

func (v *Vector[T]) resize(n int, fill T) {
	if n < 0 {
		panic("sharedvec: negative length")
	}
	old := v.count
	if n == old {
		v.makeUnique()
		return
	}
	if v.blk != nil && v.Unique() && n <= v.total {
		v.count = n
	} else {
		v.reallocate(max(v.total, n), min(old, n))
		v.count = n
	}
	if n > old {
		data := v.values()
		for i := old; i < n; i++ {
			data[i] = fill
		}
	}
}

// Append adds vals to the end, growing capacity geometrically.
func (v *Vector[T]) Append(vals ...T) {
	n := v.count + len(vals)
	if n > v.total || !v.Unique() {
		v.Reserve(max(n, 2*v.total))
	}
	v.count = n
	copy(v.values()[n-len(vals):], vals)
}

// Clone returns another view of the same storage.
func (v *Vector[T]) Clone() Vector[T] { return Vector[T]{v.clone()} }

// Release drops this view's reference and leaves it empty.
func (v *Vector[T]) Release() { v.release() }

func (v *Vector[T]) Swap(o *Vector[T]) {
	v.window, o.window = o.window, v.window
}

// Freeze moves a uniquely owned vector into a Const without copying; v is
// left empty. It fails with ErrNotUnique when the storage is shared.
func Freeze[T any](v *Vector[T]) (Const[T], error) {
	if !v.Unique() {
		return Const[T]{}, ErrNotUnique
	}
	c := Const[T]{v.window}
	v.window = window[T]{}
	return c, nil
}

// MustFreeze is Freeze for vectors known to be unique.
func MustFreeze[T any](v *Vector[T]) Const[T] {
	c, err := Freeze(v)
	if err != nil {
		panic(err)
	}
	return c
}
