// Package sharedvec implements reference-counted, sliceable, copy-on-write
// array storage.
//
// A Vector is the mutable form and a Const is the frozen one. Both are views
// (offset, count, total) into a storage block shared by every view cloned
// from it. Writes go through a Vector and require the block to be unique;
// a non-unique block is copied first. Freeze and Thaw are the only ways to
// move between the two forms.
//
// Assigning a view to another variable aliases it without touching the
// reference count. Use Clone to share and Release to give a reference back.
package sharedvec

import (
	"errors"
	"sync/atomic"
)

var ErrNotUnique = errors.New("sharedvec: storage is shared")

type block[T any] struct {
	data []T
	refs atomic.Int32
}

func newBlock[T any](data []T) *block[T] {
	b := &block[T]{data: data}
	b.refs.Store(1)
	return b
}

type window[T any] struct {
	blk   *block[T]
	off   int
	count int
	total int
}

func (w window[T]) Len() int { return w.count }

// Cap returns the number of elements the view can hold without reallocating.
func (w window[T]) Cap() int { return w.total }

func (w window[T]) IsEmpty() bool { return w.count == 0 }

// Unique reports whether no other view shares this storage.
func (w window[T]) Unique() bool {
	return w.blk == nil || w.blk.refs.Load() == 1
}

func (w window[T]) At(i int) T {
	if i < 0 || i >= w.count {
		panic("sharedvec: index out of range")
	}
	return w.blk.data[w.off+i]
}

// Slice narrows the view without copying. An offset past the end yields an
// empty view and the length is clamped to what remains.
func (w *window[T]) Slice(offset, length int) {
	if offset < 0 || length < 0 {
		panic("sharedvec: negative slice bounds")
	}
	if offset > w.count {
		offset = w.count
	}
	if length > w.count-offset {
		length = w.count - offset
	}
	w.off += offset
	w.total -= offset
	w.count = length
}

func (w window[T]) values() []T {
	if w.blk == nil {
		return nil
	}
	return w.blk.data[w.off : w.off+w.count : w.off+w.total]
}

func (w window[T]) clone() window[T] {
	if w.blk != nil {
		w.blk.refs.Add(1)
	}
	return w
}

func (w *window[T]) release() {
	if w.blk != nil {
		w.blk.refs.Add(-1)
	}
	*w = window[T]{}
}

func (w *window[T]) reallocate(capacity, keep int) {
	data := make([]T, capacity)
	copy(data, w.values()[:keep])
	w.release()
	w.blk = newBlock(data)
	w.total = capacity
	w.count = keep
}

func (w *window[T]) makeUnique() {
	if w.Unique() {
		return
	}
	w.reallocate(w.count, w.count)
}
