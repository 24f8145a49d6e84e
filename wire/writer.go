package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DefaultByteOrder is the byte order used when none is given.
var DefaultByteOrder binary.ByteOrder = binary.BigEndian

const minFlushBufferSize = 16

// Writer encodes primitives into a byte buffer. A Writer made by NewWriter
// grows its buffer in memory; one made by NewFlushWriter hands the buffer to
// a flush callback every time it fills up.
//
// Errors are sticky: after the first failure every Put is a no-op and Err
// returns the failure.
type Writer struct {
	buf     []byte
	order   binary.ByteOrder
	flush   func(p []byte) error
	flushed int64
	err     error
}

func NewWriter(order binary.ByteOrder) *Writer {
	w := &Writer{}
	w.Reset(order)
	return w
}

func NewFlushWriter(buf []byte, order binary.ByteOrder, flush func(p []byte) error) *Writer {
	if cap(buf) < minFlushBufferSize {
		panic(fmt.Sprintf("flush buffer too small: %d bytes, need at least %d", cap(buf), minFlushBufferSize))
	}
	if flush == nil {
		panic("nil flush func")
	}
	return &Writer{
		buf:   buf[:0],
		order: orderOrDefault(order),
		flush: flush,
	}
}

// Reset prepares an in-memory writer for reuse.
func (w *Writer) Reset(order binary.ByteOrder) {
	w.buf = w.buf[:0]
	w.order = orderOrDefault(order)
	w.flush = nil
	w.flushed = 0
	w.err = nil
}

func orderOrDefault(order binary.ByteOrder) binary.ByteOrder {
	if order == nil {
		return DefaultByteOrder
	}
	return order
}

func (w *Writer) Order() binary.ByteOrder { return w.order }

func (w *Writer) Err() error { return w.err }

// Bytes returns the buffered, not yet flushed bytes.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the total number of bytes written, flushed or not.
func (w *Writer) Len() int64 { return w.flushed + int64(len(w.buf)) }

// Fail records err unless an earlier error is already recorded.
func (w *Writer) Fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if w.flush == nil || len(w.buf) == 0 {
		return nil
	}
	if err := w.flush(w.buf); err != nil {
		w.err = err
		return err
	}
	w.flushed += int64(len(w.buf))
	w.buf = w.buf[:0]
	return nil
}

func (w *Writer) grow(n int) (int, bool) {
	if w.err != nil {
		return 0, false
	}
	if w.flush != nil && cap(w.buf)-len(w.buf) < n {
		if w.Flush() != nil {
			return 0, false
		}
	}
	var off int
	off, w.buf = grow(w.buf, n)
	return off, true
}

func (w *Writer) PutUint8(v uint8) {
	if off, ok := w.grow(1); ok {
		w.buf[off] = v
	}
}

func (w *Writer) PutInt8(v int8) { w.PutUint8(uint8(v)) }

func (w *Writer) PutBool(v bool) {
	if v {
		w.PutUint8(1)
	} else {
		w.PutUint8(0)
	}
}

func (w *Writer) PutUint16(v uint16) {
	if off, ok := w.grow(2); ok {
		w.order.PutUint16(w.buf[off:], v)
	}
}

func (w *Writer) PutInt16(v int16) { w.PutUint16(uint16(v)) }

func (w *Writer) PutUint32(v uint32) {
	if off, ok := w.grow(4); ok {
		w.order.PutUint32(w.buf[off:], v)
	}
}

func (w *Writer) PutInt32(v int32) { w.PutUint32(uint32(v)) }

func (w *Writer) PutUint64(v uint64) {
	if off, ok := w.grow(8); ok {
		w.order.PutUint64(w.buf[off:], v)
	}
}

func (w *Writer) PutInt64(v int64) { w.PutUint64(uint64(v)) }

func (w *Writer) PutFloat32(v float32) { w.PutUint32(math.Float32bits(v)) }

func (w *Writer) PutFloat64(v float64) { w.PutUint64(math.Float64bits(v)) }

// PutBytes writes raw bytes, in chunks when the writer flushes.
func (w *Writer) PutBytes(p []byte) {
	if w.flush == nil {
		if off, ok := w.grow(len(p)); ok {
			copy(w.buf[off:], p)
		}
		return
	}
	for len(p) > 0 {
		if w.err != nil {
			return
		}
		room := cap(w.buf) - len(w.buf)
		if room == 0 {
			if w.Flush() != nil {
				return
			}
			room = cap(w.buf)
		}
		n := min(room, len(p))
		w.buf = append(w.buf, p[:n]...)
		p = p[n:]
	}
}

func (w *Writer) putRawString(s string) {
	if w.flush == nil {
		if off, ok := w.grow(len(s)); ok {
			copy(w.buf[off:], s)
		}
		return
	}
	for len(s) > 0 {
		if w.err != nil {
			return
		}
		room := cap(w.buf) - len(w.buf)
		if room == 0 {
			if w.Flush() != nil {
				return
			}
			room = cap(w.buf)
		}
		n := min(room, len(s))
		w.buf = append(w.buf, s[:n]...)
		s = s[n:]
	}
}

// PutSize writes a size: -1 as a single 0xFF, values below 254 as one byte,
// anything else as 0xFE followed by an int32.
func (w *Writer) PutSize(n int) {
	switch {
	case n == NullSize:
		w.PutUint8(nullSizeByte)
	case n < 0:
		w.Fail(fmt.Errorf("wire: invalid size %d", n))
	case n < longSizeByte:
		w.PutUint8(uint8(n))
	case n > math.MaxInt32:
		w.Fail(fmt.Errorf("wire: size %d does not fit into int32", n))
	default:
		w.PutUint8(longSizeByte)
		w.PutInt32(int32(n))
	}
}

// PutString writes a size-prefixed string with no terminator.
func (w *Writer) PutString(s string) {
	w.PutSize(len(s))
	w.putRawString(s)
}
