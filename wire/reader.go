package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	maxEmptyFills = 100
	maxReadChunk  = 64 << 10
)

// Reader decodes primitives from a byte slice. A Reader made by
// NewFillReader asks its fill callback for more input whenever the buffered
// data runs out.
type Reader struct {
	orig  []byte
	buf   []byte
	store []byte
	order binary.ByteOrder
	fill  func(p []byte) (int, error)
	off   int64
}

func NewReader(data []byte, order binary.ByteOrder) *Reader {
	return &Reader{
		orig:  data,
		buf:   data,
		order: orderOrDefault(order),
	}
}

func NewFillReader(buf []byte, order binary.ByteOrder, fill func(p []byte) (int, error)) *Reader {
	if cap(buf) < minFlushBufferSize {
		panic(fmt.Sprintf("fill buffer too small: %d bytes, need at least %d", cap(buf), minFlushBufferSize))
	}
	if fill == nil {
		panic("nil fill func")
	}
	store := buf[:cap(buf)]
	return &Reader{
		buf:   store[:0],
		store: store,
		order: orderOrDefault(order),
		fill:  fill,
	}
}

func (r *Reader) Order() binary.ByteOrder { return r.order }

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 { return r.off }

// Buffered returns the number of bytes available without calling fill.
func (r *Reader) Buffered() int { return len(r.buf) }

func (r *Reader) errf(err error, format string, args ...any) error {
	if err == nil {
		err = ErrCorruptStream
	} else if !errors.Is(err, ErrCorruptStream) {
		err = fmt.Errorf("%w: %w", ErrCorruptStream, err)
	}
	if r.orig != nil {
		return dataErrf(r.orig, r.off, err, format, args...)
	}
	return dataErrf(r.buf, r.off, err, format, args...)
}

// Corruptf reports a decoding failure at the current offset.
func (r *Reader) Corruptf(format string, args ...any) error {
	return r.errf(nil, format, args...)
}

func (r *Reader) ensure(n int) error {
	if len(r.buf) >= n {
		return nil
	}
	if r.fill == nil {
		return r.errf(nil, "not enough data: %d bytes remaining, %d wanted", len(r.buf), n)
	}
	if n > len(r.store) {
		store := make([]byte, n)
		r.buf = store[:copy(store, r.buf)]
		r.store = store
	} else {
		r.buf = r.store[:copy(r.store, r.buf)]
	}
	empty := 0
	for len(r.buf) < n {
		m, err := r.fill(r.store[len(r.buf):])
		r.buf = r.store[:len(r.buf)+m]
		if len(r.buf) >= n {
			break
		}
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return r.errf(err, "not enough data: %d bytes available, %d wanted", len(r.buf), n)
		}
		if m == 0 {
			empty++
			if empty >= maxEmptyFills {
				return r.errf(io.ErrNoProgress, "fill made no progress")
			}
		}
	}
	return nil
}

func (r *Reader) take(n int) ([]byte, error) {
	if err := r.ensure(n); err != nil {
		return nil, err
	}
	v := r.buf[:n]
	r.buf = r.buf[n:]
	r.off += int64(n)
	return v, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadUint8()
	return v != 0, err
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadBytes returns a copy of the next n bytes. Memory is committed only
// as the bytes arrive, so a corrupt count cannot force a large allocation.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, r.errf(nil, "invalid byte count %d", n)
	}
	if r.fill == nil {
		b, err := r.take(n)
		if err != nil {
			return nil, err
		}
		out := make([]byte, n)
		copy(out, b)
		return out, nil
	}
	out := make([]byte, 0, min(n, maxReadChunk))
	for len(out) < n {
		if len(r.buf) == 0 {
			if err := r.ensure(1); err != nil {
				return nil, err
			}
		}
		k := min(n-len(out), len(r.buf))
		out = append(out, r.buf[:k]...)
		r.buf = r.buf[k:]
		r.off += int64(k)
	}
	return out, nil
}

// ReadSize decodes a size written by Writer.PutSize. NullSize is returned
// for the null marker.
func (r *Reader) ReadSize() (int, error) {
	b, err := r.ReadUint8()
	if err != nil {
		return 0, err
	}
	switch b {
	case nullSizeByte:
		return NullSize, nil
	case longSizeByte:
		v, err := r.ReadInt32()
		if err != nil {
			return 0, err
		}
		if v < 0 {
			return 0, r.errf(nil, "negative size %d", v)
		}
		return int(v), nil
	default:
		return int(b), nil
	}
}

// ReadString decodes a size-prefixed string. A null size yields "".
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadSize()
	if err != nil {
		return "", err
	}
	if n <= 0 {
		return "", nil
	}
	b, err := r.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
