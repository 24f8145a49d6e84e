package pvdata

import (
	"fmt"

	"github.com/andreyvit/pvdata/wire"
)

// PVScalar holds a single value of a scalar field.
type PVScalar[T ScalarValue] struct {
	pvBase
	field *Scalar
	value T
}

type (
	PVBoolean = PVScalar[bool]
	PVByte    = PVScalar[int8]
	PVShort   = PVScalar[int16]
	PVInt     = PVScalar[int32]
	PVLong    = PVScalar[int64]
	PVUByte   = PVScalar[uint8]
	PVUShort  = PVScalar[uint16]
	PVUInt    = PVScalar[uint32]
	PVULong   = PVScalar[uint64]
	PVFloat   = PVScalar[float32]
	PVDouble  = PVScalar[float64]
	PVString  = PVScalar[string]
)

// AnyPVScalar is implemented by every *PVScalar[T].
type AnyPVScalar interface {
	PVField
	Scalar() *Scalar
	AnyValue() any
	// PutAny converts v to the scalar's type and stores it.
	PutAny(v any) error

	serialize(w *wire.Writer)
	deserialize(r *wire.Reader) error
}

// NewPVScalar creates a root scalar. It panics when T does not back f.
func NewPVScalar[T ScalarValue](f *Scalar) *PVScalar[T] {
	if t := ScalarTypeOf[T](); f.typ != t {
		panic(fmt.Sprintf("pvdata: %v field cannot hold %v", f.typ, t))
	}
	pv := &PVScalar[T]{field: f}
	computeOffsets(pv, 0)
	return pv
}

func newPVScalar(f *Scalar) PVField {
	switch f.typ {
	case TBoolean:
		return &PVBoolean{field: f}
	case TByte:
		return &PVByte{field: f}
	case TShort:
		return &PVShort{field: f}
	case TInt:
		return &PVInt{field: f}
	case TLong:
		return &PVLong{field: f}
	case TUByte:
		return &PVUByte{field: f}
	case TUShort:
		return &PVUShort{field: f}
	case TUInt:
		return &PVUInt{field: f}
	case TULong:
		return &PVULong{field: f}
	case TFloat:
		return &PVFloat{field: f}
	case TDouble:
		return &PVDouble{field: f}
	case TString:
		return &PVString{field: f}
	default:
		panic("unreachable")
	}
}

func (pv *PVScalar[T]) Field() Field           { return pv.field }
func (pv *PVScalar[T]) Scalar() *Scalar        { return pv.field }
func (pv *PVScalar[T]) Get() T                 { return pv.value }
func (pv *PVScalar[T]) AnyValue() any          { return pv.value }
func (pv *PVScalar[T]) SetImmutable()          { pv.immutable = true }
func (pv *PVScalar[T]) String() string         { return formatScalar(pv.value) }
func (pv *PVScalar[T]) scalarType() ScalarType { return pv.field.typ }

// Put stores v and calls PostPut.
func (pv *PVScalar[T]) Put(v T) error {
	if err := pv.set(v); err != nil {
		return err
	}
	pv.PostPut()
	return nil
}

func (pv *PVScalar[T]) set(v T) error {
	if pv.immutable {
		return immutableErr(pv)
	}
	if limit := pv.field.maxLen; limit > 0 {
		if s, ok := any(v).(string); ok && len(s) > limit {
			return fieldErrf(pv, ErrOverflow, "length %d exceeds %d", len(s), limit)
		}
	}
	pv.value = v
	return nil
}

func (pv *PVScalar[T]) PutAny(v any) error {
	r, err := castAny(v, pv.field.typ)
	if err != nil {
		return fieldErrf(pv, err, "")
	}
	return pv.Put(r.(T))
}

// GetAs returns the value of any scalar converted to U.
func GetAs[U ScalarValue](pv AnyPVScalar) (U, error) {
	r, err := castAny(pv.AnyValue(), ScalarTypeOf[U]())
	if err != nil {
		var zero U
		return zero, fieldErrf(pv, err, "")
	}
	return r.(U), nil
}

// PutFrom converts v to the scalar's type and stores it.
func PutFrom[U ScalarValue](pv AnyPVScalar, v U) error {
	return pv.PutAny(v)
}
