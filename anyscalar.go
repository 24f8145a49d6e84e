package pvdata

import (
	"fmt"
)

// AnyScalar holds a single value of any scalar type, or nothing. The zero
// value is empty.
type AnyScalar struct {
	typ ScalarType
	val any
}

// AnyScalarOf wraps v with the scalar type backed by T.
func AnyScalarOf[T ScalarValue](v T) AnyScalar {
	return AnyScalar{typ: ScalarTypeOf[T](), val: v}
}

// NewAnyScalar converts v, which must hold a Go scalar value type, to t.
func NewAnyScalar(t ScalarType, v any) (AnyScalar, error) {
	if !t.valid() {
		return AnyScalar{}, fmt.Errorf("%w: invalid scalar type %d", ErrInvalidArgument, uint8(t))
	}
	if !isScalarValue(v) {
		return AnyScalar{}, fmt.Errorf("%w: %T is not a scalar value", ErrInvalidArgument, v)
	}
	r, err := castAny(v, t)
	if err != nil {
		return AnyScalar{}, err
	}
	return AnyScalar{typ: t, val: r}, nil
}

func (a AnyScalar) IsEmpty() bool { return a.val == nil }

// Type returns the type of the held value. It is meaningless for an empty
// AnyScalar.
func (a AnyScalar) Type() ScalarType { return a.typ }

// Value returns the held value as its backing Go type, or nil.
func (a AnyScalar) Value() any { return a.val }

// Convert returns the held value converted to t.
func (a AnyScalar) Convert(t ScalarType) (AnyScalar, error) {
	if a.IsEmpty() {
		return AnyScalar{}, fmt.Errorf("%w: empty AnyScalar", ErrInvalidArgument)
	}
	return NewAnyScalar(t, a.val)
}

func (a AnyScalar) Equal(b AnyScalar) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return a.IsEmpty() == b.IsEmpty()
	}
	return a.typ == b.typ && a.val == b.val
}

func (a AnyScalar) String() string {
	if a.IsEmpty() {
		return "(nil)"
	}
	return formatScalar(a.val)
}

// AnyAs returns the held value converted to T with the rules of Cast.
func AnyAs[T ScalarValue](a AnyScalar) (T, error) {
	var zero T
	if a.IsEmpty() {
		return zero, fmt.Errorf("%w: empty AnyScalar", ErrInvalidArgument)
	}
	r, err := castAny(a.val, ScalarTypeOf[T]())
	if err != nil {
		return zero, err
	}
	return r.(T), nil
}

// GetAnyScalar returns the value of pv.
func GetAnyScalar(pv AnyPVScalar) AnyScalar {
	return AnyScalar{typ: pv.Scalar().typ, val: pv.AnyValue()}
}

// PutAnyScalar converts a to the type of pv and stores it.
func PutAnyScalar(pv AnyPVScalar, a AnyScalar) error {
	if a.IsEmpty() {
		return fieldErrf(pv, ErrInvalidArgument, "empty value")
	}
	return pv.PutAny(a.val)
}

// PutAnyScalars converts every value to the element type of pva and
// replaces its contents.
func PutAnyScalars(pva AnyPVScalarArray, vals []AnyScalar) error {
	if pva.IsImmutable() {
		return immutableErr(pva)
	}
	raw := make([]any, len(vals))
	for i, a := range vals {
		if a.IsEmpty() {
			return fieldErrf(pva, ErrInvalidArgument, "element %d is empty", i)
		}
		raw[i] = a.val
	}
	return pva.putAnys(raw)
}

func isScalarValue(v any) bool {
	switch v.(type) {
	case bool, int8, int16, int32, int64, uint8, uint16, uint32, uint64, float32, float64, string:
		return true
	default:
		return false
	}
}
