package pvdata

import (
	"fmt"
	"slices"
	"strings"

	"github.com/andreyvit/pvdata/sharedvec"
	"github.com/andreyvit/pvdata/wire"
)

// PVScalarArray holds the value of a scalar array field as a shared,
// copy-on-write buffer.
type PVScalarArray[T ScalarValue] struct {
	arrayValue[T]
	field *ScalarArray
}

type (
	PVBooleanArray = PVScalarArray[bool]
	PVByteArray    = PVScalarArray[int8]
	PVShortArray   = PVScalarArray[int16]
	PVIntArray     = PVScalarArray[int32]
	PVLongArray    = PVScalarArray[int64]
	PVUByteArray   = PVScalarArray[uint8]
	PVUShortArray  = PVScalarArray[uint16]
	PVUIntArray    = PVScalarArray[uint32]
	PVULongArray   = PVScalarArray[uint64]
	PVFloatArray   = PVScalarArray[float32]
	PVDoubleArray  = PVScalarArray[float64]
	PVStringArray  = PVScalarArray[string]
)

// AnyPVScalarArray is implemented by every *PVScalarArray[T].
type AnyPVScalarArray interface {
	PVField
	ScalarArray() *ScalarArray
	Length() int
	Capacity() int
	SetLength(n int) error
	SetCapacity(n int) error
	IsCapacityMutable() bool
	SetCapacityMutable(mutable bool) error

	viewAs(to ScalarType) (any, error)
	replaceAny(c any) error
	putAnys(vals []any) error
	copySub(to AnyPVScalarArray, c subCopy) error
	equalElements(o AnyPVScalarArray) bool
	serializeRange(w *wire.Writer, offset, count int) error
	deserialize(r *wire.Reader) error
}

// NewPVScalarArray creates a root scalar array. It panics when T does not
// back the element type of f.
func NewPVScalarArray[T ScalarValue](f *ScalarArray) *PVScalarArray[T] {
	if t := ScalarTypeOf[T](); f.elem != t {
		panic(fmt.Sprintf("pvdata: %v array cannot hold %v", f.elem, t))
	}
	pva := makePVScalarArray[T](f)
	computeOffsets(pva, 0)
	return pva
}

func makePVScalarArray[T ScalarValue](f *ScalarArray) *PVScalarArray[T] {
	pva := &PVScalarArray[T]{field: f}
	pva.sizeType, pva.max = f.sizeType, f.max
	if f.sizeType == Fixed {
		v := sharedvec.Make[T](f.max)
		pva.value = sharedvec.MustFreeze(&v)
	}
	return pva
}

func newPVScalarArray(f *ScalarArray) PVField {
	switch f.elem {
	case TBoolean:
		return makePVScalarArray[bool](f)
	case TByte:
		return makePVScalarArray[int8](f)
	case TShort:
		return makePVScalarArray[int16](f)
	case TInt:
		return makePVScalarArray[int32](f)
	case TLong:
		return makePVScalarArray[int64](f)
	case TUByte:
		return makePVScalarArray[uint8](f)
	case TUShort:
		return makePVScalarArray[uint16](f)
	case TUInt:
		return makePVScalarArray[uint32](f)
	case TULong:
		return makePVScalarArray[uint64](f)
	case TFloat:
		return makePVScalarArray[float32](f)
	case TDouble:
		return makePVScalarArray[float64](f)
	case TString:
		return makePVScalarArray[string](f)
	default:
		panic("unreachable")
	}
}

func (pva *PVScalarArray[T]) Field() Field              { return pva.field }
func (pva *PVScalarArray[T]) ScalarArray() *ScalarArray { return pva.field }
func (pva *PVScalarArray[T]) SetImmutable()             { pva.lock() }

func (pva *PVScalarArray[T]) String() string {
	var buf strings.Builder
	buf.WriteByte('[')
	for i, v := range pva.value.Values() {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(formatScalar(v))
	}
	buf.WriteByte(']')
	return buf.String()
}

// Put copies data into the array starting at offset, growing the length
// and, if allowed, the capacity. It returns the number of elements written,
// which is less than len(data) when the capacity cannot grow.
func (pva *PVScalarArray[T]) Put(offset int, data []T) (int, error) {
	if pva.immutable {
		return 0, immutableErr(pva)
	}
	if offset < 0 {
		return 0, fieldErrf(pva, ErrInvalidArgument, "negative offset %d", offset)
	}
	n := len(data)
	if end := offset + n; end > pva.Length() {
		if end > pva.Capacity() {
			if pva.IsCapacityMutable() {
				if err := pva.SetCapacity(end); err != nil {
					return 0, err
				}
			}
			end = min(end, pva.Capacity())
			n = end - offset
			if n <= 0 {
				return 0, nil
			}
		}
		if err := pva.SetLength(end); err != nil {
			return 0, err
		}
	}
	v := sharedvec.Thaw(&pva.value)
	copy(v.Data()[offset:], data[:n])
	pva.value = sharedvec.MustFreeze(&v)
	pva.PostPut()
	return n, nil
}

func (pva *PVScalarArray[T]) viewAs(to ScalarType) (any, error) {
	return convertConst(pva.value, to)
}

func (pva *PVScalarArray[T]) replaceAny(c any) error {
	return pva.Replace(c.(sharedvec.Const[T]))
}

func (pva *PVScalarArray[T]) equalElements(o AnyPVScalarArray) bool {
	other, ok := o.(*PVScalarArray[T])
	return ok && slices.Equal(pva.value.Values(), other.value.Values())
}

// convertConst converts every element of c to the Go type backing to, and
// returns the result as a sharedvec.Const of that type. When no conversion
// is needed, the result shares storage with c.
func convertConst[T ScalarValue](c sharedvec.Const[T], to ScalarType) (any, error) {
	switch to {
	case TBoolean:
		return mapConst[bool](c)
	case TByte:
		return mapConst[int8](c)
	case TShort:
		return mapConst[int16](c)
	case TInt:
		return mapConst[int32](c)
	case TLong:
		return mapConst[int64](c)
	case TUByte:
		return mapConst[uint8](c)
	case TUShort:
		return mapConst[uint16](c)
	case TUInt:
		return mapConst[uint32](c)
	case TULong:
		return mapConst[uint64](c)
	case TFloat:
		return mapConst[float32](c)
	case TDouble:
		return mapConst[float64](c)
	case TString:
		return mapConst[string](c)
	default:
		panic("unreachable")
	}
}

func mapConst[U, T ScalarValue](c sharedvec.Const[T]) (any, error) {
	if same, ok := any(c).(sharedvec.Const[U]); ok {
		return same.Clone(), nil
	}
	r, err := sharedvec.Map(c, Cast[U, T])
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetArrayAs returns the elements of any scalar array converted to U.
func GetArrayAs[U ScalarValue](pva AnyPVScalarArray) (sharedvec.Const[U], error) {
	r, err := pva.viewAs(ScalarTypeOf[U]())
	if err != nil {
		return sharedvec.Const[U]{}, fieldErrf(pva, err, "")
	}
	return r.(sharedvec.Const[U]), nil
}

// PutArrayFrom converts the elements of c to the element type of pva and
// replaces its value.
func PutArrayFrom[U ScalarValue](pva AnyPVScalarArray, c sharedvec.Const[U]) error {
	if pva.IsImmutable() {
		return immutableErr(pva)
	}
	r, err := convertConst(c, pva.ScalarArray().elem)
	if err != nil {
		return fieldErrf(pva, err, "")
	}
	return pva.replaceAny(r)
}
