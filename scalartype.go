package pvdata

import "fmt"

type Kind uint8

const (
	KindScalar Kind = iota
	KindScalarArray
	KindStructure
	KindStructureArray
	KindUnion
	KindUnionArray
)

var kindNames = [...]string{"scalar", "scalarArray", "structure", "structureArray", "union", "unionArray"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

type ScalarType uint8

const (
	TBoolean ScalarType = iota
	TByte
	TShort
	TInt
	TLong
	TUByte
	TUShort
	TUInt
	TULong
	TFloat
	TDouble
	TString
)

var scalarTypeNames = [...]string{
	"boolean", "byte", "short", "int", "long",
	"ubyte", "ushort", "uint", "ulong",
	"float", "double", "string",
}

var scalarTypeSizes = [...]int{1, 1, 2, 4, 8, 1, 2, 4, 8, 4, 8, 0}

func (t ScalarType) String() string {
	if t.valid() {
		return scalarTypeNames[t]
	}
	return fmt.Sprintf("scalarType(%d)", uint8(t))
}

func (t ScalarType) valid() bool { return t <= TString }

func ParseScalarType(name string) (ScalarType, error) {
	for i, n := range scalarTypeNames {
		if n == name {
			return ScalarType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown scalar type %q", ErrInvalidArgument, name)
}

// IsInteger reports a signed integer type.
func (t ScalarType) IsInteger() bool { return t >= TByte && t <= TLong }

// IsUInteger reports an unsigned integer type.
func (t ScalarType) IsUInteger() bool { return t >= TUByte && t <= TULong }

func (t ScalarType) IsNumeric() bool { return t >= TByte && t <= TDouble }

// IsPrimitive reports everything except string.
func (t ScalarType) IsPrimitive() bool { return t < TString }

// Size returns the encoded width of one element; 0 for string.
func (t ScalarType) Size() int {
	if !t.valid() {
		return 0
	}
	return scalarTypeSizes[t]
}

// ScalarValue lists the Go types that back scalar fields.
type ScalarValue interface {
	bool | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64 | string
}

// ScalarTypeOf returns the scalar type backed by T.
func ScalarTypeOf[T ScalarValue]() ScalarType {
	var z T
	switch any(z).(type) {
	case bool:
		return TBoolean
	case int8:
		return TByte
	case int16:
		return TShort
	case int32:
		return TInt
	case int64:
		return TLong
	case uint8:
		return TUByte
	case uint16:
		return TUShort
	case uint32:
		return TUInt
	case uint64:
		return TULong
	case float32:
		return TFloat
	case float64:
		return TDouble
	case string:
		return TString
	default:
		panic("unreachable")
	}
}

type ArraySizeType uint8

const (
	Variable ArraySizeType = iota
	Bounded
	Fixed
)

func (st ArraySizeType) String() string {
	switch st {
	case Variable:
		return "variable"
	case Bounded:
		return "bounded"
	case Fixed:
		return "fixed"
	default:
		return fmt.Sprintf("arraySizeType(%d)", uint8(st))
	}
}
