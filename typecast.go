package pvdata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cast converts a scalar value to another scalar type.
//
// Numeric conversions behave like C casts: integers wrap, floating point
// values are truncated toward zero, and double to float clamps to the float
// range. Strings are parsed and printed in base 10, with 0x and 0 prefixes
// accepted when parsing. Booleans convert only to and from the strings
// "true" and "false".
func Cast[To, From ScalarValue](v From) (To, error) {
	r, err := castAny(any(v), ScalarTypeOf[To]())
	if err != nil {
		var zero To
		return zero, err
	}
	return r.(To), nil
}

// MustCast is Cast for conversions known to succeed, such as numeric to
// numeric.
func MustCast[To, From ScalarValue](v From) To {
	r, err := Cast[To](v)
	if err != nil {
		panic(err)
	}
	return r
}

func scalarTypeOfValue(v any) ScalarType {
	switch v.(type) {
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
		panic(fmt.Sprintf("not a scalar value: %T", v))
	}
}

// castAny converts a scalar value held in an interface to the Go type that
// backs the given scalar type.
func castAny(v any, to ScalarType) (any, error) {
	from := scalarTypeOfValue(v)
	if from == to {
		return v, nil
	}
	switch {
	case to == TString:
		return formatScalar(v), nil
	case from == TString:
		return parseScalar(v.(string), to)
	case from == TBoolean || to == TBoolean:
		return nil, fmt.Errorf("%w: cannot convert %v to %v", ErrUnsupportedOperation, from, to)
	}

	switch to {
	case TFloat:
		if f, ok := v.(float64); ok {
			return doubleToFloat(f), nil
		}
		return float32(toFloat64(v)), nil
	case TDouble:
		return toFloat64(v), nil
	}
	return castRaw(toRaw(v), to), nil
}

// toRaw returns the two's complement bit pattern of an integer value, or of
// a floating point value truncated toward zero.
func toRaw(v any) uint64 {
	switch v := v.(type) {
	case int8:
		return uint64(v)
	case int16:
		return uint64(v)
	case int32:
		return uint64(v)
	case int64:
		return uint64(v)
	case uint8:
		return uint64(v)
	case uint16:
		return uint64(v)
	case uint32:
		return uint64(v)
	case uint64:
		return v
	case float32:
		return floatToRaw(float64(v))
	case float64:
		return floatToRaw(v)
	default:
		panic("unreachable")
	}
}

func floatToRaw(f float64) uint64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= 0 && f < math.MaxUint64:
		return uint64(f)
	case f >= math.MaxUint64:
		return math.MaxUint64
	case f < math.MinInt64:
		return 1 << 63
	default:
		return uint64(int64(f))
	}
}

func castRaw(raw uint64, to ScalarType) any {
	switch to {
	case TByte:
		return int8(raw)
	case TShort:
		return int16(raw)
	case TInt:
		return int32(raw)
	case TLong:
		return int64(raw)
	case TUByte:
		return uint8(raw)
	case TUShort:
		return uint16(raw)
	case TUInt:
		return uint32(raw)
	case TULong:
		return raw
	default:
		panic("unreachable")
	}
}

func toFloat64(v any) float64 {
	switch v := v.(type) {
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case float32:
		return float64(v)
	case float64:
		return v
	default:
		panic("unreachable")
	}
}

const smallestNormalFloat32 = 0x1p-126

// doubleToFloat clips magnitudes outside [FLT_MIN, FLT_MAX] to the nearest
// bound, keeping the sign. Zero, infinities and NaN pass through.
func doubleToFloat(f float64) float32 {
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return float32(f)
	}
	abs := math.Abs(f)
	switch {
	case abs <= smallestNormalFloat32:
		abs = smallestNormalFloat32
	case abs >= math.MaxFloat32:
		abs = math.MaxFloat32
	default:
		return float32(f)
	}
	return float32(math.Copysign(abs, f))
}

func formatScalar(v any) string {
	switch v := v.(type) {
	case bool:
		return strconv.FormatBool(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	default:
		panic("unreachable")
	}
}

func parseScalar(s string, to ScalarType) (any, error) {
	str := strings.TrimSpace(s)
	if to == TBoolean {
		switch {
		case strings.EqualFold(str, "true"):
			return true, nil
		case strings.EqualFold(str, "false"):
			return false, nil
		}
		return nil, fmt.Errorf("%w: %q is not true or false", ErrInvalidArgument, s)
	}
	if str == "" {
		return nil, fmt.Errorf("%w: no digits to convert to %v", ErrInvalidArgument, to)
	}
	bits := to.Size() * 8
	switch {
	case to.IsInteger():
		i, err := strconv.ParseInt(str, 0, bits)
		if err != nil {
			return nil, parseErr(s, to, err)
		}
		return castRaw(uint64(i), to), nil
	case to.IsUInteger():
		u, err := strconv.ParseUint(str, 0, bits)
		if err != nil {
			return nil, parseErr(s, to, err)
		}
		return castRaw(u, to), nil
	case to == TFloat:
		f, err := strconv.ParseFloat(str, 32)
		if err != nil {
			return nil, parseErr(s, to, err)
		}
		return float32(f), nil
	case to == TDouble:
		f, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return nil, parseErr(s, to, err)
		}
		return f, nil
	default:
		panic("unreachable")
	}
}

func parseErr(s string, to ScalarType, err error) error {
	if ne, ok := err.(*strconv.NumError); ok {
		err = ne.Err
	}
	return fmt.Errorf("%w: cannot parse %q as %v: %v", ErrInvalidArgument, s, to, err)
}

// zeroValue returns the default value of the Go type backing t.
func zeroValue(t ScalarType) any {
	switch t {
	case TBoolean:
		return false
	case TString:
		return ""
	case TFloat:
		return float32(0)
	case TDouble:
		return float64(0)
	default:
		return castRaw(0, t)
	}
}
