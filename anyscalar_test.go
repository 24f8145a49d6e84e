package pvdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnyScalar(t *testing.T) {
	var empty AnyScalar
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, "(nil)", empty.String())
	_, err := empty.Convert(TInt)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = AnyAs[int32](empty)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	a := AnyScalarOf(int16(-2))
	assert.False(t, a.IsEmpty())
	assert.Equal(t, TShort, a.Type())
	assert.Equal(t, int16(-2), a.Value())
	assert.Equal(t, "-2", a.String())

	b, err := a.Convert(TULong)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFE), b.Value())
	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(AnyScalarOf(int16(-2))))
	assert.True(t, empty.Equal(AnyScalar{}))
	assert.False(t, empty.Equal(a))

	s, err := AnyAs[string](a)
	require.NoError(t, err)
	assert.Equal(t, "-2", s)

	_, err = AnyAs[int32](AnyScalarOf("abc"))
	assert.Error(t, err)
	_, err = AnyScalarOf(true).Convert(TDouble)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestNewAnyScalar(t *testing.T) {
	a, err := NewAnyScalar(TDouble, "2.5")
	require.NoError(t, err)
	assert.Equal(t, 2.5, a.Value())

	_, err = NewAnyScalar(ScalarType(42), 1.0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewAnyScalar(TInt, 7)
	assert.ErrorIs(t, err, ErrInvalidArgument, "plain int is not a scalar value type")
	_, err = NewAnyScalar(TInt, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPutAnyScalar(t *testing.T) {
	reg := NewRegistry()
	pv := NewPVScalar[int32](reg.Scalar(TInt))
	require.NoError(t, PutAnyScalar(pv, AnyScalarOf(9.75)))
	assert.Equal(t, int32(9), pv.Get())

	got := GetAnyScalar(pv)
	assert.Equal(t, TInt, got.Type())
	assert.True(t, got.Equal(AnyScalarOf(int32(9))))

	assert.ErrorIs(t, PutAnyScalar(pv, AnyScalar{}), ErrInvalidArgument)

	pva := NewPVScalarArray[uint8](reg.ScalarArray(TUByte))
	require.NoError(t, PutAnyScalars(pva, []AnyScalar{AnyScalarOf(int64(1)), AnyScalarOf("2"), AnyScalarOf(int8(-1))}))
	assert.Equal(t, []uint8{1, 2, 255}, pva.View().Values())

	var fe *FieldError
	err := PutAnyScalars(pva, []AnyScalar{AnyScalarOf(int64(1)), AnyScalarOf("x")})
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "element 1", fe.Msg)
	assert.Equal(t, []uint8{1, 2, 255}, pva.View().Values())

	assert.ErrorIs(t, PutAnyScalars(pva, []AnyScalar{{}}), ErrInvalidArgument)

	pva.SetImmutable()
	assert.ErrorIs(t, PutAnyScalars(pva, nil), ErrImmutable)
}
