package pvdata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andreyvit/pvdata/wire"
)

var (
	ErrInvalidSchema        = errors.New("invalid schema")
	ErrImmutable            = errors.New("field is immutable")
	ErrCapacityLocked       = errors.New("capacity is immutable")
	ErrOverflow             = errors.New("value too long")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrFieldNotFound        = errors.New("field not found")
	ErrFieldTypeMismatch    = errors.New("field type mismatch")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrCorruptStream        = wire.ErrCorruptStream
)

// SchemaError reports a Field that cannot be constructed.
type SchemaError struct {
	ID   string
	Name string
	Msg  string
	Err  error
}

func schemaErrf(id, name string, format string, args ...any) error {
	return &SchemaError{id, name, fmt.Sprintf(format, args...), ErrInvalidSchema}
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

func (e *SchemaError) Error() string {
	var buf strings.Builder
	buf.WriteString("can't construct ")
	buf.WriteString(e.ID)
	if e.Name != "" {
		buf.WriteString(", field ")
		buf.WriteString(e.Name)
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	return buf.String()
}

// FieldError reports a failed operation on a particular PVField.
type FieldError struct {
	Path string
	Msg  string
	Err  error
}

type fullNamer interface {
	FullName() string
}

func fieldErrf(pv fullNamer, err error, format string, args ...any) error {
	return &FieldError{pv.FullName(), fmt.Sprintf(format, args...), err}
}

func pathErrf(path string, err error, format string, args ...any) error {
	return &FieldError{path, fmt.Sprintf(format, args...), err}
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func (e *FieldError) Error() string {
	var buf strings.Builder
	if e.Path != "" {
		buf.WriteString(e.Path)
	} else {
		buf.WriteString("<root>")
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
		if e.Err != nil {
			buf.WriteString(": ")
			buf.WriteString(e.Err.Error())
		}
	} else if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

func immutableErr(pv fullNamer) error {
	return fieldErrf(pv, ErrImmutable, "")
}
