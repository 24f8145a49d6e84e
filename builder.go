package pvdata

import (
	"fmt"
)

type nestedKind uint8

const (
	nestedNone nestedKind = iota
	nestedStructure
	nestedUnion
	nestedStructureArray
	nestedUnionArray
)

// FieldBuilder assembles a Structure or Union field by field. The first
// error is remembered and returned by CreateStructure or CreateUnion, so
// calls can be chained:
//
//	s, err := reg.Builder().
//		Add("value", pvdata.TDouble).
//		AddNestedStructure("alarm").
//			Add("severity", pvdata.TInt).
//			EndNested().
//		CreateStructure()
type FieldBuilder struct {
	reg    *Registry
	parent *FieldBuilder
	kind   nestedKind
	name   string
	id     string
	names  []string
	fields []Field
	err    error
}

func (reg *Registry) Builder() *FieldBuilder {
	return &FieldBuilder{reg: reg}
}

func (b *FieldBuilder) fail(err error) *FieldBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *FieldBuilder) SetID(id string) *FieldBuilder {
	b.id = id
	return b
}

func (b *FieldBuilder) AddField(name string, f Field) *FieldBuilder {
	if f == nil {
		return b.fail(schemaErrf(b.describe(), name, "nil field"))
	}
	b.names = append(b.names, name)
	b.fields = append(b.fields, f)
	return b
}

func (b *FieldBuilder) Add(name string, t ScalarType) *FieldBuilder {
	if !t.valid() {
		return b.fail(schemaErrf(b.describe(), name, "invalid scalar type %d", uint8(t)))
	}
	return b.AddField(name, b.reg.Scalar(t))
}

func (b *FieldBuilder) AddBoundedString(name string, maxLen int) *FieldBuilder {
	f, err := b.reg.BoundedString(maxLen)
	if err != nil {
		return b.fail(err)
	}
	return b.AddField(name, f)
}

func (b *FieldBuilder) AddArray(name string, t ScalarType) *FieldBuilder {
	if !t.valid() {
		return b.fail(schemaErrf(b.describe(), name, "invalid scalar type %d", uint8(t)))
	}
	return b.AddField(name, b.reg.ScalarArray(t))
}

func (b *FieldBuilder) AddBoundedArray(name string, t ScalarType, size int) *FieldBuilder {
	if !t.valid() {
		return b.fail(schemaErrf(b.describe(), name, "invalid scalar type %d", uint8(t)))
	}
	f, err := b.reg.BoundedScalarArray(t, size)
	if err != nil {
		return b.fail(err)
	}
	return b.AddField(name, f)
}

func (b *FieldBuilder) AddFixedArray(name string, t ScalarType, size int) *FieldBuilder {
	if !t.valid() {
		return b.fail(schemaErrf(b.describe(), name, "invalid scalar type %d", uint8(t)))
	}
	f, err := b.reg.FixedScalarArray(t, size)
	if err != nil {
		return b.fail(err)
	}
	return b.AddField(name, f)
}

// AddFieldArray adds an array of the given structure or union.
func (b *FieldBuilder) AddFieldArray(name string, elem Field) *FieldBuilder {
	switch elem := elem.(type) {
	case *Structure:
		return b.AddField(name, b.reg.StructureArray(elem))
	case *Union:
		return b.AddField(name, b.reg.UnionArray(elem))
	case *Scalar:
		return b.AddArray(name, elem.typ)
	default:
		return b.fail(schemaErrf(b.describe(), name, "cannot make an array of %v", elem))
	}
}

func (b *FieldBuilder) nested(kind nestedKind, name string) *FieldBuilder {
	return &FieldBuilder{reg: b.reg, parent: b, kind: kind, name: name, err: b.err}
}

func (b *FieldBuilder) AddNestedStructure(name string) *FieldBuilder {
	return b.nested(nestedStructure, name)
}

func (b *FieldBuilder) AddNestedUnion(name string) *FieldBuilder {
	return b.nested(nestedUnion, name)
}

func (b *FieldBuilder) AddNestedStructureArray(name string) *FieldBuilder {
	return b.nested(nestedStructureArray, name)
}

func (b *FieldBuilder) AddNestedUnionArray(name string) *FieldBuilder {
	return b.nested(nestedUnionArray, name)
}

// EndNested finishes a nested builder, adds the result to the enclosing
// builder and returns it.
func (b *FieldBuilder) EndNested() *FieldBuilder {
	p := b.parent
	if p == nil {
		return b.fail(fmt.Errorf("%w: EndNested without a nested builder", ErrInvalidArgument))
	}
	if b.err != nil {
		return p.fail(b.err)
	}
	switch b.kind {
	case nestedStructure, nestedStructureArray:
		s, err := b.reg.StructureID(b.idOr(DefaultStructureID), b.names, b.fields)
		if err != nil {
			return p.fail(err)
		}
		if b.kind == nestedStructureArray {
			return p.AddField(b.name, b.reg.StructureArray(s))
		}
		return p.AddField(b.name, s)
	case nestedUnion, nestedUnionArray:
		u, err := b.reg.UnionID(b.idOr(DefaultUnionID), b.names, b.fields)
		if err != nil {
			return p.fail(err)
		}
		if b.kind == nestedUnionArray {
			return p.AddField(b.name, b.reg.UnionArray(u))
		}
		return p.AddField(b.name, u)
	default:
		panic("unreachable")
	}
}

func (b *FieldBuilder) idOr(def string) string {
	if b.id == "" {
		return def
	}
	return b.id
}

func (b *FieldBuilder) describe() string {
	if b.name != "" {
		return b.name
	}
	return b.idOr("structure")
}

func (b *FieldBuilder) checkTopLevel() error {
	if b.err != nil {
		return b.err
	}
	if b.parent != nil {
		return fmt.Errorf("%w: nested builder %q not ended", ErrInvalidArgument, b.name)
	}
	return nil
}

func (b *FieldBuilder) CreateStructure() (*Structure, error) {
	if err := b.checkTopLevel(); err != nil {
		return nil, err
	}
	return b.reg.StructureID(b.idOr(DefaultStructureID), b.names, b.fields)
}

func (b *FieldBuilder) CreateUnion() (*Union, error) {
	if err := b.checkTopLevel(); err != nil {
		return nil, err
	}
	return b.reg.UnionID(b.idOr(DefaultUnionID), b.names, b.fields)
}
