package pvdata

import (
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultStructureID = "structure"
	DefaultUnionID     = "union"
	AnyID              = "any"
)

// Field is an immutable type descriptor. The set of implementations is
// closed: *Scalar, *ScalarArray, *Structure, *StructureArray, *Union and
// *UnionArray.
type Field interface {
	Kind() Kind
	ID() string
	String() string
	Hash() uint64
	header() *fieldHeader
}

type fieldHeader struct {
	hash uint64
	reg  *Registry
}

func (h *fieldHeader) header() *fieldHeader { return h }

// Hash returns the structural hash of the descriptor. Structurally equal
// descriptors have equal hashes.
func (h *fieldHeader) Hash() uint64 { return h.hash }

type Scalar struct {
	fieldHeader
	typ    ScalarType
	maxLen int
}

func (f *Scalar) Kind() Kind             { return KindScalar }
func (f *Scalar) ScalarType() ScalarType { return f.typ }

// MaxLength is the maximum string length of a bounded string, 0 otherwise.
func (f *Scalar) MaxLength() int { return f.maxLen }

func (f *Scalar) ID() string {
	if f.maxLen > 0 {
		return f.typ.String() + "(" + strconv.Itoa(f.maxLen) + ")"
	}
	return f.typ.String()
}

func (f *Scalar) String() string { return FormatField(f) }

type ScalarArray struct {
	fieldHeader
	elem     ScalarType
	sizeType ArraySizeType
	max      int
}

func (f *ScalarArray) Kind() Kind              { return KindScalarArray }
func (f *ScalarArray) ElementType() ScalarType { return f.elem }
func (f *ScalarArray) SizeType() ArraySizeType { return f.sizeType }

// MaxCapacity is the bound of a bounded or fixed array, 0 for variable ones.
func (f *ScalarArray) MaxCapacity() int { return f.max }

func (f *ScalarArray) ID() string {
	switch f.sizeType {
	case Bounded:
		return f.elem.String() + "<" + strconv.Itoa(f.max) + ">"
	case Fixed:
		return f.elem.String() + "[" + strconv.Itoa(f.max) + "]"
	default:
		return f.elem.String() + "[]"
	}
}

func (f *ScalarArray) String() string { return FormatField(f) }

// fieldList is shared by Structure and Union.
type fieldList struct {
	id     string
	names  []string
	fields []Field
}

func (l *fieldList) ID() string             { return l.id }
func (l *fieldList) NumFields() int         { return len(l.fields) }
func (l *fieldList) FieldAt(i int) Field    { return l.fields[i] }
func (l *fieldList) FieldName(i int) string { return l.names[i] }

// FieldNames returns a copy of the field names in declaration order.
func (l *fieldList) FieldNames() []string { return slices.Clone(l.names) }

// Fields returns a copy of the child fields in declaration order.
func (l *fieldList) Fields() []Field { return slices.Clone(l.fields) }

// FieldIndex returns the index of the named field, or -1.
func (l *fieldList) FieldIndex(name string) int {
	for i, n := range l.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Field returns the named child, or nil.
func (l *fieldList) Field(name string) Field {
	if i := l.FieldIndex(name); i >= 0 {
		return l.fields[i]
	}
	return nil
}

// Lookup resolves a dotted path through nested structures and unions.
func (l *fieldList) Lookup(path string) Field {
	name, rest, nested := strings.Cut(path, ".")
	f := l.Field(name)
	if !nested || f == nil {
		return f
	}
	switch f := f.(type) {
	case *Structure:
		return f.Lookup(rest)
	case *Union:
		return f.Lookup(rest)
	default:
		return nil
	}
}

type Structure struct {
	fieldHeader
	fieldList
}

func (f *Structure) Kind() Kind     { return KindStructure }
func (f *Structure) String() string { return FormatField(f) }

type Union struct {
	fieldHeader
	fieldList
}

func (f *Union) Kind() Kind     { return KindUnion }
func (f *Union) String() string { return FormatField(f) }

// IsVariant reports a union without declared fields, which holds any type.
func (f *Union) IsVariant() bool { return len(f.fields) == 0 }

type StructureArray struct {
	fieldHeader
	elem *Structure
}

func (f *StructureArray) Kind() Kind               { return KindStructureArray }
func (f *StructureArray) ID() string               { return f.elem.ID() + "[]" }
func (f *StructureArray) ElementField() *Structure { return f.elem }
func (f *StructureArray) String() string           { return FormatField(f) }

type UnionArray struct {
	fieldHeader
	elem *Union
}

func (f *UnionArray) Kind() Kind           { return KindUnionArray }
func (f *UnionArray) ID() string           { return f.elem.ID() + "[]" }
func (f *UnionArray) ElementField() *Union { return f.elem }
func (f *UnionArray) IsVariant() bool      { return f.elem.IsVariant() }
func (f *UnionArray) String() string       { return FormatField(f) }

// Equal reports structural equality: same kind, element type, bounds, id,
// and recursively the same names and children.
func Equal(a, b Field) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a == b {
		return true
	}
	if a.Hash() != b.Hash() || a.Kind() != b.Kind() {
		return false
	}
	switch a := a.(type) {
	case *Scalar:
		b := b.(*Scalar)
		return a.typ == b.typ && a.maxLen == b.maxLen
	case *ScalarArray:
		b := b.(*ScalarArray)
		return a.elem == b.elem && a.sizeType == b.sizeType && a.max == b.max
	case *Structure:
		return equalLists(&a.fieldList, &b.(*Structure).fieldList)
	case *Union:
		return equalLists(&a.fieldList, &b.(*Union).fieldList)
	case *StructureArray:
		return Equal(a.elem, b.(*StructureArray).elem)
	case *UnionArray:
		return Equal(a.elem, b.(*UnionArray).elem)
	default:
		panic("unreachable")
	}
}

func equalLists(a, b *fieldList) bool {
	if a.id != b.id || len(a.fields) != len(b.fields) {
		return false
	}
	for i := range a.fields {
		if a.names[i] != b.names[i] || !Equal(a.fields[i], b.fields[i]) {
			return false
		}
	}
	return true
}

// FormatField renders a descriptor as an indented tree, one "id name" line
// per child.
func FormatField(f Field) string {
	var buf strings.Builder
	buf.WriteString(f.ID())
	formatFieldChildren(&buf, f, 1)
	return buf.String()
}

func formatFieldChildren(buf *strings.Builder, f Field, depth int) {
	var l *fieldList
	switch f := f.(type) {
	case *Structure:
		l = &f.fieldList
	case *Union:
		l = &f.fieldList
	case *StructureArray:
		l = &f.elem.fieldList
	case *UnionArray:
		l = &f.elem.fieldList
	default:
		return
	}
	for i, child := range l.fields {
		buf.WriteByte('\n')
		buf.WriteString(strings.Repeat("    ", depth))
		buf.WriteString(child.ID())
		buf.WriteByte(' ')
		buf.WriteString(l.names[i])
		formatFieldChildren(buf, child, depth+1)
	}
}
