package pvdata

// PostHandler is notified by PVField.PostPut. Handlers are compared by
// identity, so implementations should be pointers.
type PostHandler interface {
	PostPut()
}

// PVField is a mutable value container bound to a Field. The set of
// implementations is closed: *PVScalar[T], *PVScalarArray[T], *PVStructure,
// *PVUnion, *PVStructureArray and *PVUnionArray.
type PVField interface {
	Field() Field

	// FieldName is the name of this field in its parent structure, or ""
	// for a root.
	FieldName() string

	// FullName is the dotted path from the root.
	FullName() string

	Parent() *PVStructure
	IsImmutable() bool

	// SetImmutable marks the field, and everything it contains, as
	// read-only. It cannot be undone.
	SetImmutable()

	FieldOffset() int
	NextFieldOffset() int
	NumberFields() int

	// PostPut invokes the change handler, if any.
	PostPut()
	SetPostHandler(h PostHandler) error

	String() string

	base() *pvBase
}

type pvBase struct {
	parent    *PVStructure
	name      string
	offset    int
	next      int
	immutable bool
	handler   PostHandler

	// pinned is set on roots held by an element array or a union, whose
	// descriptor must keep matching the container's.
	pinned bool
}

func (b *pvBase) base() *pvBase { return b }

func (b *pvBase) FieldName() string    { return b.name }
func (b *pvBase) Parent() *PVStructure { return b.parent }
func (b *pvBase) IsImmutable() bool    { return b.immutable }
func (b *pvBase) FieldOffset() int     { return b.offset }
func (b *pvBase) NextFieldOffset() int { return b.next }
func (b *pvBase) NumberFields() int    { return b.next - b.offset }

func (b *pvBase) FullName() string {
	if b.parent == nil {
		return b.name
	}
	if prefix := b.parent.FullName(); prefix != "" {
		return prefix + "." + b.name
	}
	return b.name
}

func (b *pvBase) PostPut() {
	if b.handler != nil {
		b.handler.PostPut()
	}
}

// SetPostHandler registers h. A field has at most one handler; registering
// the same handler again is a no-op, a different one is an error.
func (b *pvBase) SetPostHandler(h PostHandler) error {
	if b.handler == nil {
		b.handler = h
		return nil
	}
	if b.handler == h {
		return nil
	}
	return fieldErrf(b, ErrInvalidArgument, "a different post handler is already registered")
}

func pin(pv PVField) {
	pv.base().pinned = true
}

// Root returns the top-level structure pv belongs to, or pv itself.
func Root(pv PVField) PVField {
	for {
		p := pv.Parent()
		if p == nil {
			return pv
		}
		pv = p
	}
}

// computeOffsets numbers pv and its descendants in declaration order,
// starting at offset, and returns the next free offset.
func computeOffsets(pv PVField, offset int) int {
	b := pv.base()
	b.offset = offset
	next := offset + 1
	if pvs, ok := pv.(*PVStructure); ok {
		for _, child := range pvs.fields {
			next = computeOffsets(child, next)
		}
	}
	b.next = next
	return next
}

// NewPVField creates a value container for f with default values. The
// result is a root: it has no parent and its offset is 0.
func NewPVField(f Field) PVField {
	pv := newPVField(f)
	computeOffsets(pv, 0)
	return pv
}

func newPVField(f Field) PVField {
	switch f := f.(type) {
	case *Scalar:
		return newPVScalar(f)
	case *ScalarArray:
		return newPVScalarArray(f)
	case *Structure:
		return newPVStructure(f)
	case *StructureArray:
		return newPVStructureArray(f)
	case *Union:
		return newPVUnion(f)
	case *UnionArray:
		return newPVUnionArray(f)
	case nil:
		panic("nil field")
	default:
		panic("unreachable")
	}
}

// ClonePVField returns a deep copy of pv as a new root. Scalar array
// storage is shared copy-on-write. The copy is never immutable.
func ClonePVField(pv PVField) PVField {
	c := NewPVField(pv.Field())
	if err := copyUnchecked(pv, c); err != nil {
		panic(err)
	}
	return c
}

func ClonePVStructure(pvs *PVStructure) *PVStructure {
	return ClonePVField(pvs).(*PVStructure)
}

// EqualPV reports whether a and b have structurally equal fields and equal
// values throughout.
func EqualPV(a, b PVField) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !Equal(a.Field(), b.Field()) {
		return false
	}
	switch a := a.(type) {
	case AnyPVScalar:
		return a.AnyValue() == b.(AnyPVScalar).AnyValue()
	case AnyPVScalarArray:
		return a.equalElements(b.(AnyPVScalarArray))
	case *PVStructure:
		b := b.(*PVStructure)
		for i, child := range a.fields {
			if !EqualPV(child, b.fields[i]) {
				return false
			}
		}
		return true
	case *PVUnion:
		b := b.(*PVUnion)
		return a.selector == b.selector && EqualPV(a.value, b.value)
	case *PVStructureArray:
		return equalElementArrays(a.value.Values(), b.(*PVStructureArray).value.Values())
	case *PVUnionArray:
		return equalElementArrays(a.value.Values(), b.(*PVUnionArray).value.Values())
	default:
		panic("unreachable")
	}
}

func equalElementArrays[E PVField](a, b []E) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !EqualPV(nilIfEmpty(a[i]), nilIfEmpty(b[i])) {
			return false
		}
	}
	return true
}

// nilIfEmpty turns a typed nil element into an untyped nil PVField.
func nilIfEmpty[E PVField](e E) PVField {
	if isNilElement(e) {
		return nil
	}
	return e
}

func isNilElement[E PVField](e E) bool {
	switch e := any(e).(type) {
	case *PVStructure:
		return e == nil
	case *PVUnion:
		return e == nil
	default:
		return any(e) == nil
	}
}
