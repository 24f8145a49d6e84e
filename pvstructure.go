package pvdata

import (
	"slices"
	"strings"
)

// PVStructure holds one value container per field of a Structure, in
// declaration order.
type PVStructure struct {
	pvBase
	field  *Structure
	fields []PVField
}

// NewPVStructure creates a root structure with default values throughout.
func NewPVStructure(f *Structure) *PVStructure {
	pvs := newPVStructure(f)
	computeOffsets(pvs, 0)
	return pvs
}

func newPVStructure(f *Structure) *PVStructure {
	pvs := &PVStructure{field: f, fields: make([]PVField, len(f.fields))}
	for i, cf := range f.fields {
		pvs.adopt(i, f.names[i], newPVField(cf))
	}
	return pvs
}

func (pvs *PVStructure) adopt(i int, name string, child PVField) {
	b := child.base()
	b.parent = pvs
	b.name = name
	pvs.fields[i] = child
}

func (pvs *PVStructure) Field() Field          { return pvs.field }
func (pvs *PVStructure) Structure() *Structure { return pvs.field }
func (pvs *PVStructure) NumFields() int        { return len(pvs.fields) }
func (pvs *PVStructure) String() string        { return Dump(pvs) }

// PVFields returns the children in declaration order.
func (pvs *PVStructure) PVFields() []PVField { return slices.Clone(pvs.fields) }

// PVFieldAt returns the i-th child.
func (pvs *PVStructure) PVFieldAt(i int) PVField { return pvs.fields[i] }

func (pvs *PVStructure) SetImmutable() {
	pvs.immutable = true
	for _, child := range pvs.fields {
		child.SetImmutable()
	}
}

// SubField resolves a dotted path through nested structures. It returns nil
// when any segment is missing.
func (pvs *PVStructure) SubField(path string) PVField {
	cur := pvs
	for {
		name, rest, nested := strings.Cut(path, ".")
		if name == "" {
			return nil
		}
		i := cur.field.FieldIndex(name)
		if i < 0 {
			return nil
		}
		child := cur.fields[i]
		if !nested {
			return child
		}
		next, ok := child.(*PVStructure)
		if !ok {
			return nil
		}
		cur, path = next, rest
	}
}

// SubFieldAt returns the descendant whose offset is offset. The structure's
// own offset and offsets outside its range yield nil.
func (pvs *PVStructure) SubFieldAt(offset int) PVField {
	if offset <= pvs.offset || offset >= pvs.next {
		return nil
	}
	for _, child := range pvs.fields {
		b := child.base()
		if b.offset == offset {
			return child
		}
		if offset < b.next {
			if s, ok := child.(*PVStructure); ok {
				return s.SubFieldAt(offset)
			}
			return nil
		}
	}
	return nil
}

func (pvs *PVStructure) subPath(path string) string {
	if prefix := pvs.FullName(); prefix != "" {
		return prefix + "." + path
	}
	return path
}

// MustSubField is SubField reporting a miss as an error wrapping
// ErrFieldNotFound.
func (pvs *PVStructure) MustSubField(path string) (PVField, error) {
	if pv := pvs.SubField(path); pv != nil {
		return pv, nil
	}
	return nil, pathErrf(pvs.subPath(path), ErrFieldNotFound, "")
}

func (pvs *PVStructure) MustSubFieldAt(offset int) (PVField, error) {
	if pv := pvs.SubFieldAt(offset); pv != nil {
		return pv, nil
	}
	return nil, fieldErrf(pvs, ErrFieldNotFound, "no field at offset %d", offset)
}

// SubFieldAs resolves path and checks the node type.
func SubFieldAs[T PVField](pvs *PVStructure, path string) (T, error) {
	var zero T
	pv, err := pvs.MustSubField(path)
	if err != nil {
		return zero, err
	}
	r, ok := pv.(T)
	if !ok {
		return zero, fieldErrf(pv, ErrFieldTypeMismatch, "is %s", pv.Field().ID())
	}
	return r, nil
}

func subFieldOf[T PVField](pvs *PVStructure, path string) T {
	r, _ := pvs.SubField(path).(T)
	return r
}

func (pvs *PVStructure) BooleanField(path string) *PVBoolean { return subFieldOf[*PVBoolean](pvs, path) }
func (pvs *PVStructure) ByteField(path string) *PVByte       { return subFieldOf[*PVByte](pvs, path) }
func (pvs *PVStructure) ShortField(path string) *PVShort     { return subFieldOf[*PVShort](pvs, path) }
func (pvs *PVStructure) IntField(path string) *PVInt         { return subFieldOf[*PVInt](pvs, path) }
func (pvs *PVStructure) LongField(path string) *PVLong       { return subFieldOf[*PVLong](pvs, path) }
func (pvs *PVStructure) UByteField(path string) *PVUByte     { return subFieldOf[*PVUByte](pvs, path) }
func (pvs *PVStructure) UShortField(path string) *PVUShort   { return subFieldOf[*PVUShort](pvs, path) }
func (pvs *PVStructure) UIntField(path string) *PVUInt       { return subFieldOf[*PVUInt](pvs, path) }
func (pvs *PVStructure) ULongField(path string) *PVULong     { return subFieldOf[*PVULong](pvs, path) }
func (pvs *PVStructure) FloatField(path string) *PVFloat     { return subFieldOf[*PVFloat](pvs, path) }
func (pvs *PVStructure) DoubleField(path string) *PVDouble   { return subFieldOf[*PVDouble](pvs, path) }
func (pvs *PVStructure) StringField(path string) *PVString   { return subFieldOf[*PVString](pvs, path) }

func (pvs *PVStructure) StructureField(path string) *PVStructure {
	return subFieldOf[*PVStructure](pvs, path)
}

func (pvs *PVStructure) UnionField(path string) *PVUnion {
	return subFieldOf[*PVUnion](pvs, path)
}

func (pvs *PVStructure) ScalarArrayField(path string) AnyPVScalarArray {
	return subFieldOf[AnyPVScalarArray](pvs, path)
}

func (pvs *PVStructure) StructureArrayField(path string) *PVStructureArray {
	return subFieldOf[*PVStructureArray](pvs, path)
}

func (pvs *PVStructure) UnionArrayField(path string) *PVUnionArray {
	return subFieldOf[*PVUnionArray](pvs, path)
}

// AppendPVField adds a root value as a new last field. The structure's
// descriptor, and those of its ancestors, are replaced and offsets are
// renumbered from the top.
func (pvs *PVStructure) AppendPVField(name string, pv PVField) error {
	return pvs.AppendPVFields([]string{name}, []PVField{pv})
}

func (pvs *PVStructure) AppendPVFields(names []string, pvFields []PVField) error {
	if err := pvs.checkEditable(); err != nil {
		return err
	}
	if len(names) != len(pvFields) {
		return fieldErrf(pvs, ErrInvalidArgument, "%d names for %d fields", len(names), len(pvFields))
	}
	fields := make([]Field, len(pvFields))
	for i, pv := range pvFields {
		if pv == nil {
			return fieldErrf(pvs, ErrInvalidArgument, "nil value for %s", names[i])
		}
		if pv.Parent() != nil || pv == Root(pvs) {
			return fieldErrf(pvs, ErrInvalidArgument, "%s is already part of a structure", names[i])
		}
		if pv.base().pinned {
			return fieldErrf(pvs, ErrInvalidArgument, "%s is held by an array or union", names[i])
		}
		for _, other := range pvFields[:i] {
			if other == pv {
				return fieldErrf(pvs, ErrInvalidArgument, "%s is added twice", names[i])
			}
		}
		fields[i] = pv.Field()
	}
	f, err := RegistryOf(pvs.field).AppendFields(pvs.field, names, fields)
	if err != nil {
		return err
	}
	n := len(pvs.fields)
	pvs.fields = append(pvs.fields, make([]PVField, len(pvFields))...)
	for i, pv := range pvFields {
		pvs.adopt(n+i, names[i], pv)
	}
	return pvs.replaceField(f)
}

// RemovePVField detaches the named child, which becomes a root of its own.
func (pvs *PVStructure) RemovePVField(name string) error {
	if err := pvs.checkEditable(); err != nil {
		return err
	}
	i := pvs.field.FieldIndex(name)
	if i < 0 {
		return pathErrf(pvs.subPath(name), ErrFieldNotFound, "")
	}
	f, err := RegistryOf(pvs.field).RemoveField(pvs.field, name)
	if err != nil {
		return err
	}
	removed := pvs.fields[i]
	pvs.fields = slices.Delete(pvs.fields, i, i+1)
	b := removed.base()
	b.parent, b.name = nil, ""
	computeOffsets(removed, 0)
	return pvs.replaceField(f)
}

// checkEditable rejects structural edits of immutable structures and of
// trees whose root is an element of an array or the value of a union.
func (pvs *PVStructure) checkEditable() error {
	if pvs.immutable {
		return immutableErr(pvs)
	}
	if Root(pvs).base().pinned {
		return fieldErrf(pvs, ErrInvalidArgument, "type is fixed by the containing array or union")
	}
	return nil
}

// replaceField installs a new descriptor, propagates it up through the
// ancestors and renumbers the whole tree.
func (pvs *PVStructure) replaceField(f *Structure) error {
	pvs.field = f
	for cur := pvs; cur.parent != nil; cur = cur.parent {
		p := cur.parent
		i := slices.Index(p.fields, PVField(cur))
		if i < 0 {
			panic("pvdata: " + cur.FullName() + " missing from its parent")
		}
		fields := p.field.Fields()
		fields[i] = cur.field
		pf, err := RegistryOf(p.field).StructureID(p.field.id, p.field.names, fields)
		if err != nil {
			return err
		}
		p.field = pf
	}
	computeOffsets(Root(pvs), 0)
	return nil
}
