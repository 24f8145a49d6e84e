package pvdata

import (
	"encoding/binary"
	"fmt"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Registry creates and interns Field descriptors. Structurally equal
// descriptors created through the same registry are the same pointer, so
// pointer comparison is a valid fast path for Equal.
//
// A Registry is safe for concurrent use. Descriptors it returns are
// immutable.
type Registry struct {
	mu     sync.Mutex
	fields map[uint64][]Field
	count  int
}

func NewRegistry() *Registry {
	return &Registry{fields: make(map[uint64][]Field)}
}

// Len returns the number of distinct descriptors interned so far.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.count
}

func intern[F Field](reg *Registry, f F) F {
	h := f.header()
	h.reg = reg
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for _, e := range reg.fields[h.hash] {
		if Equal(e, f) {
			return e.(F)
		}
	}
	reg.fields[h.hash] = append(reg.fields[h.hash], f)
	reg.count++
	return f
}

type digest struct {
	*xxhash.Digest
	tmp [8]byte
}

func newDigest(k Kind) *digest {
	d := &digest{Digest: xxhash.New()}
	d.writeUint(uint64(k))
	return d
}

func (d *digest) writeUint(v uint64) {
	binary.LittleEndian.PutUint64(d.tmp[:], v)
	d.Write(d.tmp[:])
}

func (d *digest) writeString(s string) {
	d.writeUint(uint64(len(s)))
	d.WriteString(s)
}

func (d *digest) writeList(l *fieldList) {
	d.writeString(l.id)
	d.writeUint(uint64(len(l.fields)))
	for i, f := range l.fields {
		d.writeString(l.names[i])
		d.writeUint(f.Hash())
	}
}

func checkScalarType(t ScalarType) error {
	if !t.valid() {
		return schemaErrf(fmt.Sprintf("scalar type %d", uint8(t)), "", "invalid scalar type")
	}
	return nil
}

func mustScalarType(t ScalarType) {
	if err := checkScalarType(t); err != nil {
		panic(err)
	}
}

// Scalar returns the scalar descriptor for t. It panics if t is not one of
// the defined scalar types.
func (reg *Registry) Scalar(t ScalarType) *Scalar {
	mustScalarType(t)
	return reg.scalar(t, 0)
}

func (reg *Registry) scalar(t ScalarType, maxLen int) *Scalar {
	d := newDigest(KindScalar)
	d.writeUint(uint64(t))
	d.writeUint(uint64(maxLen))
	f := &Scalar{typ: t, maxLen: maxLen}
	f.hash = d.Sum64()
	return intern(reg, f)
}

// BoundedString returns a string scalar whose values may not exceed maxLen
// bytes.
func (reg *Registry) BoundedString(maxLen int) (*Scalar, error) {
	if maxLen <= 0 {
		return nil, schemaErrf("string(...)", "", "maxLength must be positive, got %d", maxLen)
	}
	return reg.scalar(TString, maxLen), nil
}

// ScalarArray returns the variable size array descriptor for t. Like
// Scalar, it panics on an undefined t.
func (reg *Registry) ScalarArray(t ScalarType) *ScalarArray {
	mustScalarType(t)
	return reg.scalarArray(t, Variable, 0)
}

func (reg *Registry) BoundedScalarArray(t ScalarType, size int) (*ScalarArray, error) {
	if err := checkScalarType(t); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, schemaErrf(t.String()+"<...>", "", "size must be positive, got %d", size)
	}
	return reg.scalarArray(t, Bounded, size), nil
}

func (reg *Registry) FixedScalarArray(t ScalarType, size int) (*ScalarArray, error) {
	if err := checkScalarType(t); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, schemaErrf(t.String()+"[...]", "", "size must be positive, got %d", size)
	}
	return reg.scalarArray(t, Fixed, size), nil
}

func (reg *Registry) scalarArray(t ScalarType, st ArraySizeType, size int) *ScalarArray {
	d := newDigest(KindScalarArray)
	d.writeUint(uint64(t))
	d.writeUint(uint64(st))
	d.writeUint(uint64(size))
	f := &ScalarArray{elem: t, sizeType: st, max: size}
	f.hash = d.Sum64()
	return intern(reg, f)
}

func validateList(what, id string, names []string, fields []Field) error {
	if id == "" {
		return schemaErrf(what, "", "id is empty string")
	}
	if len(names) != len(fields) {
		return schemaErrf(id, "", "%d names for %d fields", len(names), len(fields))
	}
	for i, name := range names {
		if name == "" {
			return schemaErrf(id, "", "empty string in field names")
		}
		if fields[i] == nil {
			return schemaErrf(id, name, "nil field")
		}
		for _, other := range names[i+1:] {
			if other == name {
				return schemaErrf(id, name, "duplicate field name")
			}
		}
	}
	return nil
}

// Structure returns a structure with the default id.
func (reg *Registry) Structure(names []string, fields []Field) (*Structure, error) {
	return reg.StructureID(DefaultStructureID, names, fields)
}

func (reg *Registry) StructureID(id string, names []string, fields []Field) (*Structure, error) {
	if err := validateList("structure", id, names, fields); err != nil {
		return nil, err
	}
	f := &Structure{fieldList: fieldList{id, slices.Clone(names), slices.Clone(fields)}}
	d := newDigest(KindStructure)
	d.writeList(&f.fieldList)
	f.hash = d.Sum64()
	return intern(reg, f), nil
}

// MustStructure is Structure for statically known schemas; it panics on
// invalid input.
func (reg *Registry) MustStructure(names []string, fields []Field) *Structure {
	s, err := reg.Structure(names, fields)
	if err != nil {
		panic(err)
	}
	return s
}

func (reg *Registry) StructureArray(elem *Structure) *StructureArray {
	if elem == nil {
		panic("nil structure")
	}
	d := newDigest(KindStructureArray)
	d.writeUint(elem.Hash())
	f := &StructureArray{elem: elem}
	f.hash = d.Sum64()
	return intern(reg, f)
}

// Union returns a union with the default id. An empty field list is only
// allowed for the variant union, see VariantUnion.
func (reg *Registry) Union(names []string, fields []Field) (*Union, error) {
	return reg.UnionID(DefaultUnionID, names, fields)
}

func (reg *Registry) UnionID(id string, names []string, fields []Field) (*Union, error) {
	if err := validateList("union", id, names, fields); err != nil {
		return nil, err
	}
	if len(fields) == 0 && id != AnyID {
		return nil, schemaErrf(id, "", "no fields only allowed when id = %s", AnyID)
	}
	f := &Union{fieldList: fieldList{id, slices.Clone(names), slices.Clone(fields)}}
	d := newDigest(KindUnion)
	d.writeList(&f.fieldList)
	f.hash = d.Sum64()
	return intern(reg, f), nil
}

func (reg *Registry) MustUnion(names []string, fields []Field) *Union {
	u, err := reg.Union(names, fields)
	if err != nil {
		panic(err)
	}
	return u
}

// VariantUnion returns the union that accepts a value of any type.
func (reg *Registry) VariantUnion() *Union {
	u, err := reg.UnionID(AnyID, nil, nil)
	if err != nil {
		panic(err)
	}
	return u
}

func (reg *Registry) UnionArray(elem *Union) *UnionArray {
	if elem == nil {
		panic("nil union")
	}
	d := newDigest(KindUnionArray)
	d.writeUint(elem.Hash())
	f := &UnionArray{elem: elem}
	f.hash = d.Sum64()
	return intern(reg, f)
}

func (reg *Registry) VariantUnionArray() *UnionArray {
	return reg.UnionArray(reg.VariantUnion())
}

// AppendField returns a new structure with the field added at the end. s is
// not modified.
func (reg *Registry) AppendField(s *Structure, name string, f Field) (*Structure, error) {
	return reg.AppendFields(s, []string{name}, []Field{f})
}

func (reg *Registry) AppendFields(s *Structure, names []string, fields []Field) (*Structure, error) {
	if len(names) != len(fields) {
		return nil, schemaErrf(s.id, "", "%d names for %d fields", len(names), len(fields))
	}
	return reg.StructureID(s.id, append(slices.Clone(s.names), names...), append(slices.Clone(s.fields), fields...))
}

// RemoveField returns a new structure without the named field.
func (reg *Registry) RemoveField(s *Structure, name string) (*Structure, error) {
	i := s.FieldIndex(name)
	if i < 0 {
		return nil, pathErrf(name, ErrFieldNotFound, "")
	}
	return reg.StructureID(s.id, slices.Delete(slices.Clone(s.names), i, i+1), slices.Delete(slices.Clone(s.fields), i, i+1))
}

// RegistryOf returns the registry that created f, falling back to a fresh
// one for descriptors built elsewhere.
func RegistryOf(f Field) *Registry {
	if reg := f.header().reg; reg != nil {
		return reg
	}
	return NewRegistry()
}
