package pvdata

import (
	"fmt"

	"github.com/andreyvit/pvdata/wire"
)

// Descriptor type codes. The low three bits of a scalar code select the
// width within its group, bits 3-4 distinguish scalars from variable,
// bounded and fixed arrays.
const (
	codeBoolean        = 0x00
	codeIntegerBase    = 0x20
	codeFloat          = 0x42
	codeDouble         = 0x43
	codeString         = 0x60
	codeStructure      = 0x80
	codeUnion          = 0x81
	codeVariantUnion   = 0x82
	codeBoundedString  = 0x83
	codeNull           = 0xFF
	codeCacheAssign    = 0xFD
	codeCacheReference = 0xFE

	arrayVariable = 0x08
	arrayBounded  = 0x10
	arrayFixed    = 0x18

	typeCodeMask  = 0xE7
	arrayKindMask = 0x18
)

func scalarCode(t ScalarType) byte {
	switch {
	case t == TBoolean:
		return codeBoolean
	case t.IsInteger() || t.IsUInteger():
		return codeIntegerBase + byte(t-TByte)
	case t == TFloat:
		return codeFloat
	case t == TDouble:
		return codeDouble
	case t == TString:
		return codeString
	default:
		panic("unreachable")
	}
}

// decodeScalarCode maps a scalar type code, without array bits, to its
// type. Only the canonical code of each type is accepted.
func decodeScalarCode(code byte) (ScalarType, bool) {
	switch code >> 5 {
	case 0:
		return TBoolean, code == codeBoolean
	case 1:
		return TByte + ScalarType(code&0x07), true
	case 2:
		switch code & 0x07 {
		case 2:
			return TFloat, true
		case 3:
			return TDouble, true
		}
	case 3:
		return TString, code == codeString
	}
	return 0, false
}

// FieldCache remembers descriptors already sent or received over one
// connection, so that repeated structures and unions travel as a 3-byte
// reference. A cache is one session's state and is not safe for concurrent
// use.
type FieldCache struct {
	reg      *Registry
	sent     map[Field]int16
	received map[int16]Field
	nextID   int16
}

// NewFieldCache creates an empty cache. reg interns the descriptors it
// decodes.
func NewFieldCache(reg *Registry) *FieldCache {
	return &FieldCache{
		reg:      reg,
		sent:     make(map[Field]int16),
		received: make(map[int16]Field),
		nextID:   1,
	}
}

// Registry returns the registry received descriptors are interned in.
func (c *FieldCache) Registry() *Registry { return c.reg }

// Reset forgets everything, as when a connection is re-established.
func (c *FieldCache) Reset() {
	clear(c.sent)
	clear(c.received)
	c.nextID = 1
}

func cacheable(f Field) bool {
	switch f.(type) {
	case *Scalar, *ScalarArray:
		return false
	default:
		return true
	}
}

// SerializeField writes the descriptor of f. A nil f is written as the null
// type code. With a non-nil cache, structures, unions and element arrays
// are sent in full once and as a reference afterwards.
func SerializeField(w *wire.Writer, f Field, cache *FieldCache) error {
	serializeCachedField(w, f, cache)
	return w.Err()
}

func serializeCachedField(w *wire.Writer, f Field, cache *FieldCache) {
	if f == nil {
		w.PutUint8(codeNull)
		return
	}
	if cache == nil || !cacheable(f) {
		serializeFieldBody(w, f, cache)
		return
	}
	if id, ok := cache.sent[f]; ok {
		w.PutUint8(codeCacheReference)
		w.PutInt16(id)
		return
	}
	id := cache.nextID
	cache.nextID++
	cache.sent[f] = id
	w.PutUint8(codeCacheAssign)
	w.PutInt16(id)
	serializeFieldBody(w, f, cache)
}

func serializeFieldBody(w *wire.Writer, f Field, cache *FieldCache) {
	switch f := f.(type) {
	case *Scalar:
		if f.maxLen > 0 {
			w.PutUint8(codeBoundedString)
			w.PutSize(f.maxLen)
			return
		}
		w.PutUint8(scalarCode(f.typ))
	case *ScalarArray:
		code := scalarCode(f.elem)
		switch f.sizeType {
		case Bounded:
			w.PutUint8(arrayBounded | code)
			w.PutSize(f.max)
		case Fixed:
			w.PutUint8(arrayFixed | code)
			w.PutSize(f.max)
		default:
			w.PutUint8(arrayVariable | code)
		}
	case *Structure:
		w.PutUint8(codeStructure)
		serializeFieldList(w, &f.fieldList, DefaultStructureID, cache)
	case *Union:
		if f.IsVariant() {
			w.PutUint8(codeVariantUnion)
			return
		}
		w.PutUint8(codeUnion)
		serializeFieldList(w, &f.fieldList, DefaultUnionID, cache)
	case *StructureArray:
		w.PutUint8(arrayVariable | codeStructure)
		serializeCachedField(w, f.elem, cache)
	case *UnionArray:
		if f.elem.IsVariant() {
			w.PutUint8(arrayVariable | codeVariantUnion)
			return
		}
		w.PutUint8(arrayVariable | codeUnion)
		serializeCachedField(w, f.elem, cache)
	default:
		panic("unreachable")
	}
}

func serializeFieldList(w *wire.Writer, l *fieldList, defaultID string, cache *FieldCache) {
	if l.id == defaultID {
		w.PutString("")
	} else {
		w.PutString(l.id)
	}
	w.PutSize(len(l.fields))
	for i, f := range l.fields {
		w.PutString(l.names[i])
		serializeCachedField(w, f, cache)
	}
}

// DeserializeField reads a descriptor written by SerializeField. It returns
// nil for the null type code. cache must be the receiving side of the cache
// the writer used, or nil if the writer used none.
func DeserializeField(r *wire.Reader, reg *Registry, cache *FieldCache) (Field, error) {
	if reg == nil {
		if cache == nil || cache.reg == nil {
			return nil, fmt.Errorf("%w: decoding a descriptor requires a registry", ErrUnsupportedOperation)
		}
		reg = cache.reg
	}
	return deserializeCachedField(r, reg, cache)
}

func deserializeCachedField(r *wire.Reader, reg *Registry, cache *FieldCache) (Field, error) {
	code, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch code {
	case codeNull:
		return nil, nil
	case codeCacheAssign, codeCacheReference:
		if cache == nil {
			return nil, r.Corruptf("cached descriptor 0x%02X without a field cache", code)
		}
		id, err := r.ReadInt16()
		if err != nil {
			return nil, err
		}
		if code == codeCacheReference {
			f, ok := cache.received[id]
			if !ok {
				return nil, r.Corruptf("unknown cached descriptor %d", id)
			}
			return f, nil
		}
		code, err = r.ReadUint8()
		if err != nil {
			return nil, err
		}
		f, err := deserializeFieldBody(r, code, reg, cache)
		if err != nil {
			return nil, err
		}
		if f == nil {
			return nil, r.Corruptf("null descriptor assigned to cache slot %d", id)
		}
		cache.received[id] = f
		return f, nil
	default:
		return deserializeFieldBody(r, code, reg, cache)
	}
}

func deserializeFieldBody(r *wire.Reader, code byte, reg *Registry, cache *FieldCache) (Field, error) {
	if code == codeNull {
		return nil, nil
	}
	typeCode := code & typeCodeMask
	arrayKind := code & arrayKindMask
	if arrayKind == 0 {
		switch {
		case typeCode < codeStructure:
			t, ok := decodeScalarCode(code)
			if !ok {
				return nil, r.Corruptf("invalid scalar type code 0x%02X", code)
			}
			return reg.Scalar(t), nil
		case typeCode == codeStructure:
			id, names, fields, err := deserializeFieldList(r, reg, cache, DefaultStructureID)
			if err != nil {
				return nil, err
			}
			s, err := reg.StructureID(id, names, fields)
			if err != nil {
				return nil, r.Corruptf("%v", err)
			}
			return s, nil
		case typeCode == codeUnion:
			id, names, fields, err := deserializeFieldList(r, reg, cache, DefaultUnionID)
			if err != nil {
				return nil, err
			}
			u, err := reg.UnionID(id, names, fields)
			if err != nil {
				return nil, r.Corruptf("%v", err)
			}
			return u, nil
		case typeCode == codeVariantUnion:
			return reg.VariantUnion(), nil
		case typeCode == codeBoundedString:
			size, err := r.ReadSize()
			if err != nil {
				return nil, err
			}
			f, err := reg.BoundedString(size)
			if err != nil {
				return nil, r.Corruptf("%v", err)
			}
			return f, nil
		default:
			return nil, r.Corruptf("invalid type code 0x%02X", code)
		}
	}

	var size int
	if arrayKind != arrayVariable {
		var err error
		size, err = r.ReadSize()
		if err != nil {
			return nil, err
		}
	}
	if typeCode < codeStructure {
		t, ok := decodeScalarCode(typeCode)
		if !ok {
			return nil, r.Corruptf("invalid scalar array type code 0x%02X", code)
		}
		var f *ScalarArray
		var err error
		switch arrayKind {
		case arrayBounded:
			f, err = reg.BoundedScalarArray(t, size)
		case arrayFixed:
			f, err = reg.FixedScalarArray(t, size)
		default:
			f = reg.ScalarArray(t)
		}
		if err != nil {
			return nil, r.Corruptf("%v", err)
		}
		return f, nil
	}
	if arrayKind != arrayVariable {
		return nil, r.Corruptf("bounded and fixed arrays of type code 0x%02X are not supported", typeCode)
	}
	switch typeCode {
	case codeStructure:
		elem, err := deserializeCachedField(r, reg, cache)
		if err != nil {
			return nil, err
		}
		s, ok := elem.(*Structure)
		if !ok {
			return nil, r.Corruptf("structure array of %v", describeField(elem))
		}
		return reg.StructureArray(s), nil
	case codeUnion:
		elem, err := deserializeCachedField(r, reg, cache)
		if err != nil {
			return nil, err
		}
		u, ok := elem.(*Union)
		if !ok {
			return nil, r.Corruptf("union array of %v", describeField(elem))
		}
		return reg.UnionArray(u), nil
	case codeVariantUnion:
		return reg.VariantUnionArray(), nil
	default:
		return nil, r.Corruptf("invalid array type code 0x%02X", code)
	}
}

func deserializeFieldList(r *wire.Reader, reg *Registry, cache *FieldCache, defaultID string) (string, []string, []Field, error) {
	id, err := r.ReadString()
	if err != nil {
		return "", nil, nil, err
	}
	if id == "" {
		id = defaultID
	}
	n, err := r.ReadSize()
	if err != nil {
		return "", nil, nil, err
	}
	if n < 0 {
		n = 0
	}
	var names []string
	var fields []Field
	for i := 0; i < n; i++ {
		name, err := r.ReadString()
		if err != nil {
			return "", nil, nil, err
		}
		f, err := deserializeCachedField(r, reg, cache)
		if err != nil {
			return "", nil, nil, err
		}
		names = append(names, name)
		fields = append(fields, f)
	}
	return id, names, fields, nil
}

func describeField(f Field) string {
	if f == nil {
		return "null"
	}
	return f.ID()
}
