package pvdata

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/andreyvit/pvdata/bitset"
	"github.com/andreyvit/pvdata/sharedvec"
	"github.com/andreyvit/pvdata/wire"
)

// maxPrealloc limits how many elements a decoder reserves up front, so that
// a corrupt size cannot trigger a huge allocation.
const maxPrealloc = 4096

const (
	elementAbsent  = 0
	elementPresent = 1
)

// Serialize writes the value of pv. cache carries the descriptors of
// variant union values and may be nil.
func Serialize(w *wire.Writer, pv PVField, cache *FieldCache) error {
	if err := serializeValue(w, pv, cache); err != nil {
		return err
	}
	return w.Err()
}

func serializeValue(w *wire.Writer, pv PVField, cache *FieldCache) error {
	switch pv := pv.(type) {
	case AnyPVScalar:
		pv.serialize(w)
	case AnyPVScalarArray:
		return pv.serializeRange(w, 0, pv.Length())
	case *PVStructure:
		for _, child := range pv.fields {
			if err := serializeValue(w, child, cache); err != nil {
				return err
			}
		}
	case *PVUnion:
		if pv.IsVariant() {
			if pv.value == nil {
				w.PutUint8(codeNull)
				return nil
			}
			serializeCachedField(w, pv.value.Field(), cache)
			return serializeValue(w, pv.value, cache)
		}
		w.PutSize(pv.selector)
		if pv.selector != Undefined {
			return serializeValue(w, pv.value, cache)
		}
	case *PVStructureArray:
		return serializeElements(w, pv.value.Values(), cache)
	case *PVUnionArray:
		return serializeElements(w, pv.value.Values(), cache)
	default:
		panic("unreachable")
	}
	return nil
}

func serializeElements[E PVField](w *wire.Writer, elems []E, cache *FieldCache) error {
	w.PutSize(len(elems))
	for _, e := range elems {
		if isNilElement(e) {
			w.PutUint8(elementAbsent)
			continue
		}
		w.PutUint8(elementPresent)
		if err := serializeValue(w, e, cache); err != nil {
			return err
		}
	}
	return nil
}

// SerializeRange writes count elements of an array starting at offset, or
// count bytes of a string. The range is clamped to the value, and a negative
// count means everything after offset.
func SerializeRange(w *wire.Writer, pv PVField, offset, count int, cache *FieldCache) error {
	if offset < 0 {
		return fieldErrf(pv, ErrInvalidArgument, "negative offset %d", offset)
	}
	var err error
	switch pv := pv.(type) {
	case AnyPVScalarArray:
		err = pv.serializeRange(w, offset, clampCount(pv.Length(), offset, count))
	case *PVString:
		s := pv.value[min(offset, len(pv.value)):]
		w.PutString(s[:clampCount(len(s), 0, count)])
	case *PVStructureArray:
		elems := pv.value.Values()
		elems = elems[min(offset, len(elems)):]
		err = serializeElements(w, elems[:clampCount(len(elems), 0, count)], cache)
	case *PVUnionArray:
		elems := pv.value.Values()
		elems = elems[min(offset, len(elems)):]
		err = serializeElements(w, elems[:clampCount(len(elems), 0, count)], cache)
	default:
		return fieldErrf(pv, ErrUnsupportedOperation, "%s has no range encoding", pv.Field().ID())
	}
	if err != nil {
		return err
	}
	return w.Err()
}

func clampCount(length, offset, count int) int {
	rem := max(length-offset, 0)
	if count < 0 || count > rem {
		return rem
	}
	return count
}

// Deserialize reads a value written by Serialize into pv, which must have
// the same descriptor as the value that was written. Existing child values
// are reused where the descriptor allows.
func Deserialize(r *wire.Reader, pv PVField, cache *FieldCache) error {
	return deserializeValue(r, pv, cache)
}

func deserializeValue(r *wire.Reader, pv PVField, cache *FieldCache) error {
	switch pv := pv.(type) {
	case AnyPVScalar:
		return pv.deserialize(r)
	case AnyPVScalarArray:
		return pv.deserialize(r)
	case *PVStructure:
		for _, child := range pv.fields {
			if err := deserializeValue(r, child, cache); err != nil {
				return err
			}
		}
		return nil
	case *PVUnion:
		return deserializeUnion(r, pv, cache)
	case *PVStructureArray:
		return deserializeElements(r, &pv.arrayValue, pv.newElement, cache)
	case *PVUnionArray:
		return deserializeElements(r, &pv.arrayValue, pv.newElement, cache)
	default:
		panic("unreachable")
	}
}

func deserializeUnion(r *wire.Reader, pvu *PVUnion, cache *FieldCache) error {
	if pvu.immutable {
		return immutableErr(pvu)
	}
	if pvu.IsVariant() {
		f, err := deserializeCachedField(r, decodeRegistry(cache, pvu.field), cache)
		if err != nil {
			return err
		}
		if f == nil {
			pvu.value = nil
			return nil
		}
		if pvu.value == nil || !Equal(pvu.value.Field(), f) {
			pvu.value = NewPVField(f)
		}
		return deserializeValue(r, pvu.value, cache)
	}

	sel, err := r.ReadSize()
	if err != nil {
		return err
	}
	if sel == Undefined {
		pvu.selector, pvu.value = Undefined, nil
		return nil
	}
	if sel < 0 || sel >= len(pvu.field.fields) {
		return r.Corruptf("union selector %d out of range for %d fields", sel, len(pvu.field.fields))
	}
	if f := pvu.field.fields[sel]; pvu.value == nil || !Equal(pvu.value.Field(), f) {
		pvu.value = NewPVField(f)
		pin(pvu.value)
	}
	pvu.selector = sel
	return deserializeValue(r, pvu.value, cache)
}

func decodeRegistry(cache *FieldCache, f Field) *Registry {
	if cache != nil && cache.reg != nil {
		return cache.reg
	}
	return RegistryOf(f)
}

func deserializeElements[E PVField](r *wire.Reader, a *arrayValue[E], create func() E, cache *FieldCache) error {
	if a.immutable {
		return immutableErr(a)
	}
	n, err := r.ReadSize()
	if err != nil {
		return err
	}
	n = max(n, 0)
	reuse := a.value.Unique()
	prev := a.value.Values()
	out := make([]E, 0, min(n, maxPrealloc))
	for i := 0; i < n; i++ {
		flag, err := r.ReadUint8()
		if err != nil {
			return err
		}
		if flag == elementAbsent {
			var empty E
			out = append(out, empty)
			continue
		}
		var e E
		if reuse && i < len(prev) && !isNilElement(prev[i]) && !prev[i].IsImmutable() {
			e = prev[i]
		} else {
			e = create()
		}
		if err := deserializeValue(r, e, cache); err != nil {
			return err
		}
		out = append(out, e)
	}
	v := sharedvec.Wrap(out)
	return a.Replace(sharedvec.MustFreeze(&v))
}

// SerializeChanged writes only the parts of pvs whose offsets are set in bs.
// A set bit for a structure stands for all of its fields. The reader needs
// the same bitset to decode the result with DeserializeChanged.
func SerializeChanged(w *wire.Writer, pvs *PVStructure, bs *bitset.BitSet, cache *FieldCache) error {
	if err := serializeChanged(w, pvs, bs, cache); err != nil {
		return err
	}
	return w.Err()
}

func serializeChanged(w *wire.Writer, pvs *PVStructure, bs *bitset.BitSet, cache *FieldCache) error {
	next := bs.NextSetBit(pvs.offset)
	if next < 0 || next >= pvs.next {
		return nil
	}
	if next == pvs.offset {
		return serializeValue(w, pvs, cache)
	}
	for _, child := range pvs.fields {
		b := child.base()
		next = bs.NextSetBit(b.offset)
		if next < 0 {
			return nil
		}
		if next >= b.next {
			continue
		}
		if b.NumberFields() == 1 {
			if err := serializeValue(w, child, cache); err != nil {
				return err
			}
		} else if err := serializeChanged(w, child.(*PVStructure), bs, cache); err != nil {
			return err
		}
	}
	return nil
}

// DeserializeChanged applies a differential update written by
// SerializeChanged with the same bitset.
func DeserializeChanged(r *wire.Reader, pvs *PVStructure, bs *bitset.BitSet, cache *FieldCache) error {
	next := bs.NextSetBit(pvs.offset)
	if next < 0 || next >= pvs.next {
		return nil
	}
	if next == pvs.offset {
		return deserializeValue(r, pvs, cache)
	}
	for _, child := range pvs.fields {
		b := child.base()
		next = bs.NextSetBit(b.offset)
		if next < 0 {
			return nil
		}
		if next >= b.next {
			continue
		}
		if b.NumberFields() == 1 {
			if err := deserializeValue(r, child, cache); err != nil {
				return err
			}
		} else if err := DeserializeChanged(r, child.(*PVStructure), bs, cache); err != nil {
			return err
		}
	}
	return nil
}

func (pv *PVScalar[T]) serialize(w *wire.Writer) {
	putScalar(w, pv.value)
}

func (pv *PVScalar[T]) deserialize(r *wire.Reader) error {
	if pv.immutable {
		return immutableErr(pv)
	}
	v, err := readScalar[T](r)
	if err != nil {
		return err
	}
	if limit := pv.field.maxLen; limit > 0 {
		if s, ok := any(v).(string); ok && len(s) > limit {
			return r.Corruptf("%s: string of %d bytes exceeds %d", pv.FullName(), len(s), limit)
		}
	}
	pv.value = v
	return nil
}

func (pva *PVScalarArray[T]) serializeRange(w *wire.Writer, offset, count int) error {
	vals := pva.value.Values()[offset : offset+count]
	if pva.sizeType == Fixed {
		if count != pva.max {
			return fieldErrf(pva, ErrInvalidArgument, "fixed array of %d cannot be written with %d elements", pva.max, count)
		}
	} else {
		w.PutSize(count)
	}
	putElements(w, vals)
	return nil
}

func (pva *PVScalarArray[T]) deserialize(r *wire.Reader) error {
	if pva.immutable {
		return immutableErr(pva)
	}
	n := pva.max
	if pva.sizeType != Fixed {
		size, err := r.ReadSize()
		if err != nil {
			return err
		}
		n = max(size, 0)
		if pva.sizeType == Bounded && n > pva.max {
			return r.Corruptf("%s: %d elements exceed bound %d", pva.FullName(), n, pva.max)
		}
	}
	v := sharedvec.Thaw(&pva.value)
	v.Resize(0)
	v.Reserve(min(n, maxPrealloc))
	for i := 0; i < n; i++ {
		e, err := readScalar[T](r)
		if err != nil {
			pva.value = sharedvec.MustFreeze(&v)
			return err
		}
		v.Append(e)
	}
	pva.value = sharedvec.MustFreeze(&v)
	pva.PostPut()
	return nil
}

func putScalar[T ScalarValue](w *wire.Writer, v T) {
	switch v := any(v).(type) {
	case bool:
		w.PutBool(v)
	case int8:
		w.PutInt8(v)
	case int16:
		w.PutInt16(v)
	case int32:
		w.PutInt32(v)
	case int64:
		w.PutInt64(v)
	case uint8:
		w.PutUint8(v)
	case uint16:
		w.PutUint16(v)
	case uint32:
		w.PutUint32(v)
	case uint64:
		w.PutUint64(v)
	case float32:
		w.PutFloat32(v)
	case float64:
		w.PutFloat64(v)
	case string:
		w.PutString(v)
	default:
		panic("unreachable")
	}
}

func putElements[T ScalarValue](w *wire.Writer, vals []T) {
	switch bv := any(vals).(type) {
	case []uint8:
		w.PutBytes(bv)
	case []int8:
		for _, v := range bv {
			w.PutInt8(v)
		}
	default:
		for _, v := range vals {
			putScalar(w, v)
		}
	}
}

func readScalar[T ScalarValue](r *wire.Reader) (T, error) {
	var zero T
	var v any
	var err error
	switch any(zero).(type) {
	case bool:
		v, err = r.ReadBool()
	case int8:
		v, err = r.ReadInt8()
	case int16:
		v, err = r.ReadInt16()
	case int32:
		v, err = r.ReadInt32()
	case int64:
		v, err = r.ReadInt64()
	case uint8:
		v, err = r.ReadUint8()
	case uint16:
		v, err = r.ReadUint16()
	case uint32:
		v, err = r.ReadUint32()
	case uint64:
		v, err = r.ReadUint64()
	case float32:
		v, err = r.ReadFloat32()
	case float64:
		v, err = r.ReadFloat64()
	case string:
		v, err = r.ReadString()
	default:
		panic("unreachable")
	}
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// Marshal encodes pv in big-endian byte order without a field cache.
func Marshal(pv PVField) ([]byte, error) {
	return MarshalOrder(pv, binary.BigEndian)
}

func MarshalOrder(pv PVField, order binary.ByteOrder) ([]byte, error) {
	w := acquireWriter(order)
	defer releaseWriter(w)
	if err := Serialize(w, pv, nil); err != nil {
		return nil, err
	}
	return bytes.Clone(w.Bytes()), nil
}

// Unmarshal decodes data produced by Marshal into pv. Trailing bytes are an
// error.
func Unmarshal(data []byte, pv PVField) error {
	return UnmarshalOrder(data, pv, binary.BigEndian)
}

func UnmarshalOrder(data []byte, pv PVField, order binary.ByteOrder) error {
	r := wire.NewReader(data, order)
	if err := Deserialize(r, pv, nil); err != nil {
		return err
	}
	return checkTrailing(r)
}

func checkTrailing(r *wire.Reader) error {
	if n := r.Buffered(); n > 0 {
		return r.Corruptf("%d trailing bytes", n)
	}
	return nil
}

// MarshalField encodes a descriptor in big-endian byte order without a field
// cache.
func MarshalField(f Field) ([]byte, error) {
	w := acquireWriter(binary.BigEndian)
	defer releaseWriter(w)
	if err := SerializeField(w, f, nil); err != nil {
		return nil, err
	}
	return bytes.Clone(w.Bytes()), nil
}

func UnmarshalField(data []byte, reg *Registry) (Field, error) {
	r := wire.NewReader(data, binary.BigEndian)
	f, err := DeserializeField(r, reg, nil)
	if err != nil {
		return nil, err
	}
	if err := checkTrailing(r); err != nil {
		return nil, fmt.Errorf("descriptor: %w", err)
	}
	return f, nil
}
