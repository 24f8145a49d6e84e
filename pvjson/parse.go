package pvjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/andreyvit/pvdata"
	"github.com/andreyvit/pvdata/bitset"
	"github.com/andreyvit/pvdata/sharedvec"
)

// LoadValues applies the JSON document at path to pvs.
func LoadValues(pvs *pvdata.PVStructure, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	defer f.Close()
	if err := ParseInto(f, pvs, nil); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ParseInto reads one JSON value from r and assigns it to dest.
//
// Objects assign structure members by name and leave absent members alone.
// Arrays replace the contents of scalar, structure and union arrays, with
// null standing for an empty element slot. Scalars are converted to the
// destination type. A variant union takes a scalar as a boolean, long,
// double or string value; any other union selects the first scalar member
// that accepts it. Null clears a union.
//
// When assigned is not nil, the offset of every scalar, array and union
// that received a value is set in it.
func ParseInto(r io.Reader, dest pvdata.PVField, assigned *bitset.BitSet) error {
	p := newParser(r)
	p.assigned = assigned
	tok, err := p.next()
	if err != nil {
		return err
	}
	if err := p.assign(dest, tok); err != nil {
		return err
	}
	return p.end()
}

type parser struct {
	dec      *json.Decoder
	assigned *bitset.BitSet
}

func newParser(r io.Reader) *parser {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &parser{dec: dec}
}

func (p *parser) next() (json.Token, error) {
	tok, err := p.dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected end of JSON input", pvdata.ErrInvalidArgument)
	} else if err != nil {
		return nil, fmt.Errorf("%w: JSON at offset %d: %v", pvdata.ErrInvalidArgument, p.dec.InputOffset(), err)
	}
	return tok, nil
}

// end fails unless the input holds nothing after the parsed value.
func (p *parser) end() error {
	if _, err := p.dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON value at offset %d", pvdata.ErrInvalidArgument, p.dec.InputOffset())
	}
	return nil
}

// elements returns a parser for array elements, which are roots of their
// own and take no part in the offsets of the destination.
func (p *parser) elements() *parser {
	return &parser{dec: p.dec}
}

func (p *parser) mark(pv pvdata.PVField) {
	if p.assigned != nil {
		p.assigned.Set(pv.FieldOffset())
	}
}

func mismatch(pv pvdata.PVField, what string) error {
	return &pvdata.FieldError{Path: pv.FullName(), Msg: fmt.Sprintf("cannot assign %s to %s", what, pv.Field().ID()), Err: pvdata.ErrFieldTypeMismatch}
}

func (p *parser) assign(pv pvdata.PVField, tok json.Token) error {
	switch tok := tok.(type) {
	case json.Delim:
		if tok == '[' {
			return p.array(pv)
		}
		pvs, ok := pv.(*pvdata.PVStructure)
		if !ok {
			return mismatch(pv, "an object")
		}
		return p.object(pvs)
	case nil:
		pvu, ok := pv.(*pvdata.PVUnion)
		if !ok {
			return mismatch(pv, "null")
		}
		if err := pvu.Set(pvdata.Undefined, nil); err != nil {
			return err
		}
		p.mark(pvu)
		return nil
	default:
		a, err := scalarOf(tok)
		if err != nil {
			return err
		}
		return p.scalar(pv, a)
	}
}

func (p *parser) object(pvs *pvdata.PVStructure) error {
	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		if tok == json.Delim('}') {
			return nil
		}
		name := tok.(string)
		i := pvs.Structure().FieldIndex(name)
		if i < 0 {
			path := name
			if pvs.FullName() != "" {
				path = pvs.FullName() + "." + name
			}
			return &pvdata.FieldError{Path: path, Msg: "no such field", Err: pvdata.ErrFieldNotFound}
		}
		if tok, err = p.next(); err != nil {
			return err
		}
		if err := p.assign(pvs.PVFieldAt(i), tok); err != nil {
			return err
		}
	}
}

func (p *parser) scalar(pv pvdata.PVField, a pvdata.AnyScalar) error {
	switch pv := pv.(type) {
	case pvdata.AnyPVScalar:
		if err := pvdata.PutAnyScalar(pv, a); err != nil {
			return err
		}
	case *pvdata.PVUnion:
		if err := putUnion(pv, a); err != nil {
			return err
		}
	default:
		return mismatch(pv, "a "+a.Type().String())
	}
	p.mark(pv)
	return nil
}

func putUnion(pvu *pvdata.PVUnion, a pvdata.AnyScalar) error {
	u := pvu.Union()
	if u.IsVariant() {
		v := pvdata.NewPVField(pvdata.RegistryOf(u).Scalar(a.Type())).(pvdata.AnyPVScalar)
		if err := pvdata.PutAnyScalar(v, a); err != nil {
			return err
		}
		return pvu.SetVariant(v)
	}
	for i, f := range u.Fields() {
		if _, ok := f.(*pvdata.Scalar); !ok {
			continue
		}
		v := pvdata.NewPVField(f).(pvdata.AnyPVScalar)
		if pvdata.PutAnyScalar(v, a) == nil {
			return pvu.Set(i, v)
		}
	}
	return mismatch(pvu, "a "+a.Type().String())
}

func (p *parser) array(pv pvdata.PVField) error {
	switch pv := pv.(type) {
	case pvdata.AnyPVScalarArray:
		var vals []pvdata.AnyScalar
		for {
			tok, err := p.next()
			if err != nil {
				return err
			}
			if tok == json.Delim(']') {
				break
			}
			a, err := scalarOf(tok)
			if err != nil {
				return &pvdata.FieldError{Path: pv.FullName(), Msg: fmt.Sprintf("element %d", len(vals)), Err: err}
			}
			vals = append(vals, a)
		}
		if err := pvdata.PutAnyScalars(pv, vals); err != nil {
			return err
		}
	case *pvdata.PVStructureArray:
		elem := pv.StructureArray().ElementField()
		var elems []*pvdata.PVStructure
		err := p.elementList(pv, func(tok json.Token) error {
			if tok == nil {
				elems = append(elems, nil)
				return nil
			}
			e := pvdata.NewPVStructure(elem)
			elems = append(elems, e)
			return p.elements().assign(e, tok)
		})
		if err != nil {
			return err
		}
		if err := pv.Replace(sharedvec.ConstOf(elems...)); err != nil {
			return err
		}
	case *pvdata.PVUnionArray:
		elem := pv.UnionArray().ElementField()
		var elems []*pvdata.PVUnion
		err := p.elementList(pv, func(tok json.Token) error {
			if tok == nil {
				elems = append(elems, nil)
				return nil
			}
			e := pvdata.NewPVUnion(elem)
			elems = append(elems, e)
			return p.elements().assign(e, tok)
		})
		if err != nil {
			return err
		}
		if err := pv.Replace(sharedvec.ConstOf(elems...)); err != nil {
			return err
		}
	default:
		return mismatch(pv, "an array")
	}
	p.mark(pv)
	return nil
}

// elementList calls fn with the first token of every element up to the
// closing bracket.
func (p *parser) elementList(pv pvdata.PVField, fn func(tok json.Token) error) error {
	for i := 0; ; i++ {
		tok, err := p.next()
		if err != nil {
			return err
		}
		if tok == json.Delim(']') {
			return nil
		}
		if err := fn(tok); err != nil {
			return fmt.Errorf("%s[%d]: %w", pv.FullName(), i, err)
		}
	}
}

// scalarOf converts a JSON scalar token. Numbers become long when they are
// integers that fit, then ulong, then double.
func scalarOf(tok json.Token) (pvdata.AnyScalar, error) {
	switch tok := tok.(type) {
	case bool:
		return pvdata.AnyScalarOf(tok), nil
	case string:
		return pvdata.AnyScalarOf(tok), nil
	case json.Number:
		if i, err := tok.Int64(); err == nil {
			return pvdata.AnyScalarOf(i), nil
		}
		if u, err := strconv.ParseUint(string(tok), 10, 64); err == nil {
			return pvdata.AnyScalarOf(u), nil
		}
		f, err := tok.Float64()
		if err != nil {
			return pvdata.AnyScalar{}, fmt.Errorf("%w: number %s out of range", pvdata.ErrInvalidArgument, tok)
		}
		return pvdata.AnyScalarOf(f), nil
	case nil:
		return pvdata.AnyScalar{}, fmt.Errorf("%w: unexpected null", pvdata.ErrInvalidArgument)
	default:
		return pvdata.AnyScalar{}, fmt.Errorf("%w: expected a scalar, got %v", pvdata.ErrFieldTypeMismatch, tok)
	}
}
