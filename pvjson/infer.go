package pvjson

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/andreyvit/pvdata"
)

// Parse reads a JSON object from r and returns a new structure holding it,
// with field types inferred from the values. Booleans become boolean,
// integers long (ulong past the long range), other numbers double and
// strings string. Nested objects become nested structures. Arrays must hold
// scalars: numbers of different kinds widen to double[], and an empty array
// is a string[]. Null members and arrays of arrays or objects are rejected.
func Parse(r io.Reader, reg *pvdata.Registry) (*pvdata.PVStructure, error) {
	p := newParser(r)
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok != json.Delim('{') {
		return nil, fmt.Errorf("%w: JSON document must be an object", pvdata.ErrInvalidArgument)
	}
	root, err := p.inferObject("")
	if err != nil {
		return nil, err
	}
	if err := p.end(); err != nil {
		return nil, err
	}
	f, err := root.build(reg)
	if err != nil {
		return nil, err
	}
	pvs := pvdata.NewPVStructure(f.(*pvdata.Structure))
	if err := root.apply(pvs); err != nil {
		return nil, err
	}
	return pvs, nil
}

// node is an inferred member: a structure, a scalar or a scalar array.
type node struct {
	kind pvdata.Kind

	names   []string
	members []*node

	scalar pvdata.AnyScalar

	elemType pvdata.ScalarType
	elems    []pvdata.AnyScalar
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func (p *parser) inferObject(path string) (*node, error) {
	n := &node{kind: pvdata.KindStructure}
	seen := make(map[string]bool)
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok == json.Delim('}') {
			return n, nil
		}
		name := tok.(string)
		sub := join(path, name)
		switch {
		case name == "":
			return nil, &pvdata.FieldError{Path: path, Msg: "empty member name", Err: pvdata.ErrInvalidArgument}
		case seen[name]:
			return nil, &pvdata.FieldError{Path: sub, Msg: "duplicate member", Err: pvdata.ErrInvalidArgument}
		}
		seen[name] = true

		if tok, err = p.next(); err != nil {
			return nil, err
		}
		var m *node
		switch tok {
		case json.Delim('{'):
			m, err = p.inferObject(sub)
		case json.Delim('['):
			m, err = p.inferArray(sub)
		case nil:
			err = &pvdata.FieldError{Path: sub, Msg: "null has no type", Err: pvdata.ErrInvalidArgument}
		default:
			m = &node{kind: pvdata.KindScalar}
			m.scalar, err = scalarOf(tok)
		}
		if err != nil {
			return nil, err
		}
		n.names = append(n.names, name)
		n.members = append(n.members, m)
	}
}

func (p *parser) inferArray(path string) (*node, error) {
	n := &node{kind: pvdata.KindScalarArray, elemType: pvdata.TString}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch tok {
		case json.Delim(']'):
			return n, nil
		case json.Delim('['), json.Delim('{'):
			return nil, &pvdata.FieldError{Path: path, Msg: "arrays of arrays or objects", Err: pvdata.ErrUnsupportedOperation}
		}
		a, err := scalarOf(tok)
		if err != nil {
			return nil, &pvdata.FieldError{Path: path, Msg: fmt.Sprintf("element %d", len(n.elems)), Err: err}
		}
		if len(n.elems) == 0 {
			n.elemType = a.Type()
		} else if n.elemType, err = widen(n.elemType, a.Type()); err != nil {
			return nil, &pvdata.FieldError{Path: path, Msg: fmt.Sprintf("element %d", len(n.elems)), Err: err}
		}
		n.elems = append(n.elems, a)
	}
}

func widen(a, b pvdata.ScalarType) (pvdata.ScalarType, error) {
	switch {
	case a == b:
		return a, nil
	case a.IsNumeric() && b.IsNumeric():
		return pvdata.TDouble, nil
	default:
		return a, fmt.Errorf("%w: %v mixed with %v", pvdata.ErrInvalidArgument, b, a)
	}
}

func (n *node) build(reg *pvdata.Registry) (pvdata.Field, error) {
	switch n.kind {
	case pvdata.KindScalar:
		return reg.Scalar(n.scalar.Type()), nil
	case pvdata.KindScalarArray:
		return reg.ScalarArray(n.elemType), nil
	default:
		fields := make([]pvdata.Field, len(n.members))
		for i, m := range n.members {
			f, err := m.build(reg)
			if err != nil {
				return nil, err
			}
			fields[i] = f
		}
		return reg.Structure(n.names, fields)
	}
}

func (n *node) apply(pv pvdata.PVField) error {
	switch n.kind {
	case pvdata.KindScalar:
		return pvdata.PutAnyScalar(pv.(pvdata.AnyPVScalar), n.scalar)
	case pvdata.KindScalarArray:
		return pvdata.PutAnyScalars(pv.(pvdata.AnyPVScalarArray), n.elems)
	default:
		pvs := pv.(*pvdata.PVStructure)
		for i, m := range n.members {
			if err := m.apply(pvs.PVFieldAt(i)); err != nil {
				return err
			}
		}
		return nil
	}
}
