// Package pvjson prints pvData values as JSON and parses JSON documents into
// existing structures or into newly inferred ones.
package pvjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/andreyvit/pvdata"
)

// PrintOptions control the layout of printed JSON.
type PrintOptions struct {
	// MultiLine puts every structure member and array element on its own
	// line.
	MultiLine bool
	// Indent is the starting indentation depth of a multi-line document.
	Indent int
}

// Print writes pv as JSON. Structures print as objects in field order,
// unions as their selected value or null, and empty element slots as null.
// Non-finite floats print as the strings "NaN", "+Inf" and "-Inf".
func Print(w io.Writer, pv pvdata.PVField, opts PrintOptions) error {
	_, err := w.Write(Format(pv, opts))
	return err
}

// Format returns pv as a JSON document.
func Format(pv pvdata.PVField, opts PrintOptions) []byte {
	p := &printer{opts: opts, depth: opts.Indent}
	p.value(pv)
	if opts.MultiLine {
		p.buf.WriteByte('\n')
	}
	return p.buf.Bytes()
}

type printer struct {
	buf   bytes.Buffer
	opts  PrintOptions
	depth int
}

func (p *printer) newline() {
	if p.opts.MultiLine {
		p.buf.WriteByte('\n')
		p.buf.WriteString(strings.Repeat("  ", p.depth))
	}
}

// list writes n items between open and close, one per line in multi-line
// mode.
func (p *printer) list(open, close byte, n int, item func(i int)) {
	p.buf.WriteByte(open)
	if n == 0 {
		p.buf.WriteByte(close)
		return
	}
	p.depth++
	for i := 0; i < n; i++ {
		if i > 0 {
			p.buf.WriteByte(',')
			if !p.opts.MultiLine {
				p.buf.WriteByte(' ')
			}
		}
		p.newline()
		item(i)
	}
	p.depth--
	p.newline()
	p.buf.WriteByte(close)
}

func (p *printer) value(pv pvdata.PVField) {
	switch pv := pv.(type) {
	case nil:
		p.buf.WriteString("null")
	case pvdata.AnyPVScalar:
		p.scalar(pv.Scalar().ScalarType(), pv.String())
	case pvdata.AnyPVScalarArray:
		t := pv.ScalarArray().ElementType()
		strs := pvdata.ToStrings(pv)
		p.list('[', ']', len(strs), func(i int) { p.scalar(t, strs[i]) })
	case *pvdata.PVStructure:
		names := pv.Structure().FieldNames()
		p.list('{', '}', len(names), func(i int) {
			p.str(names[i])
			p.buf.WriteString(": ")
			p.value(pv.PVFieldAt(i))
		})
	case *pvdata.PVStructureArray:
		elems := pv.View().Values()
		p.list('[', ']', len(elems), func(i int) {
			if elems[i] == nil {
				p.value(nil)
			} else {
				p.value(elems[i])
			}
		})
	case *pvdata.PVUnion:
		p.value(pv.Value())
	case *pvdata.PVUnionArray:
		elems := pv.View().Values()
		p.list('[', ']', len(elems), func(i int) {
			if elems[i] == nil {
				p.value(nil)
			} else {
				p.value(elems[i])
			}
		})
	default:
		panic(fmt.Sprintf("pvjson: unexpected %T", pv))
	}
}

func (p *printer) scalar(t pvdata.ScalarType, s string) {
	switch {
	case t == pvdata.TString:
		p.str(s)
	case (t == pvdata.TFloat || t == pvdata.TDouble) && !isFinite(s):
		p.str(s)
	default:
		p.buf.WriteString(s)
	}
}

func (p *printer) str(s string) {
	b, _ := json.Marshal(s)
	p.buf.Write(b)
}

func isFinite(s string) bool {
	return s != "NaN" && s != "+Inf" && s != "-Inf"
}
