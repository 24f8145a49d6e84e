package pvdata

import (
	"fmt"
	"strings"
)

const indentStep = "    "

// Dump renders pv as an indented tree of "type name value" lines.
func Dump(pv PVField) string {
	var buf strings.Builder
	dumpField(&buf, "", pv.FieldName(), pv)
	return strings.TrimSuffix(buf.String(), "\n")
}

func dumpField(w *strings.Builder, indent, name string, pv PVField) {
	w.WriteString(indent)
	w.WriteString(pv.Field().ID())
	if name != "" {
		w.WriteByte(' ')
		w.WriteString(name)
	}
	sub := indent + indentStep
	switch pv := pv.(type) {
	case AnyPVScalar, AnyPVScalarArray:
		fmt.Fprintf(w, " %s\n", pv.String())
	case *PVStructure:
		w.WriteByte('\n')
		for i, child := range pv.fields {
			dumpField(w, sub, pv.field.names[i], child)
		}
	case *PVUnion:
		w.WriteByte('\n')
		switch {
		case pv.value == nil:
			fmt.Fprintf(w, "%s(none)\n", sub)
		case pv.IsVariant():
			dumpField(w, sub, "", pv.value)
		default:
			dumpField(w, sub, pv.SelectedName(), pv.value)
		}
	case *PVStructureArray:
		dumpElements(w, sub, pv.value.Values())
	case *PVUnionArray:
		dumpElements(w, sub, pv.value.Values())
	default:
		panic("unreachable")
	}
}

func dumpElements[E PVField](w *strings.Builder, indent string, elems []E) {
	w.WriteByte('\n')
	for _, e := range elems {
		if isNilElement(e) {
			fmt.Fprintf(w, "%snull\n", indent)
			continue
		}
		dumpField(w, indent, "", e)
	}
}
