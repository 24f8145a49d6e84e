package pvtoml

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/andreyvit/pvdata"
	"github.com/andreyvit/pvdata/sharedvec"
)

// LoadValues applies the values file at path to pvs.
func LoadValues(pvs *pvdata.PVStructure, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := ParseValues(pvs, data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ParseValues applies a values document to pvs. Tables map to structures,
// arrays to scalar and element arrays. A union is a table with a single key
// naming the selected field, or an empty table for no selection; a variant
// union's key is the type of its value, such as "double" or "int[]".
// Fields absent from the document keep their values.
func ParseValues(pvs *pvdata.PVStructure, data []byte) error {
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return fmt.Errorf("parse error: %w: %v", pvdata.ErrInvalidArgument, err)
	}
	return applyTable(pvs, doc)
}

func valueErrf(pv pvdata.PVField, format string, args ...any) error {
	return &pvdata.FieldError{Path: pv.FullName(), Msg: fmt.Sprintf(format, args...), Err: pvdata.ErrInvalidArgument}
}

func applyValue(pv pvdata.PVField, v any) error {
	switch pv := pv.(type) {
	case pvdata.AnyPVScalar:
		sv, err := scalarValue(v)
		if err != nil {
			return valueErrf(pv, "%v", err)
		}
		return pv.PutAny(sv)
	case pvdata.AnyPVScalarArray:
		items, ok := v.([]any)
		if !ok {
			return valueErrf(pv, "expected an array, got %T", v)
		}
		strs := make([]string, len(items))
		for i, item := range items {
			str, err := scalarString(item)
			if err != nil {
				return valueErrf(pv, "element %d: %v", i, err)
			}
			strs[i] = str
		}
		return pvdata.FromStrings(pv, strs)
	case *pvdata.PVStructure:
		m, ok := v.(map[string]any)
		if !ok {
			return valueErrf(pv, "expected a table, got %T", v)
		}
		return applyTable(pv, m)
	case *pvdata.PVUnion:
		m, ok := v.(map[string]any)
		if !ok {
			return valueErrf(pv, "expected a table, got %T", v)
		}
		return applyUnion(pv, m)
	case *pvdata.PVStructureArray:
		tables, ok := tableList(v)
		if !ok {
			return valueErrf(pv, "expected an array of tables, got %T", v)
		}
		elems := make([]*pvdata.PVStructure, len(tables))
		for i, m := range tables {
			elems[i] = pvdata.NewPVStructure(pv.StructureArray().ElementField())
			if err := applyTable(elems[i], m); err != nil {
				return err
			}
		}
		return pv.Replace(sharedvec.ConstOf(elems...))
	case *pvdata.PVUnionArray:
		tables, ok := tableList(v)
		if !ok {
			return valueErrf(pv, "expected an array of tables, got %T", v)
		}
		elems := make([]*pvdata.PVUnion, len(tables))
		for i, m := range tables {
			elems[i] = pvdata.NewPVUnion(pv.UnionArray().ElementField())
			if err := applyUnion(elems[i], m); err != nil {
				return err
			}
		}
		return pv.Replace(sharedvec.ConstOf(elems...))
	default:
		panic("unreachable")
	}
}

func applyTable(pvs *pvdata.PVStructure, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		child := pvs.SubField(k)
		if child == nil || strings.Contains(k, ".") {
			return &pvdata.FieldError{Path: pvs.FullName(), Msg: fmt.Sprintf("unknown field %q", k), Err: pvdata.ErrFieldNotFound}
		}
		if err := applyValue(child, m[k]); err != nil {
			return err
		}
	}
	return nil
}

func applyUnion(pvu *pvdata.PVUnion, m map[string]any) error {
	if len(m) == 0 {
		if pvu.IsVariant() {
			return pvu.SetVariant(nil)
		}
		_, err := pvu.Select(pvdata.Undefined)
		return err
	}
	if len(m) > 1 {
		return valueErrf(pvu, "union table must have a single key, got %d", len(m))
	}
	for key, v := range m {
		var sel pvdata.PVField
		var err error
		if pvu.IsVariant() {
			var f pvdata.Field
			f, err = variantField(pvdata.RegistryOf(pvu.Field()), key)
			if err != nil {
				return valueErrf(pvu, "%v", err)
			}
			sel, err = pvu.SelectField(f)
		} else {
			sel, err = pvu.SelectName(key)
		}
		if err != nil {
			return err
		}
		return applyValue(sel, v)
	}
	return nil
}

// variantField resolves the type key of a variant union value. Only scalars
// and variable scalar arrays can be named this way.
func variantField(reg *pvdata.Registry, key string) (pvdata.Field, error) {
	name, isArray := strings.CutSuffix(key, arraySuffix)
	st, err := pvdata.ParseScalarType(name)
	if err != nil {
		return nil, err
	}
	if isArray {
		return reg.ScalarArray(st), nil
	}
	return reg.Scalar(st), nil
}

func tableList(v any) ([]map[string]any, bool) {
	switch v := v.(type) {
	case []map[string]any:
		return v, true
	case []any:
		out := make([]map[string]any, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}

// scalarValue narrows a decoded TOML value to a type scalar conversions
// accept. Date-times become RFC 3339 strings.
func scalarValue(v any) (any, error) {
	switch v := v.(type) {
	case bool, int64, float64, string:
		return v, nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	default:
		return nil, fmt.Errorf("expected a scalar, got %T", v)
	}
}

func scalarString(v any) (string, error) {
	sv, err := scalarValue(v)
	if err != nil {
		return "", err
	}
	switch sv := sv.(type) {
	case bool:
		return strconv.FormatBool(sv), nil
	case int64:
		return strconv.FormatInt(sv, 10), nil
	case float64:
		return strconv.FormatFloat(sv, 'g', -1, 64), nil
	default:
		return sv.(string), nil
	}
}

// FormatValues renders the value of pvs as a values document. Empty element
// array slots render as empty tables, so they read back as default values.
// A variant union holding anything but a scalar or scalar array cannot be
// rendered.
func FormatValues(pvs *pvdata.PVStructure) ([]byte, error) {
	m, err := formatTable(pvs)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatTable(pvs *pvdata.PVStructure) (map[string]any, error) {
	m := make(map[string]any, pvs.NumFields())
	for _, child := range pvs.PVFields() {
		v, err := formatValue(child)
		if err != nil {
			return nil, err
		}
		m[child.FieldName()] = v
	}
	return m, nil
}

func formatValue(pv pvdata.PVField) (any, error) {
	switch pv := pv.(type) {
	case pvdata.AnyPVScalar:
		return formatScalar(pv.AnyValue()), nil
	case pvdata.AnyPVScalarArray:
		strs := pvdata.ToStrings(pv)
		out := make([]any, len(strs))
		et := pv.ScalarArray().ElementType()
		for i, s := range strs {
			out[i] = formatElement(et, s)
		}
		return out, nil
	case *pvdata.PVStructure:
		return formatTable(pv)
	case *pvdata.PVUnion:
		return formatUnion(pv)
	case *pvdata.PVStructureArray:
		view := pv.View()
		defer view.Release()
		elems := view.Values()
		out := make([]map[string]any, len(elems))
		for i, e := range elems {
			if e == nil {
				out[i] = map[string]any{}
				continue
			}
			m, err := formatTable(e)
			if err != nil {
				return nil, err
			}
			out[i] = m
		}
		return out, nil
	case *pvdata.PVUnionArray:
		view := pv.View()
		defer view.Release()
		elems := view.Values()
		out := make([]map[string]any, len(elems))
		for i, e := range elems {
			if e == nil {
				out[i] = map[string]any{}
				continue
			}
			m, err := formatUnion(e)
			if err != nil {
				return nil, err
			}
			out[i] = m
		}
		return out, nil
	default:
		panic("unreachable")
	}
}

func formatUnion(pvu *pvdata.PVUnion) (map[string]any, error) {
	val := pvu.Value()
	if val == nil {
		return map[string]any{}, nil
	}
	key := pvu.SelectedName()
	if pvu.IsVariant() {
		switch f := val.Field().(type) {
		case *pvdata.Scalar:
			key = f.ScalarType().String()
		case *pvdata.ScalarArray:
			key = f.ElementType().String() + arraySuffix
		default:
			return nil, &pvdata.FieldError{Path: pvu.FullName(), Msg: "variant value " + f.ID() + " has no TOML form", Err: pvdata.ErrUnsupportedOperation}
		}
	}
	v, err := formatValue(val)
	if err != nil {
		return nil, err
	}
	return map[string]any{key: v}, nil
}

// formatScalar maps a scalar to a TOML-native value. Unsigned values that
// overflow int64 are written as strings.
func formatScalar(v any) any {
	switch v := v.(type) {
	case bool, string, int64, float64:
		return v
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return strconv.FormatUint(v, 10)
		}
		return int64(v)
	case float32:
		return float64(v)
	default:
		panic("unreachable")
	}
}

func formatElement(et pvdata.ScalarType, s string) any {
	switch {
	case et == pvdata.TBoolean:
		return s == "true"
	case et.IsInteger() || et.IsUInteger():
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		return s
	case et.IsNumeric():
		f, _ := strconv.ParseFloat(s, 64)
		return f
	default:
		return s
	}
}
