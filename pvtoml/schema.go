// Package pvtoml reads and writes pvData schemas and values as TOML.
//
// A schema document lists the fields of a top-level structure:
//
//	id = "NTScalar"
//
//	[[field]]
//	name = "value"
//	type = "double"
//
//	[[field]]
//	name = "alarm"
//	type = "structure"
//	id = "alarm_t"
//	  [[field.fields]]
//	  name = "severity"
//	  type = "int"
//
// Types are scalar type names, "T[]" for scalar arrays, "structure",
// "union", "any" (variant union), and "structure[]", "union[]" and "any[]"
// for the element arrays. A max on a string makes it bounded; on a scalar
// array it makes the array bounded, or fixed with fixed = true.
package pvtoml

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/andreyvit/pvdata"
)

type schemaDoc struct {
	ID     string     `toml:"id,omitempty"`
	Fields []fieldDoc `toml:"field"`
}

type fieldDoc struct {
	Name   string     `toml:"name"`
	Type   string     `toml:"type"`
	ID     string     `toml:"id,omitempty"`
	Max    int        `toml:"max,omitempty"`
	Fixed  bool       `toml:"fixed,omitempty"`
	Fields []fieldDoc `toml:"fields,omitempty"`
}

const (
	typeStructure = "structure"
	typeUnion     = "union"
	typeVariant   = "any"
	arraySuffix   = "[]"
)

// LoadSchema parses the schema file at path.
func LoadSchema(reg *pvdata.Registry, path string) (*pvdata.Structure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	s, err := ParseSchema(reg, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseSchema builds the structure described by a schema document. Unknown
// keys are an error.
func ParseSchema(reg *pvdata.Registry, data []byte) (*pvdata.Structure, error) {
	var doc schemaDoc
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w: %v", pvdata.ErrInvalidSchema, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s: %w", undecoded[0], pvdata.ErrInvalidSchema)
	}
	names, fields, err := buildFields(reg, "", doc.Fields)
	if err != nil {
		return nil, err
	}
	return reg.StructureID(idOr(doc.ID, pvdata.DefaultStructureID), names, fields)
}

func idOr(id, def string) string {
	if id == "" {
		return def
	}
	return id
}

func buildFields(reg *pvdata.Registry, prefix string, docs []fieldDoc) ([]string, []pvdata.Field, error) {
	names := make([]string, 0, len(docs))
	fields := make([]pvdata.Field, 0, len(docs))
	for _, fd := range docs {
		f, err := buildField(reg, prefix+fd.Name, fd)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, fd.Name)
		fields = append(fields, f)
	}
	return names, fields, nil
}

func schemaErrf(path string, format string, args ...any) error {
	return fmt.Errorf("field %s: %s: %w", path, fmt.Sprintf(format, args...), pvdata.ErrInvalidSchema)
}

func buildField(reg *pvdata.Registry, path string, fd fieldDoc) (pvdata.Field, error) {
	typ, isArray := strings.CutSuffix(fd.Type, arraySuffix)
	composite := typ == typeStructure || typ == typeUnion || typ == typeVariant
	if !composite && len(fd.Fields) > 0 {
		return nil, schemaErrf(path, "%s cannot have fields", fd.Type)
	}
	if composite && (fd.Max != 0 || fd.Fixed) {
		return nil, schemaErrf(path, "%s cannot have max or fixed", fd.Type)
	}
	if fd.Fixed && fd.Max <= 0 {
		return nil, schemaErrf(path, "fixed requires max")
	}

	switch typ {
	case typeStructure:
		names, fields, err := buildFields(reg, path+".", fd.Fields)
		if err != nil {
			return nil, err
		}
		s, err := reg.StructureID(idOr(fd.ID, pvdata.DefaultStructureID), names, fields)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", path, err)
		}
		if isArray {
			return reg.StructureArray(s), nil
		}
		return s, nil
	case typeUnion:
		if len(fd.Fields) == 0 {
			return nil, schemaErrf(path, "union needs fields, use %q for a variant union", typeVariant)
		}
		names, fields, err := buildFields(reg, path+".", fd.Fields)
		if err != nil {
			return nil, err
		}
		u, err := reg.UnionID(idOr(fd.ID, pvdata.DefaultUnionID), names, fields)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", path, err)
		}
		if isArray {
			return reg.UnionArray(u), nil
		}
		return u, nil
	case typeVariant:
		if fd.ID != "" {
			return nil, schemaErrf(path, "variant union cannot have an id")
		}
		if isArray {
			return reg.VariantUnionArray(), nil
		}
		return reg.VariantUnion(), nil
	}

	if fd.ID != "" {
		return nil, schemaErrf(path, "%s cannot have an id", fd.Type)
	}
	st, err := pvdata.ParseScalarType(typ)
	if err != nil {
		return nil, schemaErrf(path, "unknown type %q", fd.Type)
	}
	var f pvdata.Field
	switch {
	case !isArray && fd.Max == 0:
		return reg.Scalar(st), nil
	case !isArray && st == pvdata.TString:
		f, err = reg.BoundedString(fd.Max)
	case !isArray:
		return nil, schemaErrf(path, "max only applies to strings and arrays")
	case fd.Max == 0:
		return reg.ScalarArray(st), nil
	case fd.Fixed:
		f, err = reg.FixedScalarArray(st, fd.Max)
	default:
		f, err = reg.BoundedScalarArray(st, fd.Max)
	}
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", path, err)
	}
	return f, nil
}

// FormatSchema renders s as a schema document that ParseSchema accepts.
func FormatSchema(s *pvdata.Structure) ([]byte, error) {
	doc := schemaDoc{
		ID:     omitDefault(s.ID(), pvdata.DefaultStructureID),
		Fields: formatFields(s.FieldNames(), s.Fields()),
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func omitDefault(id, def string) string {
	if id == def {
		return ""
	}
	return id
}

func formatFields(names []string, fields []pvdata.Field) []fieldDoc {
	docs := make([]fieldDoc, len(fields))
	for i, f := range fields {
		docs[i] = formatField(names[i], f)
	}
	return docs
}

func formatField(name string, f pvdata.Field) fieldDoc {
	fd := fieldDoc{Name: name}
	switch f := f.(type) {
	case *pvdata.Scalar:
		fd.Type = f.ScalarType().String()
		fd.Max = f.MaxLength()
	case *pvdata.ScalarArray:
		fd.Type = f.ElementType().String() + arraySuffix
		if f.SizeType() != pvdata.Variable {
			fd.Max = f.MaxCapacity()
			fd.Fixed = f.SizeType() == pvdata.Fixed
		}
	case *pvdata.Structure:
		fd.Type = typeStructure
		fd.ID = omitDefault(f.ID(), pvdata.DefaultStructureID)
		fd.Fields = formatFields(f.FieldNames(), f.Fields())
	case *pvdata.StructureArray:
		fd = formatField(name, f.ElementField())
		fd.Type += arraySuffix
	case *pvdata.Union:
		if f.IsVariant() {
			fd.Type = typeVariant
			break
		}
		fd.Type = typeUnion
		fd.ID = omitDefault(f.ID(), pvdata.DefaultUnionID)
		fd.Fields = formatFields(f.FieldNames(), f.Fields())
	case *pvdata.UnionArray:
		fd = formatField(name, f.ElementField())
		fd.Type += arraySuffix
	default:
		panic("unreachable")
	}
	return fd
}
