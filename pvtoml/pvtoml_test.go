package pvtoml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreyvit/pvdata"
)

const deviceSchema = `
id = "device_t"

[[field]]
name = "value"
type = "double"

[[field]]
name = "label"
type = "string"
max = 8

[[field]]
name = "samples"
type = "short[]"
max = 4

[[field]]
name = "origin"
type = "float[]"
max = 3
fixed = true

[[field]]
name = "alarm"
type = "structure"
id = "alarm_t"
  [[field.fields]]
  name = "severity"
  type = "int"
  [[field.fields]]
  name = "message"
  type = "string"

[[field]]
name = "mode"
type = "union"
  [[field.fields]]
  name = "auto"
  type = "boolean"
  [[field.fields]]
  name = "level"
  type = "ubyte"

[[field]]
name = "extra"
type = "any"

[[field]]
name = "points"
type = "structure[]"
  [[field.fields]]
  name = "x"
  type = "long"

[[field]]
name = "history"
type = "any[]"
`

func parseDevice(t *testing.T, reg *pvdata.Registry) *pvdata.Structure {
	s, err := ParseSchema(reg, []byte(deviceSchema))
	require.NoError(t, err)
	return s
}

func TestParseSchema(t *testing.T) {
	reg := pvdata.NewRegistry()
	s := parseDevice(t, reg)

	assert.Equal(t, "device_t", s.ID())
	assert.Equal(t, []string{"value", "label", "samples", "origin", "alarm", "mode", "extra", "points", "history"}, s.FieldNames())
	assert.Same(t, reg.Scalar(pvdata.TDouble), s.Field("value"))

	label := s.Field("label").(*pvdata.Scalar)
	assert.Equal(t, 8, label.MaxLength())

	samples := s.Field("samples").(*pvdata.ScalarArray)
	assert.Equal(t, pvdata.Bounded, samples.SizeType())
	assert.Equal(t, 4, samples.MaxCapacity())
	origin := s.Field("origin").(*pvdata.ScalarArray)
	assert.Equal(t, pvdata.Fixed, origin.SizeType())
	assert.Equal(t, pvdata.TFloat, origin.ElementType())

	assert.Equal(t, "alarm_t", s.Field("alarm").ID())
	assert.Equal(t, pvdata.DefaultUnionID, s.Field("mode").ID())
	assert.True(t, s.Field("extra").(*pvdata.Union).IsVariant())
	assert.Equal(t, pvdata.KindStructureArray, s.Field("points").Kind())
	assert.Same(t, reg.VariantUnionArray(), s.Field("history"))
}

func TestParseSchema_errors(t *testing.T) {
	reg := pvdata.NewRegistry()
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown type", "[[field]]\nname = \"a\"\ntype = \"quad\""},
		{"unknown key", "[[field]]\nname = \"a\"\ntype = \"int\"\ncolor = \"red\""},
		{"max on int", "[[field]]\nname = \"a\"\ntype = \"int\"\nmax = 3"},
		{"fixed without max", "[[field]]\nname = \"a\"\ntype = \"int[]\"\nfixed = true"},
		{"fields on scalar", "[[field]]\nname = \"a\"\ntype = \"int\"\n[[field.fields]]\nname = \"b\"\ntype = \"int\""},
		{"empty union", "[[field]]\nname = \"a\"\ntype = \"union\""},
		{"duplicate", "[[field]]\nname = \"a\"\ntype = \"int\"\n[[field]]\nname = \"a\"\ntype = \"int\""},
		{"empty name", "[[field]]\nname = \"\"\ntype = \"int\""},
		{"syntax", "[[field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchema(reg, []byte(tt.doc))
			assert.ErrorIs(t, err, pvdata.ErrInvalidSchema)
		})
	}
}

func TestFormatSchema_roundTrip(t *testing.T) {
	reg := pvdata.NewRegistry()
	s := parseDevice(t, reg)

	data, err := FormatSchema(s)
	require.NoError(t, err)
	again, err := ParseSchema(reg, data)
	require.NoError(t, err)
	assert.Same(t, s, again, "%s", data)
}

const deviceValues = `
value = 3.5
label = "pump"
samples = [1, 2, 3]
origin = [0.5, 1, 1.5]
extra = { "int[]" = [7, 8] }

[alarm]
severity = 2
message = "high"

[mode]
level = 200

[[points]]
x = 10

[[points]]
x = -20

[[history]]
double = 1.25

[[history]]
`

func TestParseValues(t *testing.T) {
	reg := pvdata.NewRegistry()
	pvs := pvdata.NewPVStructure(parseDevice(t, reg))
	require.NoError(t, ParseValues(pvs, []byte(deviceValues)))

	assert.Equal(t, 3.5, pvs.DoubleField("value").Get())
	assert.Equal(t, "pump", pvs.StringField("label").Get())
	assert.Equal(t, []string{"1", "2", "3"}, pvdata.ToStrings(pvs.ScalarArrayField("samples")))
	assert.Equal(t, []string{"0.5", "1", "1.5"}, pvdata.ToStrings(pvs.ScalarArrayField("origin")))
	assert.Equal(t, int32(2), pvs.IntField("alarm.severity").Get())
	assert.Equal(t, "high", pvs.StringField("alarm.message").Get())

	mode := pvs.UnionField("mode")
	assert.Equal(t, "level", mode.SelectedName())
	assert.Equal(t, uint8(200), mode.Value().(*pvdata.PVUByte).Get())

	extra := pvs.UnionField("extra").Value().(*pvdata.PVIntArray)
	assert.Equal(t, []int32{7, 8}, extra.View().Values())

	points := pvs.StructureArrayField("points").View().Values()
	require.Len(t, points, 2)
	assert.Equal(t, int64(-20), points[1].LongField("x").Get())

	history := pvs.UnionArrayField("history").View().Values()
	require.Len(t, history, 2)
	assert.Equal(t, 1.25, history[0].Value().(*pvdata.PVDouble).Get())
	assert.Nil(t, history[1].Value())
}

func TestParseValues_errors(t *testing.T) {
	reg := pvdata.NewRegistry()
	tests := []struct {
		name string
		doc  string
		err  error
	}{
		{"unknown field", "nope = 1", pvdata.ErrFieldNotFound},
		{"unknown nested", "[alarm]\nnope = 1", pvdata.ErrFieldNotFound},
		{"bad number", "alarm = { severity = \"x\" }", pvdata.ErrInvalidArgument},
		{"table for scalar", "value = { a = 1 }", pvdata.ErrInvalidArgument},
		{"too long", "label = \"centrifugal\"", pvdata.ErrOverflow},
		{"bounded overflow", "samples = [1, 2, 3, 4, 5]", pvdata.ErrInvalidArgument},
		{"two union keys", "mode = { auto = true, level = 1 }", pvdata.ErrInvalidArgument},
		{"unknown union member", "mode = { other = 1 }", pvdata.ErrFieldNotFound},
		{"structure variant", "extra = { structure = {} }", pvdata.ErrInvalidArgument},
		{"syntax", "value = ", pvdata.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pvs := pvdata.NewPVStructure(parseDevice(t, reg))
			assert.ErrorIs(t, ParseValues(pvs, []byte(tt.doc)), tt.err)
		})
	}
}

func TestFormatValues_roundTrip(t *testing.T) {
	reg := pvdata.NewRegistry()
	s := parseDevice(t, reg)
	pvs := pvdata.NewPVStructure(s)
	require.NoError(t, ParseValues(pvs, []byte(deviceValues)))

	data, err := FormatValues(pvs)
	require.NoError(t, err)

	again := pvdata.NewPVStructure(s)
	require.NoError(t, ParseValues(again, data))
	assert.True(t, pvdata.EqualPV(pvs, again), "%s", data)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "device.schema.toml")
	valuesPath := filepath.Join(dir, "device.toml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(deviceSchema), 0o644))
	require.NoError(t, os.WriteFile(valuesPath, []byte(deviceValues), 0o644))

	reg := pvdata.NewRegistry()
	s, err := LoadSchema(reg, schemaPath)
	require.NoError(t, err)
	pvs := pvdata.NewPVStructure(s)
	require.NoError(t, LoadValues(pvs, valuesPath))
	assert.Equal(t, "pump", pvs.StringField("label").Get())

	_, err = LoadSchema(reg, filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
