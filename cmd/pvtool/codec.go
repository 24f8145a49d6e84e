package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andreyvit/pvdata"
	"github.com/andreyvit/pvdata/pvtoml"
	"github.com/andreyvit/pvdata/wire"
)

var (
	encodeOutput string
	encodeHex    bool
	decodeHex    bool
	decodeTOML   bool
	decodeJSON   bool
	dumpJSON     bool
)

func init() {
	dump := &cobra.Command{
		Use:   "dump <schema.toml> [values.toml|values.json]",
		Short: "Print a structure built from schema and value files",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pvs, err := loadStructure(pvdata.NewRegistry(), args[0], optionalArg(args, 1))
			if err != nil {
				return err
			}
			return printValue(cmd.OutOrStdout(), pvs, dumpJSON)
		},
	}
	dump.Flags().BoolVar(&dumpJSON, "json", false, "Print the value as JSON")
	rootCmd.AddCommand(dump)

	encode := &cobra.Command{
		Use:   "encode <schema.toml> [values.toml|values.json]",
		Short: "Encode a structure as a descriptor followed by its value",
		Long: `The encode command writes the wire form of a structure: its
introspection descriptor followed by the full value.

Example:
  pvtool encode device.schema.toml device.toml -o device.bin
  pvtool encode device.schema.toml device.toml --hex --order little`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(cmd, args)
		},
	}
	encode.Flags().StringVarP(&encodeOutput, "output", "o", "", "Write to a file instead of stdout")
	encode.Flags().BoolVar(&encodeHex, "hex", false, "Write hex instead of raw bytes")
	rootCmd.AddCommand(encode)

	decode := &cobra.Command{
		Use:   "decode <file>",
		Short: "Decode a descriptor and value written by encode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, args[0])
		},
	}
	decode.Flags().BoolVar(&decodeHex, "hex", false, "Input is hex")
	decode.Flags().BoolVar(&decodeTOML, "toml", false, "Print the value as a TOML values document")
	decode.Flags().BoolVar(&decodeJSON, "json", false, "Print the value as JSON")
	rootCmd.AddCommand(decode)
}

func runEncode(cmd *cobra.Command, args []string) error {
	order, err := byteOrder()
	if err != nil {
		return err
	}
	pvs, err := loadStructure(pvdata.NewRegistry(), args[0], optionalArg(args, 1))
	if err != nil {
		return err
	}

	w := wire.NewWriter(order)
	if err := pvdata.SerializeField(w, pvs.Field(), nil); err != nil {
		return err
	}
	if err := pvdata.Serialize(w, pvs, nil); err != nil {
		return err
	}
	data := w.Bytes()
	logger.LogAttrs(cmd.Context(), slog.LevelDebug, "encoded", slog.String("schema", args[0]), slog.Int("bytes", len(data)), slog.String("order", orderName))

	if encodeHex {
		data = []byte(hex.EncodeToString(data) + "\n")
	}
	if encodeOutput != "" {
		return os.WriteFile(encodeOutput, data, 0o644)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runDecode(cmd *cobra.Command, path string) error {
	if decodeTOML && decodeJSON {
		return fmt.Errorf("--toml and --json cannot be combined")
	}
	order, err := byteOrder()
	if err != nil {
		return err
	}
	var data []byte
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	if decodeHex {
		data, err = hex.DecodeString(strings.Join(strings.Fields(string(data)), ""))
		if err != nil {
			return fmt.Errorf("invalid hex: %w", err)
		}
	}

	r := wire.NewReader(data, order)
	f, err := pvdata.DeserializeField(r, pvdata.NewRegistry(), nil)
	if err != nil {
		return err
	}
	if f == nil {
		return fmt.Errorf("%s: null descriptor", path)
	}
	pv := pvdata.NewPVField(f)
	if err := pvdata.Deserialize(r, pv, nil); err != nil {
		return err
	}
	if n := r.Buffered(); n > 0 {
		logger.LogAttrs(cmd.Context(), slog.LevelWarn, "trailing bytes ignored", slog.String("file", path), slog.Int("count", n))
	}

	out := cmd.OutOrStdout()
	if decodeTOML {
		pvs, ok := pv.(*pvdata.PVStructure)
		if !ok {
			return fmt.Errorf("%s: --toml needs a structure, got %v", path, f.Kind())
		}
		doc, err := pvtoml.FormatValues(pvs)
		if err != nil {
			return err
		}
		_, err = out.Write(doc)
		return err
	}
	return printValue(out, pv, decodeJSON)
}
