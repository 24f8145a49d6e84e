package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andreyvit/pvdata"
	"github.com/andreyvit/pvdata/pvtoml"
)

var schemaHex bool

func init() {
	cmd := newSchemaCmd()
	cmd.Flags().BoolVar(&schemaHex, "hex", false, "Also print the encoded descriptor as hex")
	rootCmd.AddCommand(cmd)
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <schema.toml>",
		Short: "Print the structure described by a schema file",
		Long: `The schema command parses a TOML schema and prints the resulting
introspection tree.

Example:
  pvtool schema device.schema.toml
  pvtool schema device.schema.toml --hex`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := pvdata.NewRegistry()
			s, err := pvtoml.LoadSchema(reg, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, pvdata.FormatField(s))
			if schemaHex {
				data, err := pvdata.MarshalField(s)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, hex.EncodeToString(data))
			}
			return nil
		},
	}
}
