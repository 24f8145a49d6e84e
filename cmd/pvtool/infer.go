package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andreyvit/pvdata"
	"github.com/andreyvit/pvdata/pvjson"
	"github.com/andreyvit/pvdata/pvtoml"
)

var inferTOML bool

func init() {
	cmd := &cobra.Command{
		Use:   "infer <values.json>",
		Short: "Infer a structure from a JSON document",
		Long: `The infer command builds a structure whose fields follow the members
of a JSON object and prints its introspection tree, or a TOML schema that
the other commands accept.

Example:
  pvtool infer pump.json --toml > pump.schema.toml
  pvtool dump pump.schema.toml pump.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			pvs, err := pvjson.Parse(f, pvdata.NewRegistry())
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			out := cmd.OutOrStdout()
			if inferTOML {
				doc, err := pvtoml.FormatSchema(pvs.Structure())
				if err != nil {
					return err
				}
				_, err = out.Write(doc)
				return err
			}
			fmt.Fprintln(out, pvdata.FormatField(pvs.Structure()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&inferTOML, "toml", false, "Print a TOML schema")
	rootCmd.AddCommand(cmd)
}
