package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/andreyvit/pvdata"
	"github.com/andreyvit/pvdata/pvjson"
	"github.com/andreyvit/pvdata/pvtoml"
)

var (
	// Global flags
	verbose   bool
	orderName string

	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "pvtool",
	Short: "Inspect, encode and store pvData structures",
	Long: `pvtool builds pvData structures from TOML schema and value files,
converts them to and from the binary wire format, and keeps named records
in a Bolt store.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		_, err := byteOrder()
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&orderName, "order", "big", "Wire byte order: big or little")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func byteOrder() (binary.ByteOrder, error) {
	switch orderName {
	case "big", "be":
		return binary.BigEndian, nil
	case "little", "le":
		return binary.LittleEndian, nil
	default:
		return nil, fmt.Errorf("unknown byte order %q", orderName)
	}
}

// loadStructure builds a structure from a schema file and, when valuesPath
// is non-empty, applies a values file to it. Values files ending in .json
// are JSON documents, anything else is TOML.
func loadStructure(reg *pvdata.Registry, schemaPath, valuesPath string) (*pvdata.PVStructure, error) {
	s, err := pvtoml.LoadSchema(reg, schemaPath)
	if err != nil {
		return nil, err
	}
	pvs := pvdata.NewPVStructure(s)
	switch {
	case valuesPath == "":
	case filepath.Ext(valuesPath) == ".json":
		err = pvjson.LoadValues(pvs, valuesPath)
	default:
		err = pvtoml.LoadValues(pvs, valuesPath)
	}
	if err != nil {
		return nil, err
	}
	return pvs, nil
}

// printValue writes pv as a JSON document when asJSON is set and as a
// dump otherwise.
func printValue(w io.Writer, pv pvdata.PVField, asJSON bool) error {
	if asJSON {
		return pvjson.Print(w, pv, pvjson.PrintOptions{MultiLine: true})
	}
	_, err := fmt.Fprintln(w, pvdata.Dump(pv))
	return err
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
