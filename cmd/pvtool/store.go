package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/andreyvit/pvdata"
	"github.com/andreyvit/pvdata/bitset"
	"github.com/andreyvit/pvdata/pvstore"
	"github.com/andreyvit/pvdata/pvtoml"
)

var (
	storeGetTOML bool
	storeGetJSON bool
	storeFields  []string
)

func init() {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Manage records in a Bolt store",
	}

	put := &cobra.Command{
		Use:   "put <db> <name> <schema.toml> [values.toml]",
		Short: "Store a record",
		Long: `The put command builds a structure from schema and value files and
stores it under name. With --field, only the named fields of an existing
record are updated.

Example:
  pvtool store put devices.db pump1 device.schema.toml pump1.toml
  pvtool store put devices.db pump1 device.schema.toml pump1.toml --field alarm --field value`,
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStorePut(args)
		},
	}
	put.Flags().StringSliceVar(&storeFields, "field", nil, "Update only these fields (dotted paths)")

	get := &cobra.Command{
		Use:   "get <db> <name>",
		Short: "Print a stored record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if storeGetTOML && storeGetJSON {
				return fmt.Errorf("--toml and --json cannot be combined")
			}
			return withStore(args[0], func(s *pvstore.Store) error {
				rec, err := s.Get(args[1])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if storeGetTOML {
					doc, err := pvtoml.FormatValues(rec.Value)
					if err != nil {
						return err
					}
					_, err = out.Write(doc)
					return err
				}
				if storeGetJSON {
					return printValue(out, rec.Value, true)
				}
				fmt.Fprintf(out, "# %s: mod %d, updated %s\n", rec.Name, rec.ModCount, rec.Updated.UTC().Format(time.RFC3339))
				fmt.Fprintln(out, pvdata.Dump(rec.Value))
				return nil
			})
		},
	}
	get.Flags().BoolVar(&storeGetTOML, "toml", false, "Print the value as a TOML values document")
	get.Flags().BoolVar(&storeGetJSON, "json", false, "Print the value as JSON")

	list := &cobra.Command{
		Use:   "list <db> [prefix]",
		Short: "List record names",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(args[0], func(s *pvstore.Store) error {
				names, err := s.List(optionalArg(args, 1))
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <db> <name>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(args[0], func(s *pvstore.Store) error {
				found, err := s.Delete(args[1])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("%s: %w", args[1], pvstore.ErrNotFound)
				}
				return nil
			})
		},
	}

	storeCmd.AddCommand(put, get, list, del)
	rootCmd.AddCommand(storeCmd)
}

func withStore(path string, f func(s *pvstore.Store) error) error {
	order, err := byteOrder()
	if err != nil {
		return err
	}
	s, err := pvstore.Open(path, pvdata.NewRegistry(), pvstore.Options{
		Logger:    logger,
		Verbose:   verbose,
		Timeout:   2 * time.Second,
		ByteOrder: order,
	})
	if err != nil {
		return err
	}
	defer s.Close()
	return f(s)
}

func runStorePut(args []string) error {
	dbPath, name := args[0], args[1]
	return withStore(dbPath, func(s *pvstore.Store) error {
		pvs, err := loadStructure(s.Registry(), args[2], optionalArg(args, 3))
		if err != nil {
			return err
		}
		if len(storeFields) == 0 {
			return s.Put(name, pvs)
		}
		changed := bitset.New()
		for _, path := range storeFields {
			pv, err := pvs.MustSubField(path)
			if err != nil {
				return err
			}
			changed.Set(pv.FieldOffset())
		}
		return s.PutChanged(name, pvs, changed)
	})
}
