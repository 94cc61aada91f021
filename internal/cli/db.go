package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newExportDBCmd() *cobra.Command {
	var dbPath, output string

	cmd := &cobra.Command{
		Use:   "export-db",
		Short: "Dump an embedded database as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			store, _, err := openEmbeddedStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer func() {
					if cerr := f.Close(); cerr != nil && err == nil {
						err = cerr
					}
				}()
				w = f
			}
			if err := store.Export(cmd.Context(), w); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", output)
			}
			return nil
		},
	}

	dbPathFlag(cmd, &dbPath)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newImportDBCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "import-db <file>",
		Short: "Replace an embedded database with a JSON-lines dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open dump: %w", err)
			}
			defer f.Close()

			store, path, err := openEmbeddedStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Import(cmd.Context(), f); err != nil {
				return fmt.Errorf("import: %w", err)
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d functions and %d data files into %s\n", stats.Functions, stats.DataFiles, path)
			return nil
		},
	}

	dbPathFlag(cmd, &dbPath)
	return cmd
}
