package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aiai-labs/funcgraph/internal/graph/embedded"
)

// dbPathFlag registers --db-path, falling back to sink.path from the config.
func dbPathFlag(cmd *cobra.Command, dbPath *string) {
	cmd.Flags().StringVar(dbPath, "db-path", "", "badger database directory (default: sink.path from the config)")
}

// openEmbeddedStore opens the badger store named by --db-path or the config.
func openEmbeddedStore(dbPath string) (*embedded.FunctionStore, string, error) {
	if dbPath == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, "", err
		}
		dbPath = cfg.Sink.Path
	}
	if dbPath == "" {
		return nil, "", fmt.Errorf("no database path; set sink.path or use --db-path")
	}
	store, err := embedded.NewStore(dbPath)
	if err != nil {
		return nil, "", fmt.Errorf("open graph store: %w", err)
	}
	return store, dbPath, nil
}

func newStatusCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what an embedded database holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, path, err := openEmbeddedStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			printSection(out, "Function Store")
			printKV(out, "Path", path)
			printKV(out, "Functions", stats.Functions)
			printKV(out, "Source files", stats.Files)
			printKV(out, "Data files", stats.DataFiles)
			fmt.Fprintln(out)
			return nil
		},
	}

	dbPathFlag(cmd, &dbPath)
	return cmd
}
