package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aiai-labs/funcgraph/internal/config"
)

// configFileName is where init writes when --config is not given.
const configFileName = config.DefaultConfigFile + "." + config.DefaultConfigType

func newInitCmd() *cobra.Command {
	var interactive, force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a .funcgraph.yaml config file",
		Long: `Write a configuration file with the default settings to .funcgraph.yaml
(or the --config path). When the current directory holds sources of a single
supported language, that language is preselected.

Use --interactive to choose the settings in a form.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			path := cfgFile
			if path == "" {
				path = configFileName
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite it", path)
			}

			if interactive {
				return runInteractiveInit(cmd, cwd, path)
			}

			cfg := config.Default()
			if detected := detectLanguages(cwd); len(detected) == 1 {
				cfg.Analysis.Language = detected[0]
			}
			if err := config.WriteConfig(cfg, path); err != nil {
				return fmt.Errorf("write config file: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s\n", path)
			printNextSteps(cmd)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "choose settings in an interactive form")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func printNextSteps(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Review the analysis and sink sections of the config file")
	fmt.Fprintln(out, "  2. Run 'funcgraph analyze <entrypoint>' to build a dependency graph")
	fmt.Fprintln(out, "  3. Run 'funcgraph project <entrypoint>' to include data files")
}
