package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the configuration after merging defaults, the config file and
FUNCGRAPH_* environment variables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			fmt.Fprintln(out, headerStyle.Render("funcgraph Configuration"))
			fmt.Fprintln(out, headerStyle.Render(strings.Repeat("=", 23)))
			fmt.Fprintln(out)

			printSection(out, "Analysis")
			language := cfg.Analysis.Language
			if language == "" {
				language = "(from entrypoint)"
			}
			printKV(out, "Language", language)
			printKV(out, "Recursive", boolYesNo(cfg.Analysis.Recursive))
			printKV(out, "Max depth", cfg.Analysis.MaxDepth)
			fmt.Fprintln(out)

			printSection(out, "Output")
			printKV(out, "Format", cfg.Output.Format)
			path := cfg.Output.Path
			if path == "" {
				path = "(stdout)"
			}
			printKV(out, "Path", path)
			fmt.Fprintln(out)

			printSection(out, "Sink")
			printKV(out, "Type", cfg.Sink.Type)
			switch cfg.Sink.Type {
			case "badger", "sqlite":
				printKV(out, "Path", cfg.Sink.Path)
			case "neo4j":
				printKV(out, "URI", cfg.Sink.Neo4jURI)
				printKV(out, "User", cfg.Sink.Neo4jUser)
				if cfg.Sink.Neo4jDatabase != "" {
					printKV(out, "Database", cfg.Sink.Neo4jDatabase)
				}
			}
			fmt.Fprintln(out)

			printSection(out, "Logging")
			printKV(out, "Level", cfg.Log.Level)
			printKV(out, "Format", cfg.Log.Format)
			fmt.Fprintln(out)

			printSection(out, "Data Files")
			printKV(out, "Extensions", strings.Join(cfg.DataFiles.Extensions, ", "))
			printKV(out, "Excluded dirs", strings.Join(cfg.DataFiles.ExcludeDirs, ", "))
			printKV(out, "Skipped files", strings.Join(cfg.DataFiles.SkipFiles, ", "))
			fmt.Fprintln(out)

			if cfg.Telemetry.TraceFile != "" || cfg.Telemetry.MetricsFile != "" {
				printSection(out, "Telemetry")
				if cfg.Telemetry.TraceFile != "" {
					printKV(out, "Trace file", cfg.Telemetry.TraceFile)
				}
				if cfg.Telemetry.MetricsFile != "" {
					printKV(out, "Metrics file", cfg.Telemetry.MetricsFile)
				}
				fmt.Fprintln(out)
			}

			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(out, "  %s %v\n\n", warnStyle.Render("Invalid:"), err)
			}
			return nil
		},
	}
}

func boolYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
