package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/aiai-labs/funcgraph/internal/config"
	"github.com/aiai-labs/funcgraph/internal/parser"
)

// detectLanguages walks rootDir (depth-limited to 2 levels) and returns
// the supported languages whose file extensions occur there.
func detectLanguages(rootDir string) []string {
	found := make(map[string]bool)

	extToLang := make(map[string]string)
	for _, lang := range []parser.Language{parser.LangPython, parser.LangTypeScript, parser.LangJavaScript} {
		for _, ext := range parser.FileExtensions[lang] {
			extToLang[ext] = string(lang)
		}
	}

	rootDepth := strings.Count(filepath.ToSlash(rootDir), "/")
	_ = filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		depth := strings.Count(filepath.ToSlash(path), "/") - rootDepth
		if d.IsDir() {
			if depth >= 2 {
				return fs.SkipDir
			}
			base := d.Name()
			if base == ".git" || base == "node_modules" || base == "venv" || base == ".venv" || base == "__pycache__" || base == "dist" || base == "build" {
				return fs.SkipDir
			}
			return nil
		}
		if lang, ok := extToLang[strings.ToLower(filepath.Ext(path))]; ok {
			found[lang] = true
		}
		return nil
	})

	result := make([]string, 0, len(found))
	for lang := range found {
		result = append(result, lang)
	}
	sort.Strings(result)
	return result
}

// runInteractiveInit asks for the settings in a form and writes them to path.
func runInteractiveInit(cmd *cobra.Command, cwd, path string) error {
	out := cmd.OutOrStdout()
	cfg := config.Default()

	detected := detectLanguages(cwd)
	if len(detected) == 1 {
		cfg.Analysis.Language = detected[0]
	}

	var (
		maxDepth = strconv.Itoa(cfg.Analysis.MaxDepth)
		confirm  bool
	)

	languageOptions := []huh.Option[string]{
		huh.NewOption("Infer from entrypoint", ""),
		huh.NewOption("Python", string(parser.LangPython)),
		huh.NewOption("TypeScript", string(parser.LangTypeScript)),
		huh.NewOption("JavaScript", string(parser.LangJavaScript)),
	}
	formatOptions := huh.NewOptions(config.Formats...)
	sinkOptions := []huh.Option[string]{
		huh.NewOption("Do not persist", "none"),
		huh.NewOption("Badger (embedded)", "badger"),
		huh.NewOption("SQLite", "sqlite"),
		huh.NewOption("Neo4j", "neo4j"),
	}

	form := huh.NewForm(
		// Group 1: Analysis
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Source language").
				Description(detectedDescription(detected)).
				Options(languageOptions...).
				Value(&cfg.Analysis.Language),
			huh.NewConfirm().
				Title("Follow imports into other files?").
				Value(&cfg.Analysis.Recursive).
				Affirmative("Yes").
				Negative("No"),
			huh.NewInput().
				Title("Maximum import depth").
				Value(&maxDepth).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 0 {
						return fmt.Errorf("max depth must be a non-negative number")
					}
					return nil
				}),
		).Title("Analysis"),

		// Group 2: Output
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Output format").
				Options(formatOptions...).
				Value(&cfg.Output.Format),
			huh.NewInput().
				Title("Output file").
				Description("Leave empty to write to stdout").
				Value(&cfg.Output.Path),
		).Title("Output"),

		// Group 3a: Sink
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Persist functions to").
				Options(sinkOptions...).
				Value(&cfg.Sink.Type),
		).Title("Sink"),

		// Group 3b: Database path (hidden unless badger or sqlite selected)
		huh.NewGroup(
			huh.NewInput().
				Title("Database path").
				Value(&cfg.Sink.Path).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a database path is required for %s", cfg.Sink.Type)
					}
					return nil
				}),
		).Title("Database").
			WithHideFunc(func() bool { return cfg.Sink.Type != "badger" && cfg.Sink.Type != "sqlite" }),

		// Group 3c: Neo4j (hidden unless neo4j selected)
		huh.NewGroup(
			huh.NewInput().
				Title("Neo4j URI").
				Placeholder("neo4j://localhost:7687").
				Value(&cfg.Sink.Neo4jURI).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a URI is required for neo4j")
					}
					return nil
				}),
			huh.NewInput().
				Title("Neo4j user").
				Value(&cfg.Sink.Neo4jUser),
			huh.NewInput().
				Title("Neo4j database").
				Description("Leave empty for the server default").
				Value(&cfg.Sink.Neo4jDatabase),
			huh.NewNote().
				Title("Password").
				Description("Set FUNCGRAPH_SINK_NEO4J_PASSWORD instead of storing it in the file."),
		).Title("Neo4j").
			WithHideFunc(func() bool { return cfg.Sink.Type != "neo4j" }),

		// Group 4: Confirm
		huh.NewGroup(
			huh.NewNote().
				Title("Summary").
				DescriptionFunc(func() string {
					language := cfg.Analysis.Language
					if language == "" {
						language = "(from entrypoint)"
					}
					return fmt.Sprintf(
						"Language:   %s\n"+
							"Recursive:  %v\n"+
							"Max depth:  %s\n"+
							"Format:     %s\n"+
							"Sink:       %s",
						language, cfg.Analysis.Recursive, maxDepth,
						cfg.Output.Format, cfg.Sink.Type,
					)
				}, &cfg.Sink.Type),
			huh.NewConfirm().
				Title("Write " + path + "?").
				Value(&confirm).
				Affirmative("Write").
				Negative("Cancel"),
		).Title("Confirm"),
	).WithTheme(huh.ThemeCharm())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
		return fmt.Errorf("interactive init: %w", err)
	}
	if !confirm {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}

	cfg.Analysis.MaxDepth, _ = strconv.Atoi(strings.TrimSpace(maxDepth))
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := config.WriteConfig(cfg, path); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	fmt.Fprintf(out, "Created %s\n", path)
	printNextSteps(cmd)
	return nil
}

func detectedDescription(detected []string) string {
	if len(detected) == 0 {
		return "No Python or TypeScript sources found nearby"
	}
	return "Found: " + strings.Join(detected, ", ")
}
