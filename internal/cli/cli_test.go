package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aiai-labs/funcgraph/internal/analyzer"
	"github.com/aiai-labs/funcgraph/internal/config"
	"github.com/aiai-labs/funcgraph/internal/graph"
	"github.com/aiai-labs/funcgraph/internal/graph/sqlite"
)

const mainSource = `from utils import helper


def main():
    helper()
    local()


def local():
    return 1
`

const utilsSource = `def helper():
    return "config.json"
`

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newProject writes the two-file Python fixture and moves into it.
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.py"), mainSource)
	writeFile(t, filepath.Join(dir, "utils.py"), utilsSource)
	t.Chdir(dir)
	return dir
}

func TestAnalyzeWritesJSON(t *testing.T) {
	newProject(t)

	stdout, stderr, err := runCLI(t, "analyze", "main.py")
	if err != nil {
		t.Fatalf("analyze: %v\n%s", err, stderr)
	}
	g, err := graph.ImportStructure(strings.NewReader(stdout))
	if err != nil {
		t.Fatalf("output is not structural JSON: %v\n%s", err, stdout)
	}
	if g.Len() != 3 {
		t.Errorf("functions = %d, want 3 (main, local, helper)", g.Len())
	}
	if g.EdgeCount() != 1 {
		t.Errorf("edges = %d, want 1 (main -> local)", g.EdgeCount())
	}
	if !strings.Contains(stderr, "Analysis Summary") {
		t.Errorf("summary missing from stderr:\n%s", stderr)
	}
}

func TestAnalyzeMarkdownToFile(t *testing.T) {
	dir := newProject(t)
	out := filepath.Join(dir, "deps.md")

	stdout, _, err := runCLI(t, "analyze", "main.py", "--format", "markdown", "--output", out, "--recursive=false")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if stdout != "" {
		t.Errorf("stdout should be empty when --output is set, got %q", stdout)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	md := string(data)
	if !strings.HasPrefix(md, "# Function Dependency Graph") {
		t.Errorf("unexpected markdown header:\n%s", md)
	}
	if strings.Contains(md, "`helper`") {
		t.Error("non-recursive analysis must not include functions from utils.py")
	}
}

func TestAnalyzeMissingEntrypoint(t *testing.T) {
	newProject(t)
	_, _, err := runCLI(t, "analyze", "nope.py")
	if !errors.Is(err, analyzer.ErrEntrypointNotFound) {
		t.Errorf("err = %v, want ErrEntrypointNotFound", err)
	}
}

func TestAnalyzeRejectsUnknownFormat(t *testing.T) {
	newProject(t)
	_, _, err := runCLI(t, "analyze", "main.py", "--format", "yaml")
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("err = %v, want invalid config", err)
	}
}

func TestAnalyzeSQLiteSink(t *testing.T) {
	dir := newProject(t)
	dbPath := filepath.Join(dir, "funcs.db")

	if _, stderr, err := runCLI(t, "analyze", "main.py", "--sink", "sqlite", "--sink-path", dbPath); err != nil {
		t.Fatalf("analyze: %v\n%s", err, stderr)
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	fns, err := store.FunctionsByFile(context.Background(), filepath.Join(dir, "main.py"))
	if err != nil {
		t.Fatal(err)
	}
	if len(fns) != 2 || fns[0].Name != "main" || fns[1].Name != "local" {
		t.Errorf("stored functions = %v", fns)
	}
	if fns[0].Metadata["cyclomatic_complexity"] == nil {
		t.Error("stored function should carry metrics")
	}
}

func TestBadgerStatusExportImport(t *testing.T) {
	dir := newProject(t)
	dbPath := filepath.Join(dir, "db")
	dump := filepath.Join(dir, "dump.jsonl")

	if _, stderr, err := runCLI(t, "analyze", "main.py", "--sink", "badger", "--sink-path", dbPath); err != nil {
		t.Fatalf("analyze: %v\n%s", err, stderr)
	}

	status, _, err := runCLI(t, "status", "--db-path", dbPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(status, "Functions") || !strings.Contains(status, "3") {
		t.Errorf("status output:\n%s", status)
	}

	if _, _, err := runCLI(t, "export-db", "--db-path", dbPath, "--output", dump); err != nil {
		t.Fatalf("export-db: %v", err)
	}
	data, err := os.ReadFile(dump)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 3 {
		t.Errorf("dump has %d lines, want 3", lines)
	}

	imported, _, err := runCLI(t, "import-db", dump, "--db-path", filepath.Join(dir, "db2"))
	if err != nil {
		t.Fatalf("import-db: %v", err)
	}
	if !strings.Contains(imported, "Imported 3 functions and 0 data files") {
		t.Errorf("import output = %q", imported)
	}
}

func TestStatusRequiresPath(t *testing.T) {
	newProject(t)
	_, _, err := runCLI(t, "status")
	if err == nil || !strings.Contains(err.Error(), "no database path") {
		t.Errorf("err = %v", err)
	}
}

func TestProjectReportsDataFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.py"), "def load():\n    return open(\"settings.yaml\").read()\n")
	writeFile(t, filepath.Join(dir, "settings.yaml"), "name: demo\n")
	writeFile(t, filepath.Join(dir, "node_modules", "pkg", "data.json"), "{}")
	t.Chdir(dir)

	_, stderr, err := runCLI(t, "project", "app.py")
	if err != nil {
		t.Fatalf("project: %v\n%s", err, stderr)
	}
	if !strings.Contains(stderr, "settings.yaml") || !strings.Contains(stderr, "load (") {
		t.Errorf("data file report missing:\n%s", stderr)
	}
	if strings.Contains(stderr, "data.json") {
		t.Error("node_modules must be excluded from data file discovery")
	}
}

func TestMetricsCommand(t *testing.T) {
	newProject(t)
	stdout, _, err := runCLI(t, "metrics", "main.py")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	for _, want := range []string{"main:4", "local:9", "cc"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("metrics output missing %q:\n%s", want, stdout)
		}
	}
}

func TestTelemetryFiles(t *testing.T) {
	dir := newProject(t)
	metricsPath := filepath.Join(dir, "metrics.prom")
	tracePath := filepath.Join(dir, "trace.json")

	if _, stderr, err := runCLI(t, "analyze", "main.py", "--metrics-file", metricsPath, "--trace-file", tracePath); err != nil {
		t.Fatalf("analyze: %v\n%s", err, stderr)
	}

	prom, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(prom), "funcgraph_files_total") {
		t.Errorf("metrics file missing counters:\n%s", prom)
	}
	spans, err := os.ReadFile(tracePath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(spans), "analyzer.Run") {
		t.Errorf("trace file missing analyzer.Run span")
	}
}

func TestInitWritesConfig(t *testing.T) {
	dir := newProject(t)

	stdout, _, err := runCLI(t, "init")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(stdout, "Created "+configFileName) {
		t.Errorf("init output = %q", stdout)
	}

	cfg, err := config.Load(filepath.Join(dir, configFileName))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Analysis.Language != "python" {
		t.Errorf("language = %q, want python (detected)", cfg.Analysis.Language)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written config is invalid: %v", err)
	}

	if _, _, err := runCLI(t, "init"); err == nil {
		t.Error("second init should refuse to overwrite")
	}
	if _, _, err := runCLI(t, "init", "--force"); err != nil {
		t.Errorf("init --force: %v", err)
	}
}

func TestConfigCommandShowsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, configFileName), "sink:\n  type: sqlite\n  path: graph.db\noutput:\n  format: dot\n")
	t.Chdir(dir)

	stdout, _, err := runCLI(t, "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	for _, want := range []string{"sqlite", "graph.db", "dot"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("config output missing %q:\n%s", want, stdout)
		}
	}
}

func TestDetectLanguages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.py"), "")
	writeFile(t, filepath.Join(dir, "web", "index.ts"), "")
	writeFile(t, filepath.Join(dir, "node_modules", "lib", "index.js"), "")

	got := detectLanguages(dir)
	if len(got) != 2 || got[0] != "python" || got[1] != "typescript" {
		t.Errorf("detectLanguages = %v, want [python typescript]", got)
	}
}

func TestVersion(t *testing.T) {
	stdout, _, err := runCLI(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout, "funcgraph version ") {
		t.Errorf("version output = %q", stdout)
	}
}
