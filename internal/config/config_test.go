package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	configContent := `analysis:
  language: typescript
  recursive: false
  max_depth: 3

output:
  format: markdown
  path: graph.md

sink:
  type: sqlite
  path: funcgraph.db

log:
  level: debug
  format: json

datafiles:
  extensions: [".json"]
`
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configContent), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "typescript", cfg.Analysis.Language)
	assert.False(t, cfg.Analysis.Recursive)
	assert.Equal(t, 3, cfg.Analysis.MaxDepth)
	assert.Equal(t, "markdown", cfg.Output.Format)
	assert.Equal(t, "graph.md", cfg.Output.Path)
	assert.Equal(t, "sqlite", cfg.Sink.Type)
	assert.Equal(t, "funcgraph.db", cfg.Sink.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{".json"}, cfg.DataFiles.Extensions)
	// Unset keys keep their defaults.
	assert.Contains(t, cfg.DataFiles.ExcludeDirs, "node_modules")
	assert.Equal(t, "neo4j", cfg.Sink.Neo4jUser)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "", cfg.Analysis.Language)
	assert.True(t, cfg.Analysis.Recursive)
	assert.Equal(t, 10, cfg.Analysis.MaxDepth)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "none", cfg.Sink.Type)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Len(t, cfg.DataFiles.SkipFiles, 5)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDiscoversFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile+".yaml"), []byte("output:\n  format: dot\n"), 0644))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dot", cfg.Output.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FUNCGRAPH_SINK_TYPE", "badger")
	t.Setenv("FUNCGRAPH_SINK_PATH", "/tmp/fg")
	t.Setenv("FUNCGRAPH_ANALYSIS_MAX_DEPTH", "2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "badger", cfg.Sink.Type)
	assert.Equal(t, "/tmp/fg", cfg.Sink.Path)
	assert.Equal(t, 2, cfg.Analysis.MaxDepth)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis: [unclosed\n"), 0644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "language", mutate: func(c *Config) { c.Analysis.Language = "ruby" }, wantErr: "analysis language"},
		{name: "negative depth", mutate: func(c *Config) { c.Analysis.MaxDepth = -1 }, wantErr: "max_depth"},
		{name: "format", mutate: func(c *Config) { c.Output.Format = "xml" }, wantErr: "output format"},
		{name: "sink type", mutate: func(c *Config) { c.Sink.Type = "redis" }, wantErr: "sink type"},
		{name: "badger without path", mutate: func(c *Config) { c.Sink.Type = "badger" }, wantErr: "sink path is required"},
		{name: "sqlite with path", mutate: func(c *Config) { c.Sink.Type = "sqlite"; c.Sink.Path = "x.db" }},
		{name: "neo4j without uri", mutate: func(c *Config) { c.Sink.Type = "neo4j" }, wantErr: "neo4j_uri"},
		{name: "log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "log level"},
		{name: "log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Analysis.Language = "python"
	cfg.Analysis.MaxDepth = 4
	cfg.Sink.Type = "badger"
	cfg.Sink.Path = ".funcgraph/db"

	path := filepath.Join(t.TempDir(), DefaultConfigFile+".yaml")
	require.NoError(t, WriteConfig(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# funcgraph configuration\n"))
	assert.Contains(t, string(data), "max_depth: 4")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
