package datafiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiai-labs/funcgraph/internal/graph"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "config", "settings.yaml"), "a: 1\n")
	writeFile(t, filepath.Join(root, "data.json"), "{}")
	writeFile(t, filepath.Join(root, "prompts", "agent.yml"), "x: y\n")
	writeFile(t, filepath.Join(root, "package.json"), "{}")
	writeFile(t, filepath.Join(root, ".eslintrc.json"), "{}")
	writeFile(t, filepath.Join(root, "node_modules", "lib", "index.json"), "{}")
	writeFile(t, filepath.Join(root, "__pycache__", "cache.json"), "{}")
	writeFile(t, filepath.Join(root, "generated", "out.json"), "{}")
	writeFile(t, filepath.Join(root, "secrets.json"), "{}")
	writeFile(t, filepath.Join(root, "main.py"), "")
	writeFile(t, filepath.Join(root, ".gitignore"), "generated\nsecrets.json\n")

	found, err := Find(root, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "config", "settings.yaml"),
		filepath.Join(root, "data.json"),
		filepath.Join(root, "prompts", "agent.yml"),
	}, found)
}

func TestFindCustomExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.json"), "{}")
	writeFile(t, filepath.Join(root, "b.yaml"), "")

	found, err := Find(root, Options{Extensions: []string{".YAML"}})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "b.yaml")}, found)
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	good := filepath.Join(root, "good.json")
	bad := filepath.Join(root, "bad.json")
	conf := filepath.Join(root, "conf.yml")
	writeFile(t, good, `{"model": "small"}`)
	writeFile(t, bad, `{"model": `)
	writeFile(t, conf, "model: small\nlimits:\n  tokens: 10\n")

	df, err := Load(good)
	require.NoError(t, err)
	assert.Equal(t, graph.DataFileJSON, df.Type)
	assert.True(t, df.Valid)
	assert.Equal(t, `{"model": "small"}`, df.Content)

	df, err = Load(bad)
	require.NoError(t, err)
	assert.False(t, df.Valid)

	df, err = Load(conf)
	require.NoError(t, err)
	assert.Equal(t, graph.DataFileYAML, df.Type)
	assert.True(t, df.Valid)

	df, err = Load(filepath.Join(root, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, df.Content)
	assert.False(t, df.Valid)

	_, err = Load(filepath.Join(root, "notes.txt"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestFindReferences(t *testing.T) {
	df := &graph.DataFile{Path: "/proj/config/settings.yaml", Type: graph.DataFileYAML}

	byRef := &graph.Function{
		Name: "load", FilePath: "/proj/app.py", LineStart: 1, LineEnd: 3,
		FileReferences: []graph.FileReference{{Line: 2, Path: "config/settings.yaml"}},
		SourceCode:     "def load():\n    return open('config/settings.yaml')\n",
	}
	bySource := &graph.Function{
		Name: "config_path", FilePath: "/proj/app.py", LineStart: 10, LineEnd: 12,
		SourceCode: "def config_path():\n    name = 'x'\n    return BASE / 'settings'\n",
	}
	byLiteral := &graph.Function{
		Name: "describe", FilePath: "/proj/app.py", LineStart: 20, LineEnd: 21,
		StringLiterals: []graph.StringLiteral{{Line: 21, Text: "see settings.yaml"}},
	}
	unrelated := &graph.Function{
		Name: "noop", FilePath: "/proj/app.py", LineStart: 30, LineEnd: 31,
		SourceCode: "def noop():\n    pass\n",
	}

	refs := FindReferences(df, []*graph.Function{byRef, bySource, byLiteral, unrelated})
	require.Len(t, refs, 3)

	assert.Equal(t, graph.RefFileReference, refs[0].Kind)
	assert.Equal(t, 2, refs[0].Line)
	assert.Equal(t, byRef.ID(), refs[0].FunctionID)

	assert.Equal(t, graph.RefSourceCode, refs[1].Kind)
	assert.Equal(t, 12, refs[1].Line)
	assert.Equal(t, "return BASE / 'settings'", refs[1].Content)

	assert.Equal(t, graph.RefStringLiteral, refs[2].Kind)
	assert.Equal(t, 21, refs[2].Line)
	assert.Equal(t, "describe", refs[2].FunctionName)
}
