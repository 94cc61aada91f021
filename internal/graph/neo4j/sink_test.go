package neo4j

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiai-labs/funcgraph/internal/graph"
)

type statement struct {
	cypher string
	params map[string]any
}

// recordingSink returns a Sink whose statements are captured instead of sent.
func recordingSink(fail error) (*Sink, *[]statement) {
	var stmts []statement
	s := &Sink{run: func(_ context.Context, cypher string, params map[string]any) error {
		stmts = append(stmts, statement{cypher: cypher, params: params})
		return fail
	}}
	return s, &stmts
}

func sampleFunction() *graph.Function {
	fn := &graph.Function{
		Name:      "load",
		FilePath:  "/src/app.py",
		LineStart: 3,
		LineEnd:   7,
		Signature: "load(path)",
		Docstring: "Load a file.",
		Comments:  []graph.Comment{{Line: 4, Text: "read it"}},
	}
	fn.SetMetadata("lines_of_code", 5)
	return fn
}

func TestFunctionRow(t *testing.T) {
	row, err := functionRow(sampleFunction())
	require.NoError(t, err)

	assert.Equal(t, "/src/app.py:load:3", row["id"])
	assert.Equal(t, 3, row["line_start"])
	assert.Equal(t, "Load a file.", row["docstring"])
	assert.JSONEq(t, `{"lines_of_code":5}`, row["metadata"].(string))

	var ctxFields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(row["context"].(string)), &ctxFields))
	assert.JSONEq(t, `[{"line":4,"text":"read it"}]`, string(ctxFields["comments"]))
	assert.Equal(t, "null", string(ctxFields["variables"]))
}

func TestFunctionRowWithoutMetadata(t *testing.T) {
	fn := sampleFunction()
	fn.Metadata = nil
	row, err := functionRow(fn)
	require.NoError(t, err)
	assert.Equal(t, "{}", row["metadata"])
}

func TestUpsertFunction(t *testing.T) {
	s, stmts := recordingSink(nil)
	require.NoError(t, s.UpsertFunction(context.Background(), sampleFunction()))

	require.Len(t, *stmts, 1)
	st := (*stmts)[0]
	assert.Contains(t, st.cypher, "MERGE (n:Function {id: row.id})")
	batch := st.params["batch"].([]map[string]any)
	require.Len(t, batch, 1)
	assert.Equal(t, "load", batch[0]["name"])
}

func TestUpsertFunctionError(t *testing.T) {
	s, _ := recordingSink(errors.New("connection refused"))
	err := s.UpsertFunction(context.Background(), sampleFunction())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/src/app.py:load:3")
}

func TestUpsertDataFile(t *testing.T) {
	s, stmts := recordingSink(nil)
	df := &graph.DataFile{
		Path: "/src/config.yaml", Type: graph.DataFileYAML, Valid: true,
		References: []graph.DataFileReference{
			{FunctionID: "/src/app.py:load:3", FunctionName: "load", Kind: graph.RefFileReference, Line: 5, Content: "config.yaml"},
		},
	}
	require.NoError(t, s.UpsertDataFile(context.Background(), df))

	require.Len(t, *stmts, 1)
	params := (*stmts)[0].params
	assert.Equal(t, "/src/config.yaml", params["path"])
	assert.Equal(t, "yaml", params["type"])
	assert.Equal(t, true, params["valid"])
	refs := params["refs"].([]map[string]any)
	require.Len(t, refs, 1)
	assert.Equal(t, "file_reference", refs[0]["kind"])
	assert.Equal(t, 5, refs[0]["line"])
}

func TestWriteGraph(t *testing.T) {
	g := graph.NewDependencyGraph()
	main := &graph.Function{Name: "main", FilePath: "/src/app.py", LineStart: 10, LineEnd: 12}
	load := sampleFunction()
	g.AddDependency(main, load)

	s, stmts := recordingSink(nil)
	require.NoError(t, s.WriteGraph(context.Background(), g))

	require.Len(t, *stmts, 2)
	assert.Len(t, (*stmts)[0].params["batch"], 2)
	calls := (*stmts)[1].params["batch"].([]map[string]any)
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"caller": main.ID(), "callee": load.ID()}, calls[0])
}

func TestWriteGraphEmpty(t *testing.T) {
	s, stmts := recordingSink(nil)
	require.NoError(t, s.WriteGraph(context.Background(), graph.NewDependencyGraph()))
	assert.Empty(t, *stmts)
}

func TestCreateIndexes(t *testing.T) {
	s, stmts := recordingSink(nil)
	require.NoError(t, s.CreateIndexes(context.Background()))
	assert.Len(t, *stmts, 3)
}

func TestCloseWithoutDriver(t *testing.T) {
	s, _ := recordingSink(nil)
	assert.NoError(t, s.Close())
}
