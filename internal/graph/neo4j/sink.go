// Package neo4j mirrors analyzed functions, call edges and data file
// references into a Neo4j database.
package neo4j

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/aiai-labs/funcgraph/internal/graph"
)

// Config holds the connection settings.
type Config struct {
	URI      string
	User     string
	Password string
	Database string
}

// runFunc executes one Cypher statement.
type runFunc func(ctx context.Context, cypher string, params map[string]any) error

// Sink is a graph.DataFileSink that MERGEs nodes by identity.
type Sink struct {
	driver neo4j.DriverWithContext
	run    runFunc
}

// New connects to Neo4j and returns a ready-to-use sink.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j at %s: %w", cfg.URI, err)
	}

	var opts []neo4j.ExecuteQueryConfigurationOption
	if cfg.Database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(cfg.Database))
	}
	s := &Sink{driver: driver}
	s.run = func(ctx context.Context, cypher string, params map[string]any) error {
		_, err := neo4j.ExecuteQuery(ctx, driver, cypher, params, neo4j.EagerResultTransformer, opts...)
		return err
	}
	return s, nil
}

// Close releases the underlying Neo4j driver resources.
func (s *Sink) Close() error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close(context.Background())
}

// CreateIndexes ensures the lookup indexes exist.
func (s *Sink) CreateIndexes(ctx context.Context) error {
	indexes := []string{
		"CREATE INDEX function_id IF NOT EXISTS FOR (n:Function) ON (n.id)",
		"CREATE INDEX function_name IF NOT EXISTS FOR (n:Function) ON (n.name)",
		"CREATE INDEX data_file_path IF NOT EXISTS FOR (n:DataFile) ON (n.path)",
	}
	for _, q := range indexes {
		if err := s.run(ctx, q, nil); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

const upsertFunctionCypher = `UNWIND $batch AS row
 MERGE (n:Function {id: row.id})
 SET n.name = row.name, n.file_path = row.file_path,
     n.line_start = row.line_start, n.line_end = row.line_end,
     n.signature = row.signature, n.docstring = row.docstring,
     n.source_code = row.source_code, n.context = row.context,
     n.metadata = row.metadata`

func (s *Sink) UpsertFunction(ctx context.Context, fn *graph.Function) error {
	row, err := functionRow(fn)
	if err != nil {
		return err
	}
	if err := s.run(ctx, upsertFunctionCypher, map[string]any{"batch": []map[string]any{row}}); err != nil {
		return fmt.Errorf("upsert function %s: %w", fn.ID(), err)
	}
	return nil
}

const upsertDataFileCypher = `MERGE (d:DataFile {path: $path})
 SET d.type = $type, d.valid = $valid
 WITH d
 OPTIONAL MATCH (:Function)-[old:REFERENCES]->(d)
 DELETE old
 WITH DISTINCT d
 UNWIND $refs AS row
 MATCH (f:Function {id: row.function_id})
 MERGE (f)-[r:REFERENCES]->(d)
 SET r.kind = row.kind, r.line = row.line, r.content = row.content`

func (s *Sink) UpsertDataFile(ctx context.Context, df *graph.DataFile) error {
	if err := s.run(ctx, upsertDataFileCypher, dataFileParams(df)); err != nil {
		return fmt.Errorf("upsert data file %s: %w", df.Path, err)
	}
	return nil
}

const writeCallsCypher = `UNWIND $batch AS row
 MERGE (caller:Function {id: row.caller})
 MERGE (callee:Function {id: row.callee})
 MERGE (caller)-[:CALLS]->(callee)`

// WriteGraph upserts every function of g and its CALLS edges in two batches.
func (s *Sink) WriteGraph(ctx context.Context, g *graph.DependencyGraph) error {
	fns := g.Functions()
	batch := make([]map[string]any, 0, len(fns))
	for _, fn := range fns {
		row, err := functionRow(fn)
		if err != nil {
			return err
		}
		batch = append(batch, row)
	}
	if len(batch) > 0 {
		if err := s.run(ctx, upsertFunctionCypher, map[string]any{"batch": batch}); err != nil {
			return fmt.Errorf("write functions: %w", err)
		}
	}

	calls := callRows(g)
	if len(calls) == 0 {
		return nil
	}
	if err := s.run(ctx, writeCallsCypher, map[string]any{"batch": calls}); err != nil {
		return fmt.Errorf("write calls: %w", err)
	}
	return nil
}

// functionRow flattens fn into Neo4j property values. Structured context is
// stored as a JSON string since properties cannot hold maps.
func functionRow(fn *graph.Function) (map[string]any, error) {
	fnContext, err := json.Marshal(map[string]any{
		"comments":        fn.Comments,
		"string_literals": fn.StringLiterals,
		"variables":       fn.Variables,
		"constants":       fn.Constants,
		"file_references": fn.FileReferences,
	})
	if err != nil {
		return nil, fmt.Errorf("encode context of %s: %w", fn.ID(), err)
	}
	metadata := "{}"
	if len(fn.Metadata) > 0 {
		data, err := json.Marshal(fn.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata of %s: %w", fn.ID(), err)
		}
		metadata = string(data)
	}
	return map[string]any{
		"id":          fn.ID(),
		"name":        fn.Name,
		"file_path":   fn.FilePath,
		"line_start":  fn.LineStart,
		"line_end":    fn.LineEnd,
		"signature":   fn.Signature,
		"docstring":   fn.Docstring,
		"source_code": fn.SourceCode,
		"context":     string(fnContext),
		"metadata":    metadata,
	}, nil
}

func dataFileParams(df *graph.DataFile) map[string]any {
	refs := make([]map[string]any, 0, len(df.References))
	for _, ref := range df.References {
		refs = append(refs, map[string]any{
			"function_id": ref.FunctionID,
			"kind":        string(ref.Kind),
			"line":        ref.Line,
			"content":     ref.Content,
		})
	}
	return map[string]any{
		"path":  df.Path,
		"type":  string(df.Type),
		"valid": df.Valid,
		"refs":  refs,
	}
}

func callRows(g *graph.DependencyGraph) []map[string]any {
	edges := g.Edges()
	rows := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, map[string]any{"caller": e.Caller, "callee": e.Callee})
	}
	return rows
}
