// Package sqlite persists analyzed functions and data files in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aiai-labs/funcgraph/internal/graph"
)

// Store is a graph.DataFileSink backed by a SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Open opens the database at dbPath and migrates it.
func Open(dbPath string) (*Store, error) {
	s, err := NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS functions (
  id              TEXT PRIMARY KEY,
  name            TEXT NOT NULL,
  file_path       TEXT NOT NULL,
  line_start      INTEGER NOT NULL,
  line_end        INTEGER NOT NULL,
  signature       TEXT,
  source_code     TEXT,
  docstring       TEXT,
  comments        TEXT,
  string_literals TEXT,
  variables       TEXT,
  constants       TEXT,
  file_references TEXT,
  metadata        TEXT,
  updated_at      TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_functions_file ON functions(file_path);
CREATE INDEX IF NOT EXISTS idx_functions_name ON functions(name);

CREATE TABLE IF NOT EXISTS data_files (
  path            TEXT PRIMARY KEY,
  file_type       TEXT NOT NULL,
  content         TEXT,
  valid           BOOLEAN NOT NULL DEFAULT FALSE,
  updated_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS data_file_references (
  id              INTEGER PRIMARY KEY,
  data_file_path  TEXT NOT NULL REFERENCES data_files(path) ON DELETE CASCADE,
  function_id     TEXT NOT NULL,
  function_name   TEXT NOT NULL,
  file_path       TEXT NOT NULL,
  kind            TEXT NOT NULL,
  line            INTEGER,
  content         TEXT
);

CREATE INDEX IF NOT EXISTS idx_refs_data_file ON data_file_references(data_file_path);
CREATE INDEX IF NOT EXISTS idx_refs_function ON data_file_references(function_id);
`

const upsertFunctionSQL = `
INSERT INTO functions (id, name, file_path, line_start, line_end, signature, source_code, docstring,
  comments, string_literals, variables, constants, file_references, metadata, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  name = excluded.name,
  file_path = excluded.file_path,
  line_start = excluded.line_start,
  line_end = excluded.line_end,
  signature = excluded.signature,
  source_code = excluded.source_code,
  docstring = excluded.docstring,
  comments = excluded.comments,
  string_literals = excluded.string_literals,
  variables = excluded.variables,
  constants = excluded.constants,
  file_references = excluded.file_references,
  metadata = excluded.metadata,
  updated_at = excluded.updated_at`

func (s *Store) UpsertFunction(ctx context.Context, fn *graph.Function) error {
	cols, err := encodeJSONColumns(fn.Comments, fn.StringLiterals, fn.Variables, fn.Constants, fn.FileReferences, fn.Metadata)
	if err != nil {
		return fmt.Errorf("encode function %s: %w", fn.ID(), err)
	}
	_, err = s.db.ExecContext(ctx, upsertFunctionSQL,
		fn.ID(), fn.Name, fn.FilePath, fn.LineStart, fn.LineEnd, fn.Signature, fn.SourceCode, fn.Docstring,
		cols[0], cols[1], cols[2], cols[3], cols[4], cols[5], time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert function %s: %w", fn.ID(), err)
	}
	return nil
}

// UpsertDataFile stores df and replaces its references.
func (s *Store) UpsertDataFile(ctx context.Context, df *graph.DataFile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
INSERT INTO data_files (path, file_type, content, valid, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
  file_type = excluded.file_type,
  content = excluded.content,
  valid = excluded.valid,
  updated_at = excluded.updated_at`,
		df.Path, string(df.Type), df.Content, df.Valid, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert data file %s: %w", df.Path, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM data_file_references WHERE data_file_path = ?`, df.Path); err != nil {
		return fmt.Errorf("clear references of %s: %w", df.Path, err)
	}
	for _, ref := range df.References {
		_, err := tx.ExecContext(ctx, `
INSERT INTO data_file_references (data_file_path, function_id, function_name, file_path, kind, line, content)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			df.Path, ref.FunctionID, ref.FunctionName, ref.FilePath, string(ref.Kind), ref.Line, ref.Content)
		if err != nil {
			return fmt.Errorf("insert reference of %s: %w", df.Path, err)
		}
	}
	return tx.Commit()
}

const selectFunctionSQL = `
SELECT name, file_path, line_start, line_end, signature, source_code, docstring,
  comments, string_literals, variables, constants, file_references, metadata
FROM functions`

// GetFunction returns the stored function with the given identity.
func (s *Store) GetFunction(ctx context.Context, id string) (*graph.Function, error) {
	row := s.db.QueryRowContext(ctx, selectFunctionSQL+` WHERE id = ?`, id)
	fn, err := scanFunction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("function %s: %w", id, graph.ErrNotFound)
	}
	return fn, err
}

// FunctionsByFile returns the stored functions defined in filePath ordered by
// first line.
func (s *Store) FunctionsByFile(ctx context.Context, filePath string) ([]*graph.Function, error) {
	rows, err := s.db.QueryContext(ctx, selectFunctionSQL+` WHERE file_path = ? ORDER BY line_start, name`, filePath)
	if err != nil {
		return nil, fmt.Errorf("query functions: %w", err)
	}
	defer rows.Close()

	var fns []*graph.Function
	for rows.Next() {
		fn, err := scanFunction(rows)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return fns, rows.Err()
}

// GetDataFile returns the stored data file at path with its references.
func (s *Store) GetDataFile(ctx context.Context, path string) (*graph.DataFile, error) {
	df := &graph.DataFile{Path: path}
	var typ string
	var content sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT file_type, content, valid FROM data_files WHERE path = ?`, path).
		Scan(&typ, &content, &df.Valid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("data file %s: %w", path, graph.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query data file %s: %w", path, err)
	}
	df.Type, df.Content = graph.DataFileType(typ), content.String

	df.References, err = s.references(ctx, `data_file_path = ?`, path)
	if err != nil {
		return nil, err
	}
	return df, nil
}

// ReferencesFrom returns every data file reference made by the function.
func (s *Store) ReferencesFrom(ctx context.Context, functionID string) ([]graph.DataFileReference, error) {
	return s.references(ctx, `function_id = ?`, functionID)
}

func (s *Store) references(ctx context.Context, where string, arg any) ([]graph.DataFileReference, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT function_id, function_name, file_path, kind, line, content
FROM data_file_references WHERE `+where+` ORDER BY id`, arg)
	if err != nil {
		return nil, fmt.Errorf("query references: %w", err)
	}
	defer rows.Close()

	var refs []graph.DataFileReference
	for rows.Next() {
		var ref graph.DataFileReference
		var kind string
		var content sql.NullString
		if err := rows.Scan(&ref.FunctionID, &ref.FunctionName, &ref.FilePath, &kind, &ref.Line, &content); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		ref.Kind, ref.Content = graph.ReferenceKind(kind), content.String
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFunction(row scanner) (*graph.Function, error) {
	var fn graph.Function
	var signature, source, doc sql.NullString
	var cols [6]sql.NullString
	err := row.Scan(&fn.Name, &fn.FilePath, &fn.LineStart, &fn.LineEnd, &signature, &source, &doc,
		&cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5])
	if err != nil {
		return nil, err
	}
	fn.Signature, fn.SourceCode, fn.Docstring = signature.String, source.String, doc.String

	targets := []any{&fn.Comments, &fn.StringLiterals, &fn.Variables, &fn.Constants, &fn.FileReferences, &fn.Metadata}
	for i, col := range cols {
		if !col.Valid || col.String == "" {
			continue
		}
		if err := json.Unmarshal([]byte(col.String), targets[i]); err != nil {
			return nil, fmt.Errorf("decode function %s: %w", fn.ID(), err)
		}
	}
	return &fn, nil
}

// encodeJSONColumns serializes each value to a JSON text column. Empty
// slices and maps are stored as NULL.
func encodeJSONColumns(values ...any) ([]sql.NullString, error) {
	out := make([]sql.NullString, len(values))
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if s := string(data); s != "null" && s != "[]" && s != "{}" {
			out[i] = sql.NullString{String: s, Valid: true}
		}
	}
	return out, nil
}
