package embedded

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dgraph-io/badger/v4"

	"github.com/aiai-labs/funcgraph/internal/graph"
)

// exportRecord is the JSON-lines format for export/import.
type exportRecord struct {
	Kind string          `json:"kind"` // "function" or "data_file"
	Data json.RawMessage `json:"data"`
}

// Export writes all functions and data files to w in JSON-lines format.
func (s *FunctionStore) Export(_ context.Context, w io.Writer) error {
	enc := json.NewEncoder(w)
	var encErr error
	emit := func(kind string, v any) bool {
		data, err := json.Marshal(v)
		if err != nil {
			return true // skip bad records
		}
		if err := enc.Encode(exportRecord{Kind: kind, Data: data}); err != nil {
			encErr = fmt.Errorf("encode %s: %w", kind, err)
			return false
		}
		return true
	}
	err := s.db.View(func(txn *badger.Txn) error {
		if err := scanFunctions(txn, func(fn *graph.Function) bool {
			return emit("function", fn)
		}); err != nil {
			return fmt.Errorf("export functions: %w", err)
		}
		if encErr != nil {
			return encErr
		}
		if err := scanDataFiles(txn, func(df *graph.DataFile) bool {
			return emit("data_file", df)
		}); err != nil {
			return fmt.Errorf("export data files: %w", err)
		}
		return encErr
	})
	return err
}

// Import reads JSON-lines from r, clears the store, and inserts all records.
func (s *FunctionStore) Import(ctx context.Context, r io.Reader) error {
	// Clear all existing data.
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}

	scanner := bufio.NewScanner(r)
	// Increase buffer for potentially large lines.
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec exportRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("unmarshal record: %w", err)
		}

		switch rec.Kind {
		case "function":
			var fn graph.Function
			if err := json.Unmarshal(rec.Data, &fn); err != nil {
				return fmt.Errorf("unmarshal function: %w", err)
			}
			if err := s.UpsertFunction(ctx, &fn); err != nil {
				return fmt.Errorf("import function %s: %w", fn.ID(), err)
			}
		case "data_file":
			var df graph.DataFile
			if err := json.Unmarshal(rec.Data, &df); err != nil {
				return fmt.Errorf("unmarshal data file: %w", err)
			}
			if err := s.UpsertDataFile(ctx, &df); err != nil {
				return fmt.Errorf("import data file %s: %w", df.Path, err)
			}
		default:
			return fmt.Errorf("unknown record kind: %q", rec.Kind)
		}
	}

	return scanner.Err()
}
