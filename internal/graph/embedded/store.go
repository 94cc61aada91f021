// Package embedded persists analyzed functions and data files in BadgerDB.
package embedded

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/aiai-labs/funcgraph/internal/graph"
)

// Key prefixes for the BadgerDB key scheme. Function identities contain
// colons, so index keys separate their parts with a NUL byte and carry the
// identity in the value.
const (
	prefixFunction = "fn:"
	prefixDataFile = "df:"
	prefixIdxFile  = "idx:file:"
	prefixIdxName  = "idx:name:"
	sep            = "\x00"
)

// FunctionStore is a graph.DataFileSink backed by BadgerDB. Upserts are keyed
// by function identity and data file path.
type FunctionStore struct {
	db *badger.DB
}

// Stats summarizes the store contents.
type Stats struct {
	Functions int `json:"functions"`
	DataFiles int `json:"data_files"`
	Files     int `json:"files"`
}

// NewStore opens (or creates) a BadgerDB-backed store at dbPath.
func NewStore(dbPath string) (*FunctionStore, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // suppress badger logs
	return open(opts)
}

// NewInMemoryStore opens a store that lives only in memory.
func NewInMemoryStore() (*FunctionStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*FunctionStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &FunctionStore{db: db}, nil
}

func functionKey(id string) []byte { return []byte(prefixFunction + id) }

func dataFileKey(path string) []byte { return []byte(prefixDataFile + path) }

func indexFileKey(filePath, id string) []byte {
	return []byte(prefixIdxFile + filePath + sep + id)
}

func indexNameKey(name, id string) []byte {
	return []byte(prefixIdxName + name + sep + id)
}

func (s *FunctionStore) UpsertFunction(_ context.Context, fn *graph.Function) error {
	id := fn.ID()
	data, err := json.Marshal(fn)
	if err != nil {
		return fmt.Errorf("marshal function: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(functionKey(id), data); err != nil {
			return err
		}
		if err := txn.Set(indexFileKey(fn.FilePath, id), []byte(id)); err != nil {
			return err
		}
		return txn.Set(indexNameKey(fn.Name, id), []byte(id))
	})
}

func (s *FunctionStore) UpsertDataFile(_ context.Context, df *graph.DataFile) error {
	data, err := json.Marshal(df)
	if err != nil {
		return fmt.Errorf("marshal data file: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(dataFileKey(df.Path), data)
	})
}

// GetFunction returns the stored function with the given identity.
func (s *FunctionStore) GetFunction(_ context.Context, id string) (*graph.Function, error) {
	var fn *graph.Function
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		fn, err = getFunctionInTxn(txn, id)
		return err
	})
	return fn, err
}

// GetDataFile returns the stored data file at path.
func (s *FunctionStore) GetDataFile(_ context.Context, path string) (*graph.DataFile, error) {
	var df graph.DataFile
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dataFileKey(path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("data file %s: %w", path, graph.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &df)
		})
	})
	if err != nil {
		return nil, err
	}
	return &df, nil
}

// FunctionsByFile returns the stored functions defined in filePath in
// declaration order.
func (s *FunctionStore) FunctionsByFile(_ context.Context, filePath string) ([]*graph.Function, error) {
	return s.lookupIndex([]byte(prefixIdxFile + filePath + sep))
}

// FunctionsByName returns every stored function with the given name, ordered
// by file and line.
func (s *FunctionStore) FunctionsByName(_ context.Context, name string) ([]*graph.Function, error) {
	return s.lookupIndex([]byte(prefixIdxName + name + sep))
}

func (s *FunctionStore) lookupIndex(prefix []byte) ([]*graph.Function, error) {
	var fns []*graph.Function
	err := s.db.View(func(txn *badger.Txn) error {
		ids, err := scanIndexPrefix(txn, prefix)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fn, err := getFunctionInTxn(txn, id)
			if err != nil {
				if errors.Is(err, graph.ErrNotFound) {
					continue // stale index entry
				}
				return err
			}
			fns = append(fns, fn)
		}
		return nil
	})
	graph.SortFunctions(fns)
	return fns, err
}

// DeleteByFile removes every function defined in filePath.
func (s *FunctionStore) DeleteByFile(ctx context.Context, filePath string) error {
	fns, err := s.FunctionsByFile(ctx, filePath)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, fn := range fns {
			id := fn.ID()
			for _, key := range [][]byte{functionKey(id), indexFileKey(fn.FilePath, id), indexNameKey(fn.Name, id)} {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Stats counts the stored functions, data files and distinct source files.
func (s *FunctionStore) Stats(_ context.Context) (*Stats, error) {
	stats := &Stats{}
	files := make(map[string]struct{})
	err := s.db.View(func(txn *badger.Txn) error {
		if err := scanFunctions(txn, func(fn *graph.Function) bool {
			stats.Functions++
			files[fn.FilePath] = struct{}{}
			return true
		}); err != nil {
			return err
		}
		return scanDataFiles(txn, func(*graph.DataFile) bool {
			stats.DataFiles++
			return true
		})
	})
	stats.Files = len(files)
	return stats, err
}

func (s *FunctionStore) Close() error {
	return s.db.Close()
}

// --- helpers ---

func getFunctionInTxn(txn *badger.Txn, id string) (*graph.Function, error) {
	item, err := txn.Get(functionKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("function %s: %w", id, graph.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get function %s: %w", id, err)
	}
	var fn graph.Function
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &fn)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal function %s: %w", id, err)
	}
	return &fn, nil
}

// scanIndexPrefix returns the identities stored under the given index prefix.
func scanIndexPrefix(txn *badger.Txn, prefix []byte) ([]string, error) {
	var ids []string
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.Valid(); it.Next() {
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		ids = append(ids, string(val))
	}
	sort.Strings(ids)
	return ids, nil
}

// scanFunctions iterates over all stored functions. Return false from fn to
// stop iteration.
func scanFunctions(txn *badger.Txn, fn func(*graph.Function) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	opts.Prefix = []byte(prefixFunction)
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(opts.Prefix); it.Valid(); it.Next() {
		var f graph.Function
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &f)
		}); err != nil {
			continue
		}
		if !fn(&f) {
			break
		}
	}
	return nil
}

func scanDataFiles(txn *badger.Txn, fn func(*graph.DataFile) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	opts.Prefix = []byte(prefixDataFile)
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(opts.Prefix); it.Valid(); it.Next() {
		var df graph.DataFile
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &df)
		}); err != nil {
			continue
		}
		if !fn(&df) {
			break
		}
	}
	return nil
}
