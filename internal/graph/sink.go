package graph

import (
	"context"
	"errors"
)

// MultiSink fans every upsert out to several sinks. All sinks are tried
// and their errors joined.
type MultiSink []Sink

func (m MultiSink) UpsertFunction(ctx context.Context, fn *Function) error {
	var errs []error
	for _, s := range m {
		if err := s.UpsertFunction(ctx, fn); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UpsertDataFile forwards to every sink that persists data files.
func (m MultiSink) UpsertDataFile(ctx context.Context, df *DataFile) error {
	var errs []error
	for _, s := range m {
		if ds, ok := s.(DataFileSink); ok {
			if err := ds.UpsertDataFile(ctx, df); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MemorySink keeps upserted functions in memory. It is mostly useful in tests
// and for callers that want the persisted view without a database.
type MemorySink struct {
	Functions map[string]*Function
	DataFiles map[string]*DataFile
	Upserts   int
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		Functions: make(map[string]*Function),
		DataFiles: make(map[string]*DataFile),
	}
}

func (s *MemorySink) UpsertFunction(_ context.Context, fn *Function) error {
	s.Functions[fn.ID()] = fn
	s.Upserts++
	return nil
}

func (s *MemorySink) UpsertDataFile(_ context.Context, df *DataFile) error {
	s.DataFiles[df.Path] = df
	return nil
}

func (s *MemorySink) Close() error { return nil }
