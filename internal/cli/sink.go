package cli

import (
	"context"
	"fmt"

	"github.com/aiai-labs/funcgraph/internal/analyzer"
	"github.com/aiai-labs/funcgraph/internal/config"
	"github.com/aiai-labs/funcgraph/internal/graph"
	"github.com/aiai-labs/funcgraph/internal/graph/embedded"
	neo4jsink "github.com/aiai-labs/funcgraph/internal/graph/neo4j"
	"github.com/aiai-labs/funcgraph/internal/graph/sqlite"
)

// sinkHandle is the persistence target selected by the sink configuration.
// A nil sink means analysis results are not persisted.
type sinkHandle struct {
	sink graph.Sink
	neo  *neo4jsink.Sink
	desc string
}

// openSink opens the sink named by cfg.Type.
func openSink(ctx context.Context, cfg config.SinkConfig) (*sinkHandle, error) {
	switch cfg.Type {
	case "", "none":
		return &sinkHandle{desc: "none"}, nil
	case "badger":
		if cfg.Path == "" {
			return nil, fmt.Errorf("no database path; set sink.path or use --sink-path")
		}
		store, err := embedded.NewStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open badger sink: %w", err)
		}
		return &sinkHandle{sink: store, desc: "badger " + cfg.Path}, nil
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("no database path; set sink.path or use --sink-path")
		}
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite sink: %w", err)
		}
		return &sinkHandle{sink: store, desc: "sqlite " + cfg.Path}, nil
	case "neo4j":
		s, err := neo4jsink.New(ctx, neo4jsink.Config{
			URI:      cfg.Neo4jURI,
			User:     cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		})
		if err != nil {
			return nil, err
		}
		if err := s.CreateIndexes(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return &sinkHandle{sink: s, neo: s, desc: "neo4j " + cfg.Neo4jURI}, nil
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
}

// options returns the analyzer options that route functions to the sink.
func (h *sinkHandle) options() []analyzer.Option {
	if h.sink == nil {
		return nil
	}
	return []analyzer.Option{analyzer.WithSink(h.sink)}
}

// finish writes what the sink cannot receive per function, i.e. the call
// edges of a Neo4j graph.
func (h *sinkHandle) finish(ctx context.Context, g *graph.DependencyGraph) error {
	if h.neo == nil {
		return nil
	}
	if err := h.neo.WriteGraph(ctx, g); err != nil {
		return fmt.Errorf("write graph to neo4j: %w", err)
	}
	return nil
}

func (h *sinkHandle) Close() error {
	if h.sink == nil {
		return nil
	}
	return h.sink.Close()
}
