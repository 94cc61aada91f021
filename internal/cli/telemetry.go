package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/aiai-labs/funcgraph/internal/analyzer"
	"github.com/aiai-labs/funcgraph/internal/config"
)

// telemetry owns the trace exporter and the metrics dump of one command.
type telemetry struct {
	cfg      config.TelemetryConfig
	provider *sdktrace.TracerProvider
	traceOut *os.File
}

// startTelemetry installs a global tracer provider exporting to
// cfg.TraceFile when one is set. It must run before analyzers are created.
func startTelemetry(cfg config.TelemetryConfig) (*telemetry, error) {
	t := &telemetry{cfg: cfg}
	if cfg.TraceFile == "" {
		return t, nil
	}

	f, err := os.Create(cfg.TraceFile)
	if err != nil {
		return nil, fmt.Errorf("create trace file: %w", err)
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f), stdouttrace.WithPrettyPrint())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	t.traceOut = f
	t.provider = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(t.provider)
	return t, nil
}

// Shutdown flushes spans and writes the metrics file.
func (t *telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.provider != nil {
		if err := t.provider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
		if err := t.traceOut.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if t.cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(t.cfg.MetricsFile, analyzer.MetricsRegistry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics file: %w", err))
		}
	}
	return errors.Join(errs...)
}
