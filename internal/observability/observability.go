// Package observability installs the process-wide logger: a slog front end
// bridged onto the OpenTelemetry log SDK, exporting to stdout or, when an
// OTLP endpoint is configured in the environment, to a collector.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Instrument configures the global slog logger. format selects the stdout
// rendering ("text" pretty-prints, "json" emits raw OTLP records); level
// filters records before they reach the exporter.
func Instrument(level slog.Level, format string) error {
	exporter, err := newExporter(format)
	if err != nil {
		return fmt.Errorf("creating log exporter: %w", err)
	}

	processor := minsev.NewLogProcessor(
		sdklog.NewBatchProcessor(exporter),
		severityFor(level),
	)
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))

	slog.SetDefault(otelslog.NewLogger(
		"model-router",
		otelslog.WithLoggerProvider(provider),
	))
	return nil
}

func newExporter(format string) (sdklog.Exporter, error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		return otlploghttp.New(context.Background())
	}
	if format == "text" {
		return stdoutlog.New(stdoutlog.WithPrettyPrint())
	}
	return stdoutlog.New()
}

func severityFor(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
