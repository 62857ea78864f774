package metrics

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TracerName is the instrumentation scope of the event pipeline spans
const TracerName = "github.com/amaumene/deleterr"

// LogExporter writes finished spans to the logger at debug level
type LogExporter struct {
	logger *logrus.Logger
}

// NewLogExporter creates a span exporter backed by logrus
func NewLogExporter(logger *logrus.Logger) *LogExporter {
	return &LogExporter{logger: logger}
}

// ExportSpans implements sdktrace.SpanExporter
func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		fields := logrus.Fields{
			"span":        span.Name(),
			"trace_id":    span.SpanContext().TraceID().String(),
			"duration_ms": span.EndTime().Sub(span.StartTime()).Milliseconds(),
		}
		for _, attr := range span.Attributes() {
			fields[string(attr.Key)] = attr.Value.Emit()
		}

		entry := e.logger.WithFields(fields)
		if span.Status().Code == codes.Error {
			entry.WithField("error", span.Status().Description).Debug("Span finished with error")
			continue
		}
		entry.Debug("Span finished")
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter
func (e *LogExporter) Shutdown(ctx context.Context) error {
	return nil
}

// SetupTracing installs a global tracer provider exporting to the logger.
// The returned function flushes and stops the provider.
func SetupTracing(logger *logrus.Logger) func(context.Context) error {
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(NewLogExporter(logger)),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown
}
