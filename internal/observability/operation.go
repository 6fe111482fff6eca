package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Operation tracks one build or reload with a span, metrics and logging.
type Operation struct {
	ctx     context.Context
	span    trace.Span
	metrics *Metrics
	name    string
	start   time.Time
	logger  *slog.Logger
}

// StartOperation begins tracking an operation. A nil logger falls back to
// slog.Default; a nil m skips metric recording.
func StartOperation(ctx context.Context, logger *slog.Logger, m *Metrics, name string, attrs ...attribute.KeyValue) (*Operation, context.Context) {
	ctx, span := StartSpan(ctx, name, attrs...)
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("operation", name)
	logger.DebugContext(ctx, "operation started")

	return &Operation{
		ctx:     ctx,
		span:    span,
		metrics: m,
		name:    name,
		start:   time.Now(),
		logger:  logger,
	}, ctx
}

// Logger returns the operation-scoped logger.
func (o *Operation) Logger() *slog.Logger {
	return o.logger
}

// SetAttributes annotates the operation span.
func (o *Operation) SetAttributes(attrs ...attribute.KeyValue) {
	o.span.SetAttributes(attrs...)
}

// End finishes the operation, recording duration and status.
func (o *Operation) End(err error) {
	duration := time.Since(o.start)
	status := "ok"
	if err != nil {
		status = "error"
		o.logger.ErrorContext(o.ctx, "operation failed", "error", err, "duration", duration)
	} else {
		o.logger.InfoContext(o.ctx, "operation completed", "duration", duration)
	}

	EndSpan(o.span, err)
	if o.metrics != nil {
		o.metrics.OperationDuration.WithLabelValues(o.name, status).Observe(duration.Seconds())
		o.metrics.OperationTotal.WithLabelValues(o.name, status).Inc()
	}
}
