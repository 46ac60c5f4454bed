package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Domains label which part of the service an operation belongs to.
const (
	DomainKeys   = "keys"
	DomainFields = "fields"
	DomainAudit  = "audit"
)

// Operation outcomes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// BusinessMetrics records what the use cases do: operation outcomes, their
// latency, and volumes such as fields re-encrypted or entries verified.
type BusinessMetrics interface {
	RecordOperation(ctx context.Context, domain, operation, status string)
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)
	RecordItems(ctx context.Context, domain, item string, n int64)
}

// Observe records the outcome and latency of an operation that began at start.
func Observe(ctx context.Context, m BusinessMetrics, domain, operation string, start time.Time, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.RecordOperation(ctx, domain, operation, status)
	m.RecordDuration(ctx, domain, operation, time.Since(start), status)
}

type otelBusinessMetrics struct {
	operations metric.Int64Counter
	durations  metric.Float64Histogram
	items      metric.Int64Counter
}

// NewBusinessMetrics registers the instruments on meterProvider. Instrument
// names are prefixed with namespace, e.g. records_operations_total.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)
	name := func(suffix string) string { return fmt.Sprintf("%s_%s", namespace, suffix) }

	operations, err := meter.Int64Counter(name("operations_total"),
		metric.WithDescription("Use case operations by domain, operation and outcome"),
		metric.WithUnit("{operation}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durations, err := meter.Float64Histogram(name("operation_duration_seconds"),
		metric.WithDescription("Use case operation latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.025, 0.1, 0.5, 1, 5, 30, 120, 600))
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	items, err := meter.Int64Counter(name("items_processed_total"),
		metric.WithDescription("Items processed by long running operations"),
		metric.WithUnit("{item}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create item counter: %w", err)
	}

	return &otelBusinessMetrics{operations: operations, durations: durations, items: items}, nil
}

func operationAttrs(domain, operation, status string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
}

func (b *otelBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operations.Add(ctx, 1, operationAttrs(domain, operation, status))
}

func (b *otelBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durations.Record(ctx, duration.Seconds(), operationAttrs(domain, operation, status))
}

// RecordItems ignores non-positive counts.
func (b *otelBusinessMetrics) RecordItems(ctx context.Context, domain, item string, n int64) {
	if n <= 0 {
		return
	}
	b.items.Add(ctx, n, metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.String("item", item),
	))
}

// NoOpBusinessMetrics discards everything; the container uses it when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics returns a recorder that discards everything.
func NewNoOpBusinessMetrics() BusinessMetrics { return NoOpBusinessMetrics{} }

func (NoOpBusinessMetrics) RecordOperation(context.Context, string, string, string) {}

func (NoOpBusinessMetrics) RecordDuration(context.Context, string, string, time.Duration, string) {}

func (NoOpBusinessMetrics) RecordItems(context.Context, string, string, int64) {}
