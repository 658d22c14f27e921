package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/yairfalse/awslimits/internal/aggregate"
	"github.com/yairfalse/awslimits/internal/queue"
)

// Collection status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds the collector self-metrics, named after OTEL semantic conventions.
type Metrics struct {
	collectionDuration metric.Float64Histogram
	samples            metric.Int64Counter
	familyErrors       metric.Int64Counter
	queueDropped       metric.Int64Counter
}

// NewMetrics creates the collector instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	collectionDuration, err := meter.Float64Histogram(
		"awslimits.collection.duration",
		metric.WithDescription("Duration of one family fetch and aggregation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create collection.duration: %w", err)
	}

	samples, err := meter.Int64Counter(
		"awslimits.samples",
		metric.WithDescription("Number of samples produced by the aggregators"),
		metric.WithUnit("{sample}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create samples: %w", err)
	}

	familyErrors, err := meter.Int64Counter(
		"awslimits.family.errors",
		metric.WithDescription("Number of failed family collections"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create family.errors: %w", err)
	}

	queueDropped, err := meter.Int64Counter(
		"awslimits.queue.dropped",
		metric.WithDescription("Number of items dropped because the queue was full or closed"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create queue.dropped: %w", err)
	}

	return &Metrics{
		collectionDuration: collectionDuration,
		samples:            samples,
		familyErrors:       familyErrors,
		queueDropped:       queueDropped,
	}, nil
}

// NopMetrics returns instruments that record nothing.
func NopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(instrumentationName))
	return m
}

// RecordCollection records the duration and outcome of one family collection.
func (m *Metrics) RecordCollection(ctx context.Context, family aggregate.Family, kind string, d time.Duration, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.collectionDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("family", family.String()),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
	if err != nil {
		m.familyErrors.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("family", family.String()),
				attribute.String("kind", kind),
				attribute.String("error.type", ErrorType(err)),
			),
		)
	}
}

// RecordSamples records the number of samples a family produced.
func (m *Metrics) RecordSamples(ctx context.Context, family aggregate.Family, kind string, count int) {
	m.samples.Add(ctx, int64(count),
		metric.WithAttributes(
			attribute.String("family", family.String()),
			attribute.String("kind", kind),
		),
	)
}

// RecordDropped records items rejected by the queue.
func (m *Metrics) RecordDropped(ctx context.Context, reason error) {
	m.queueDropped.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", dropReason(reason))),
	)
}

// ErrorType classifies err for the error.type attribute.
func ErrorType(err error) string {
	var shapeErr *aggregate.ShapeError
	switch {
	case errors.As(err, &shapeErr):
		return "shape"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, aggregate.ErrUnknownFamily):
		return "unknown_family"
	default:
		return "api"
	}
}

func dropReason(err error) string {
	if errors.Is(err, queue.ErrClosed) {
		return "closed"
	}
	return "full"
}
