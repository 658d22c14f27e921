package emitter

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/yairfalse/awslimits/pkg/sample"
)

// PrometheusEmitter exposes the latest value of every item as OTEL gauges,
// scraped through the Prometheus exporter.
type PrometheusEmitter struct {
	meter metric.Meter

	// Metrics
	usage   metric.Int64ObservableGauge
	limit   metric.Int64ObservableGauge
	changes metric.Int64Counter

	// State for observable gauges
	mu    sync.RWMutex
	items map[string]sample.Item

	changeTracker *ChangeTracker
}

// NewPrometheusEmitter creates a Prometheus emitter on meter.
func NewPrometheusEmitter(meter metric.Meter) (*PrometheusEmitter, error) {
	e := &PrometheusEmitter{
		meter:         meter,
		items:         make(map[string]sample.Item),
		changeTracker: NewChangeTracker(),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return e, nil
}

func (e *PrometheusEmitter) initMetrics() error {
	var err error

	e.usage, err = e.meter.Int64ObservableGauge(
		"aws_service_usage",
		metric.WithDescription("Current usage of an AWS resource"),
		metric.WithInt64Callback(e.observer(sample.KindUsage)),
	)
	if err != nil {
		return fmt.Errorf("create usage gauge: %w", err)
	}

	e.limit, err = e.meter.Int64ObservableGauge(
		"aws_service_limit",
		metric.WithDescription("Account limit of an AWS resource"),
		metric.WithInt64Callback(e.observer(sample.KindLimit)),
	)
	if err != nil {
		return fmt.Errorf("create limit gauge: %w", err)
	}

	e.changes, err = e.meter.Int64Counter(
		"aws_service_changes_total",
		metric.WithDescription("Total value changes between collections"),
	)
	if err != nil {
		return fmt.Errorf("create changes counter: %w", err)
	}

	return nil
}

// Emit stores item as the latest value of its key.
func (e *PrometheusEmitter) Emit(ctx context.Context, item sample.Item) error {
	if change, ok := e.changeTracker.Observe(item); ok {
		e.changes.Add(ctx, 1, metric.WithAttributes(
			attribute.String("metric", metricName(item)),
			attribute.String("kind", string(item.Kind)),
		))
		log.Info().
			Str("key", change.Key).
			Str("host", change.Host).
			Int64("from", change.Previous).
			Int64("to", change.Current).
			Msg("value changed")
	}

	e.mu.Lock()
	e.items[itemID(item)] = item
	e.mu.Unlock()

	return nil
}

func (e *PrometheusEmitter) observer(kind sample.Kind) metric.Int64Callback {
	return func(_ context.Context, o metric.Int64Observer) error {
		for _, item := range e.snapshot(kind) {
			value, attrs := gaugePoint(item)
			o.Observe(value, metric.WithAttributes(attrs...))
		}
		return nil
	}
}

func (e *PrometheusEmitter) snapshot(kind sample.Kind) []sample.Item {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]sample.Item, 0, len(e.items))
	for _, item := range e.items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return itemID(out[i]) < itemID(out[j]) })
	return out
}

// gaugePoint renders a text item as 1 with its string in the value attribute.
func gaugePoint(item sample.Item) (int64, []attribute.KeyValue) {
	attrs := []attribute.KeyValue{
		attribute.String("metric", metricName(item)),
		attribute.String("host", item.Host),
	}
	if item.Text != "" {
		return 1, append(attrs, attribute.String("value", item.Text))
	}
	return item.Value, attrs
}

// metricName strips the kind prefix from the item key.
func metricName(item sample.Item) string {
	return strings.TrimPrefix(item.Key, item.Kind.Prefix())
}

// Close is a no-op for Prometheus emitter.
func (e *PrometheusEmitter) Close() error {
	return nil
}
