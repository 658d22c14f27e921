package telemetry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/yairfalse/awslimits/internal/aggregate"
	"github.com/yairfalse/awslimits/internal/config"
	"github.com/yairfalse/awslimits/internal/queue"
)

func disabledConfig() config.OTELConfig {
	return config.OTELConfig{
		ServiceName: "test-awslimits",
		Traces:      config.TracesConfig{Enabled: false},
		Metrics:     config.MetricsConfig{Enabled: false},
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), disabledConfig())
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.NotNil(t, p.Tracer())
	assert.NotNil(t, p.Meter())
	assert.NotNil(t, p.Metrics())

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_WithEndpoint(t *testing.T) {
	cfg := config.OTELConfig{
		Endpoint:    "localhost:4317",
		Insecure:    true,
		ServiceName: "test-awslimits",
		Traces:      config.TracesConfig{Enabled: true, SampleRate: 1.0},
		Metrics:     config.MetricsConfig{Enabled: true},
	}

	// Exporters connect lazily, so setup succeeds without a collector.
	p, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, p)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = p.Shutdown(ctx)
}

func TestNewProvider_ExtraReader(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	p, err := NewProvider(context.Background(), disabledConfig(), reader)
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	p.Metrics().RecordSamples(context.Background(), aggregate.FamilyEC2, "usage", 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	assert.NotNil(t, findMetric(rm, "awslimits.samples"))
}

func TestProvider_TracerRecordsSpans(t *testing.T) {
	p, err := NewProvider(context.Background(), disabledConfig())
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	_, span := p.Tracer().Start(context.Background(), "collect usage")
	defer span.End()

	assert.True(t, span.SpanContext().IsValid())
}

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestMetrics_RecordCollection_Success(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCollection(ctx, aggregate.FamilyRDS, "usage", 250*time.Millisecond, nil)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	duration := findMetric(rm, "awslimits.collection.duration")
	require.NotNil(t, duration)
	hist := duration.Data.(metricdata.Histogram[float64])
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)

	status, ok := hist.DataPoints[0].Attributes.Value(attribute.Key("status"))
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, status.AsString())

	assert.Nil(t, findMetric(rm, "awslimits.family.errors"))
}

func TestMetrics_RecordCollection_Error(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	err := fmt.Errorf("describe db instances: %w", errors.New("throttled"))
	m.RecordCollection(ctx, aggregate.FamilyRDS, "usage", time.Second, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	errs := findMetric(rm, "awslimits.family.errors")
	require.NotNil(t, errs)
	sum := errs.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)

	errType, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("error.type"))
	require.True(t, ok)
	assert.Equal(t, "api", errType.AsString())
}

func TestMetrics_RecordDropped(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordDropped(ctx, queue.ErrFull)
	m.RecordDropped(ctx, queue.ErrFull)
	m.RecordDropped(ctx, queue.ErrClosed)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	dropped := findMetric(rm, "awslimits.queue.dropped")
	require.NotNil(t, dropped)
	sum := dropped.Data.(metricdata.Sum[int64])

	byReason := map[string]int64{}
	for _, dp := range sum.DataPoints {
		reason, _ := dp.Attributes.Value(attribute.Key("reason"))
		byReason[reason.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"full": 2, "closed": 1}, byReason)
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "shape", ErrorType(&aggregate.ShapeError{Family: aggregate.FamilyRDS, Field: "AllocatedStorage"}))
	assert.Equal(t, "canceled", ErrorType(fmt.Errorf("list tables: %w", context.Canceled)))
	assert.Equal(t, "unknown_family", ErrorType(aggregate.ErrUnknownFamily))
	assert.Equal(t, "api", ErrorType(errors.New("boom")))
}

func TestNopMetrics(t *testing.T) {
	m := NopMetrics()
	require.NotNil(t, m)

	// Should not panic
	m.RecordCollection(context.Background(), aggregate.FamilyEC2, "limit", time.Second, errors.New("x"))
	m.RecordSamples(context.Background(), aggregate.FamilyEC2, "limit", 2)
	m.RecordDropped(context.Background(), queue.ErrFull)
}

func TestSetupLogger(t *testing.T) {
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	require.NoError(t, SetupLogger(&buf, LogOptions{Level: "warn"}))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	log.Info().Msg("hidden")
	log.Warn().Str("family", "ec2").Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"family":"ec2"`)

	require.NoError(t, SetupLogger(&buf, LogOptions{Level: "warn", Debug: true}))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	assert.Error(t, SetupLogger(&buf, LogOptions{Level: "loud"}))
}

func TestOTELHook_AddsTraceIDs(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Hook(OTELHook{})
	logger.Info().Ctx(ctx).Msg("with span")

	assert.Contains(t, buf.String(), span.SpanContext().TraceID().String())
	assert.Contains(t, buf.String(), `"span_id"`)
}
