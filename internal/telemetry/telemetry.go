// Package telemetry provides OpenTelemetry instrumentation for awslimits.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/awslimits/internal/config"
)

const instrumentationName = "awslimits"

// Provider owns the tracer and meter providers of one collector process and
// the collector instruments built on top of them.
type Provider struct {
	tp      *sdktrace.TracerProvider
	mp      *sdkmetric.MeterProvider
	metrics *Metrics
}

// NewProvider builds the providers. OTLP export is only wired when an
// endpoint is set; extra readers (the Prometheus exporter) are always
// attached to the meter provider.
func NewProvider(ctx context.Context, cfg config.OTELConfig, readers ...sdkmetric.Reader) (*Provider, error) {
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.Endpoint != "" && cfg.Traces.Enabled {
		exp, err := otlptracegrpc.New(ctx, traceExporterOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		traceOpts = append(traceOpts,
			sdktrace.WithBatcher(exp),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.Traces.SampleRate)),
		)
	}

	meterOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if cfg.Endpoint != "" && cfg.Metrics.Enabled {
		exp, err := otlpmetricgrpc.New(ctx, metricExporterOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("create metric exporter: %w", err)
		}
		meterOpts = append(meterOpts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}
	for _, r := range readers {
		meterOpts = append(meterOpts, sdkmetric.WithReader(r))
	}

	p := &Provider{
		tp: sdktrace.NewTracerProvider(traceOpts...),
		mp: sdkmetric.NewMeterProvider(meterOpts...),
	}
	otel.SetTracerProvider(p.tp)
	otel.SetMeterProvider(p.mp)

	p.metrics, err = NewMetrics(p.Meter())
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	return p, nil
}

func traceExporterOptions(cfg config.OTELConfig) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return opts
}

func metricExporterOptions(cfg config.OTELConfig) []otlpmetricgrpc.Option {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return opts
}

// Tracer returns the collector tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tp.Tracer(instrumentationName)
}

// Meter returns the collector meter.
func (p *Provider) Meter() metric.Meter {
	return p.mp.Meter(instrumentationName)
}

// Metrics returns the collector instruments.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// Shutdown flushes pending spans and metrics.
func (p *Provider) Shutdown(ctx context.Context) error {
	return errors.Join(p.tp.Shutdown(ctx), p.mp.Shutdown(ctx))
}
