// Package collector drives one collection run: a usage pass over the
// configured families, then a limits pass, with every resulting sample
// offered to the emission queue.
package collector

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/yairfalse/awslimits/internal/aggregate"
	"github.com/yairfalse/awslimits/internal/plugin"
	"github.com/yairfalse/awslimits/internal/telemetry"
	"github.com/yairfalse/awslimits/pkg/sample"
)

// Putter accepts items without blocking.
type Putter interface {
	Put(item sample.Item) error
}

// Options configures a Collector.
type Options struct {
	Hostname  string
	Resources []aggregate.Family // usage pass, in order
	Limits    []aggregate.Family // limits pass, in order

	Tracer  trace.Tracer       // optional
	Metrics *telemetry.Metrics // optional
	Clock   func() time.Time   // optional, defaults to time.Now
}

// Collector runs collection passes against a source.
type Collector struct {
	source    plugin.Source
	queue     Putter
	hostname  string
	resources []aggregate.Family
	limits    []aggregate.Family
	tracer    trace.Tracer
	metrics   *telemetry.Metrics
	clock     func() time.Time
}

// New creates a collector that feeds q from source.
func New(source plugin.Source, q Putter, opts Options) *Collector {
	c := &Collector{
		source:    source,
		queue:     q,
		hostname:  opts.Hostname,
		resources: opts.Resources,
		limits:    opts.Limits,
		tracer:    opts.Tracer,
		metrics:   opts.Metrics,
		clock:     opts.Clock,
	}
	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer("")
	}
	if c.metrics == nil {
		c.metrics = telemetry.NopMetrics()
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	return c
}

// Run performs the usage pass then the limits pass. A failing family never
// affects the others; Run only returns an error when ctx is done.
func (c *Collector) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	report.Usage = c.runPass(ctx, sample.KindUsage, c.resources, c.collectUsage)
	c.enqueue(ctx, report, report.Usage)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	report.Limits = c.runPass(ctx, sample.KindLimit, c.limits, c.collectLimits)
	c.enqueue(ctx, report, report.Limits)

	log.Info().
		Int("usage_samples", report.Usage.Merged().Len()).
		Int("limit_samples", report.Limits.Merged().Len()).
		Int("failed", len(report.Failures())).
		Int64("enqueued", report.Enqueued).
		Int64("dropped", report.Dropped).
		Msg("collection complete")

	return report, ctx.Err()
}

type familyCollector func(ctx context.Context, f aggregate.Family) (*sample.Set, []error, error)

func (c *Collector) collectUsage(ctx context.Context, f aggregate.Family) (*sample.Set, []error, error) {
	s, err := c.source.Usage(ctx, f)
	return s, nil, err
}

func (c *Collector) collectLimits(ctx context.Context, f aggregate.Family) (*sample.Set, []error, error) {
	return c.source.Limits(ctx, f)
}

func (c *Collector) runPass(ctx context.Context, kind sample.Kind, families []aggregate.Family, collect familyCollector) *Pass {
	pass := &Pass{Kind: kind, Clock: c.clock()}

	for _, f := range families {
		if ctx.Err() != nil {
			break
		}
		pass.Results = append(pass.Results, c.collectFamily(ctx, kind, f, collect))
	}

	return pass
}

func (c *Collector) collectFamily(ctx context.Context, kind sample.Kind, f aggregate.Family, collect familyCollector) FamilyResult {
	ctx, span := c.tracer.Start(ctx, "collect "+string(kind),
		trace.WithAttributes(
			attribute.String("family", f.String()),
			attribute.String("source", c.source.Name()),
		),
	)
	defer span.End()

	start := time.Now()
	s, warnings, err := collect(ctx, f)
	result := FamilyResult{
		Family:   f,
		Kind:     kind,
		Warnings: warnings,
		Err:      err,
		Duration: time.Since(start),
	}
	if err == nil {
		result.Samples = s
	}

	c.metrics.RecordCollection(ctx, f, string(kind), result.Duration, err)

	for _, w := range warnings {
		log.Warn().Ctx(ctx).Err(w).
			Str("family", f.String()).
			Str("kind", string(kind)).
			Msg("metric omitted")
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Ctx(ctx).Err(err).
			Str("family", f.String()).
			Str("kind", string(kind)).
			Msg("family collection failed")
		return result
	}

	c.metrics.RecordSamples(ctx, f, string(kind), result.Samples.Len())
	span.SetAttributes(attribute.Int("samples", result.Samples.Len()))
	log.Debug().Ctx(ctx).
		Str("family", f.String()).
		Str("kind", string(kind)).
		Int("samples", result.Samples.Len()).
		Dur("duration", result.Duration).
		Msg("family collected")

	return result
}

func (c *Collector) enqueue(ctx context.Context, report *Report, pass *Pass) {
	for _, s := range pass.Merged().Samples() {
		item := sample.NewItem(pass.Kind, s, c.hostname, pass.Clock)
		if err := c.queue.Put(item); err != nil {
			report.Dropped++
			c.metrics.RecordDropped(ctx, err)
			log.Warn().Err(err).Str("key", item.Key).Msg("item dropped")
			continue
		}
		report.Enqueued++
		log.Debug().
			Str("key", item.Key).
			Int64("value", item.Value).
			Str("host", item.Host).
			Msg("inserted to queue")
	}
}

// FamilyResult is the outcome of collecting one family in one pass.
type FamilyResult struct {
	Family   aggregate.Family
	Kind     sample.Kind
	Samples  *sample.Set // nil when Err is set
	Warnings []error
	Err      error
	Duration time.Duration
}

// OK reports whether the family was collected.
func (r FamilyResult) OK() bool {
	return r.Err == nil
}

// Pass holds the per-family results of one pass.
type Pass struct {
	Kind    sample.Kind
	Clock   time.Time
	Results []FamilyResult
}

// Merged flattens the successful results in order. A later family wins on
// a name collision.
func (p *Pass) Merged() *sample.Set {
	merged := sample.NewSet()
	if p == nil {
		return merged
	}
	for _, r := range p.Results {
		if r.OK() {
			merged.Merge(r.Samples)
		}
	}
	return merged
}

// Failures returns the failed results of the pass.
func (p *Pass) Failures() []FamilyResult {
	if p == nil {
		return nil
	}
	var failed []FamilyResult
	for _, r := range p.Results {
		if !r.OK() {
			failed = append(failed, r)
		}
	}
	return failed
}

// Report summarises one collection run.
type Report struct {
	Usage    *Pass
	Limits   *Pass
	Enqueued int64
	Dropped  int64
}

// Failures returns every failed family of both passes.
func (r *Report) Failures() []FamilyResult {
	return append(r.Usage.Failures(), r.Limits.Failures()...)
}

// Err joins the errors of every failed family, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, f := range r.Failures() {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}
