package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"

	"github.com/yairfalse/awslimits/internal/collector"
	"github.com/yairfalse/awslimits/internal/config"
	"github.com/yairfalse/awslimits/internal/daemon"
	"github.com/yairfalse/awslimits/internal/emitter"
	"github.com/yairfalse/awslimits/internal/plugin/aws"
	"github.com/yairfalse/awslimits/internal/queue"
	"github.com/yairfalse/awslimits/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

var (
	collectOnce     bool
	collectRegion   string
	collectInterval time.Duration
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect usage and limits, then emit them",
	Long: `Collect usage and account limits from AWS and emit them.

Every run performs a usage pass over the configured resources followed by a
limits pass. A failing family is logged and skipped; the other families are
still emitted. Items go through a bounded queue: when it is full new items are
dropped and counted instead of blocking collection.`,
	Example: `  awslimits collect                               # Run with awslimits.yaml
  awslimits collect --once                        # Collect once and exit
  awslimits collect --region eu-west-1            # Override region_name
  awslimits collect --config /etc/awslimits.yaml  # Custom config path`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().BoolVar(&collectOnce, "once", false, "Run once and exit")
	collectCmd.Flags().StringVar(&collectRegion, "region", "", "AWS region (overrides region_name)")
	collectCmd.Flags().DurationVar(&collectInterval, "interval", 0, "Collection interval (overrides interval)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if collectRegion != "" {
		cfg.Region = collectRegion
	}
	if collectInterval > 0 {
		cfg.Interval = collectInterval
		cfg.IntervalStr = collectInterval.String()
	}
	if collectOnce {
		cfg.OneShot = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runCollect(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := telemetry.SetupLogger(os.Stderr, telemetry.LogOptions{
		Level:   cfg.Log.Level,
		Debug:   debug,
		Console: debug,
	}); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Initialize OTEL with the Prometheus exporter next to the optional OTLP one
	promExporter, err := prometheus.New()
	if err != nil {
		return fmt.Errorf("create prometheus exporter: %w", err)
	}
	provider, err := telemetry.NewProvider(ctx, cfg.OTEL, promExporter)
	if err != nil {
		return fmt.Errorf("create telemetry provider: %w", err)
	}
	defer shutdownTelemetry(provider)

	awsPlugin, err := aws.New(ctx, aws.Config{
		Region:          cfg.Region,
		Profile:         cfg.Profile,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	})
	if err != nil {
		return fmt.Errorf("create aws plugin: %w", err)
	}

	emit, err := buildEmitters(cfg, provider.Meter())
	if err != nil {
		return err
	}
	defer func() {
		if err := emit.Close(); err != nil {
			log.Error().Err(err).Msg("close emitters")
		}
	}()

	resources, err := cfg.ResourceFamilies()
	if err != nil {
		return err
	}
	limits, err := cfg.LimitFamilies()
	if err != nil {
		return err
	}

	q := queue.New(cfg.Queue.Size)
	coll := collector.New(awsPlugin, q, collector.Options{
		Hostname:  cfg.Hostname,
		Resources: resources,
		Limits:    limits,
		Tracer:    provider.Tracer(),
		Metrics:   provider.Metrics(),
	})
	d := daemon.NewDaemon(coll, daemon.Config{Interval: cfg.Interval, OneShot: cfg.OneShot})
	forwarder := emitter.NewForwarder(q, emit)

	log.Info().
		Str("region", cfg.Region).
		Str("hostname", cfg.Hostname).
		Strs("resources", cfg.Resources).
		Strs("limits", cfg.Limits).
		Dur("interval", cfg.Interval).
		Bool("one_shot", cfg.OneShot).
		Int("emitters", emit.Len()).
		Msg("awslimits starting")

	var g run.Group
	{
		collectCtx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			defer q.Close()
			return d.Start(collectCtx)
		}, func(error) {
			cancel()
		})
	}
	{
		forwardCtx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			return forwarder.Run(forwardCtx)
		}, func(error) {
			cancel()
		})
	}
	if addr := cfg.Emitters.Prometheus.Listen; addr != "" {
		srv := newMetricsServer(addr, d)
		g.Add(func() error {
			log.Info().Str("addr", addr).Msg("starting metrics server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		}, func(error) {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		})
	}
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	err = g.Run()

	log.Info().
		Int64("runs", d.RunCount()).
		Int64("enqueued", q.Enqueued()).
		Int64("dropped", q.Dropped()).
		Int64("sent", forwarder.Sent()).
		Int64("failed", forwarder.Failed()).
		Msg("shutting down")

	var sigErr run.SignalError
	if errors.As(err, &sigErr) {
		return nil
	}
	return err
}

// buildEmitters creates the configured backends. The Prometheus emitter is
// registered on meter whenever a listen address is set.
func buildEmitters(cfg *config.Config, meter metric.Meter) (*emitter.MultiEmitter, error) {
	var emitters []emitter.Emitter

	if cfg.Emitters.Log {
		emitters = append(emitters, emitter.NewLogEmitter(log.Logger))
	}

	if addr := cfg.Emitters.Wavefront.Address; addr != "" {
		wf, err := emitter.NewWavefrontEmitter(addr)
		if err != nil {
			return nil, err
		}
		emitters = append(emitters, wf)
	}

	if cfg.Emitters.Prometheus.Listen != "" {
		prom, err := emitter.NewPrometheusEmitter(meter)
		if err != nil {
			return nil, fmt.Errorf("create prometheus emitter: %w", err)
		}
		emitters = append(emitters, prom)
	}

	return emitter.NewMultiEmitter(emitters...), nil
}

func shutdownTelemetry(provider *telemetry.Provider) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := provider.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown telemetry")
	}
}
