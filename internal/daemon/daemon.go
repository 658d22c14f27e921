// Package daemon schedules collection runs.
package daemon

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/awslimits/internal/collector"
)

// Runner performs one collection run.
type Runner interface {
	Run(ctx context.Context) (*collector.Report, error)
}

// Config holds daemon configuration
type Config struct {
	Interval time.Duration
	OneShot  bool
}

// Daemon runs the collector immediately and then on every tick.
type Daemon struct {
	runner    Runner
	interval  time.Duration
	oneShot   bool
	startTime time.Time

	runCount    atomic.Int64
	failedCount atomic.Int64
	lastRun     atomic.Int64 // unix seconds
}

// NewDaemon creates a new daemon instance
func NewDaemon(runner Runner, config Config) *Daemon {
	return &Daemon{
		runner:    runner,
		interval:  config.Interval,
		oneShot:   config.OneShot,
		startTime: time.Now(),
	}
}

// Start runs collections until ctx is done, or once in one-shot mode.
func (d *Daemon) Start(ctx context.Context) error {
	d.runOnce(ctx)
	if d.oneShot {
		return nil
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.runOnce(ctx)
		}
	}
}

func (d *Daemon) runOnce(ctx context.Context) {
	d.runCount.Add(1)
	d.lastRun.Store(time.Now().Unix())

	report, err := d.runner.Run(ctx)
	if report != nil {
		if failed := len(report.Failures()); failed > 0 {
			d.failedCount.Add(int64(failed))
		}
	}
	if err != nil {
		log.Warn().Err(err).Msg("collection interrupted")
	}
}

// Health returns daemon health status
func (d *Daemon) Health() HealthStatus {
	return HealthStatus{
		Status:       "healthy",
		Uptime:       int64(time.Since(d.startTime).Seconds()),
		Runs:         d.runCount.Load(),
		FailedFamily: d.failedCount.Load(),
		LastRun:      d.lastRun.Load(),
	}
}

// HealthStatus represents daemon health
type HealthStatus struct {
	Status       string `json:"status"`
	Uptime       int64  `json:"uptime"`
	Runs         int64  `json:"runs"`
	FailedFamily int64  `json:"failed_families"`
	LastRun      int64  `json:"last_run"`
}

// RunCount returns total collection runs started
func (d *Daemon) RunCount() int64 {
	return d.runCount.Load()
}
