package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yairfalse/awslimits/internal/daemon"
)

// healthReporter exposes the daemon state to the HTTP handlers.
type healthReporter interface {
	Health() daemon.HealthStatus
}

func newMetricsServer(addr string, health healthReporter) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", handleHealthz)
	mux.HandleFunc("/readyz", handleReadyz(health))

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz reports ready once the first collection run has started.
func handleReadyz(health healthReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status := health.Health()
		w.Header().Set("Content-Type", "application/json")
		if status.Runs == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(status)
	}
}
