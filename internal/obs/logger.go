// Package obs is Caliper core's ambient logging and self-metrics: a
// log/slog logger selected between JSON and text handlers per config
// (grounded on the teacher's pkg/observability/init.go buildLogger, minus
// its OpenTelemetry trace-context injection — see DESIGN.md), and an
// optional Prometheus registry of CORE-internal counters (grounded on the
// teacher's internal/observability/prometheus.go, which already uses
// prometheus/client_golang directly without going through an OTel bridge).
package obs

import (
	"log/slog"
	"os"
)

// LogConfig selects the logger's output format and level.
type LogConfig struct {
	JSON  bool
	Level slog.Level
}

// NewLogger builds a structured logger writing to stderr, JSON- or
// text-encoded per cfg.
func NewLogger(cfg LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
