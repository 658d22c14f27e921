package emitter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/yairfalse/awslimits/pkg/sample"
)

// LogEmitter writes one structured log event per item.
type LogEmitter struct {
	logger zerolog.Logger
}

// NewLogEmitter creates a log emitter writing to logger.
func NewLogEmitter(logger zerolog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit logs item.
func (e *LogEmitter) Emit(_ context.Context, item sample.Item) error {
	event := e.logger.Info().
		Str("key", item.Key).
		Str("kind", string(item.Kind)).
		Str("host", item.Host).
		Int64("clock", item.Clock.Unix())
	if item.Text != "" {
		event = event.Str("value", item.Text)
	} else {
		event = event.Int64("value", item.Value)
	}
	event.Msg("metric")
	return nil
}

// Close is a no-op for the log emitter.
func (e *LogEmitter) Close() error {
	return nil
}
