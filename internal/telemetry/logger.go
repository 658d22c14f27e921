package telemetry

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry that carries a context.
type OTELHook struct{}

// Run implements zerolog.Hook.
func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// LogOptions configures the global logger.
type LogOptions struct {
	Level   string
	Debug   bool // overrides Level
	Console bool // human readable output instead of JSON
}

// SetupLogger configures the global zerolog logger writing to out.
func SetupLogger(out io.Writer, opts LogOptions) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.DebugLevel
	if !opts.Debug {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("parse log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	zerolog.SetGlobalLevel(level)

	if opts.Console {
		out = zerolog.ConsoleWriter{Out: out}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger().Hook(OTELHook{})
	return nil
}
