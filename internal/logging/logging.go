// Package logging builds the process logger and bridges it into the Temporal SDK.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	tlog "go.temporal.io/sdk/log"
)

func New(service, level, format string) zerolog.Logger {
	return NewWithOutput(service, level, format, os.Stdout)
}

func NewWithOutput(service, level, format string, out io.Writer) zerolog.Logger {
	var zl zerolog.Logger
	if strings.EqualFold(format, "console") {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	} else {
		zl = zerolog.New(out)
	}
	return zl.Level(parseLevel(level)).With().Timestamp().Str("service", service).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// TemporalLogger adapts zerolog to the SDK's key/value logger interface.
type TemporalLogger struct {
	zl zerolog.Logger
}

var (
	_ tlog.Logger     = TemporalLogger{}
	_ tlog.WithLogger = TemporalLogger{}
)

func NewTemporalLogger(zl zerolog.Logger) TemporalLogger {
	return TemporalLogger{zl: zl}
}

func (l TemporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.zl.Debug().Fields(fields(keyvals)).Msg(msg)
}

func (l TemporalLogger) Info(msg string, keyvals ...interface{}) {
	l.zl.Info().Fields(fields(keyvals)).Msg(msg)
}

func (l TemporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.zl.Warn().Fields(fields(keyvals)).Msg(msg)
}

func (l TemporalLogger) Error(msg string, keyvals ...interface{}) {
	l.zl.Error().Fields(fields(keyvals)).Msg(msg)
}

func (l TemporalLogger) With(keyvals ...interface{}) tlog.Logger {
	return TemporalLogger{zl: l.zl.With().Fields(fields(keyvals)).Logger()}
}

func fields(keyvals []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if i+1 >= len(keyvals) {
			out[key] = "(MISSING)"
			break
		}
		if err, ok := keyvals[i+1].(error); ok {
			out[key] = err.Error()
			continue
		}
		out[key] = keyvals[i+1]
	}
	return out
}
