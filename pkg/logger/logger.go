// pkg/logger/logger.go
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	// Log is the global logger instance
	Log zerolog.Logger
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	Log = newLogger(consoleWriter(os.Stdout), zerolog.InfoLevel)
	log.Logger = Log
}

// Configure sets the output format ("console" or "json") and the log level,
// and installs the result as the zerolog/log package logger so callers using
// log.Info() pick it up.
func Configure(format, levelStr string) {
	var out io.Writer = consoleWriter(os.Stdout)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		out = os.Stdout
	}

	Log = newLogger(out, zerolog.InfoLevel)
	SetLevel(levelStr)
}

// SetLevel sets the log level
func SetLevel(levelStr string) {
	level := zerolog.InfoLevel
	if trimmed := strings.ToLower(strings.TrimSpace(levelStr)); trimmed != "" {
		parsed, err := zerolog.ParseLevel(trimmed)
		if err != nil {
			Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		} else {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
	log.Logger = Log
}

func newLogger(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
	}
}
