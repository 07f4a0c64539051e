package cake

import (
	"os"

	"github.com/rs/zerolog"
)

// Log is the diagnostic logging capability consumed by the engine and
// TaskRunner. It is used only for observability, never for control flow.
type Log interface {
	Error(message string, args ...any)
	Info(message string, args ...any)
}

// NewZerologAdapter wraps a zerolog.Logger as a Log. The logger is used
// as given; no default writer is substituted for a zero value.
func NewZerologAdapter(logger zerolog.Logger) Log {
	return zerologAdapter{logger: logger}
}

// NewDefaultLog returns the engine's default Log, a zerolog console
// writer at info level.
func NewDefaultLog() Log {
	return NewZerologAdapter(zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger())
}

type zerologAdapter struct {
	logger zerolog.Logger
}

func (z zerologAdapter) Error(message string, args ...any) {
	z.logger.Error().Msgf(message, args...)
}

func (z zerologAdapter) Info(message string, args ...any) {
	z.logger.Info().Msgf(message, args...)
}

// NewNopLog returns a Log that discards every message. Tests that don't
// want to assert on log output, or callers embedding the engine in a
// context with its own logging, can pass this to WithLog.
func NewNopLog() Log {
	return nopLog{}
}

type nopLog struct{}

func (nopLog) Error(string, ...any) {}
func (nopLog) Info(string, ...any)  {}
