package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns the process logger: JSON to stdout in production, a console
// writer with debug level everywhere else.
func New(environment string) zerolog.Logger {
	if environment == "production" {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Logger().
		Level(zerolog.DebugLevel)
}
