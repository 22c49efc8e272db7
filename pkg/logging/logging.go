// Package logging provides structured logging for mqom2-manage using zerolog.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger     *zerolog.Logger
	prettyMode bool
)

func init() {
	// Default to JSON logging at info level
	l := zerolog.New(os.Stderr).With().Timestamp().Logger()
	logger = &l
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// Init configures the global logger.
// If debug is true, sets log level to Debug.
// If human is true, uses a human-friendly console writer and adds
// human-readable companions (e.g. "duration_h") to completion events.
func Init(debug bool, human bool) {
	InitWriter(os.Stderr, debug, human)
}

// InitWriter is like Init but writes to w.
func InitWriter(w io.Writer, debug bool, human bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var output zerolog.LevelWriter
	if human {
		output = zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			NoColor:    false,
		}}
	} else {
		output = zerolog.LevelWriterAdapter{Writer: w}
	}

	l := zerolog.New(output).With().Timestamp().Logger()
	logger = &l
	prettyMode = human
}

// L returns the base logger.
func L() *zerolog.Logger {
	return logger
}

// IsPrettyMode reports whether human-friendly output was requested.
func IsPrettyMode() bool {
	return prettyMode
}

// SetPrettyMode toggles human-readable companion fields without touching the writer.
func SetPrettyMode(on bool) {
	prettyMode = on
}

// SetLogger allows overriding the global logger (useful for testing).
func SetLogger(l zerolog.Logger) {
	logger = &l
}
