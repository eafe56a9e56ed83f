package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const logTimeFormat = "2006-01-02 15:04:05"

// setupLogging points the global logger at path and stderr. The returned
// file must be closed on exit.
func setupLogging(path, level string) (io.Closer, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	log.Logger = newLogger(io.MultiWriter(f, os.Stderr), lvl)
	return f, nil
}

func parseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log level %q: %w", level, err)
	}
	return lvl, nil
}

// newLogger writes plain console lines; the log file is read by people.
func newLogger(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: logTimeFormat,
		NoColor:    true,
	}
	return zerolog.New(console).Level(lvl).With().Timestamp().Logger()
}
