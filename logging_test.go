package main

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := parseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = parseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	_, err = parseLevel("loud")
	assert.Error(t, err)
}

func TestNewLoggerWritesPlainLines(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, zerolog.InfoLevel)
	l.Debug().Msg("hidden")
	l.Info().Str("component", "gamma").Msg("applied")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "applied")
	assert.Contains(t, out, "component=gamma")
	assert.NotContains(t, out, "\x1b[", "no colour codes in the log file")
}
