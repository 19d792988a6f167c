package main

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, zerolog.InfoLevel)
	logger.Debug().Msg("hidden")
	logger.Info().Str("unit", "kmph").Msg("processing started")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "processing started")
	assert.Contains(t, buf.String(), "unit=kmph")

	buf.Reset()
	logger = logger.Level(zerolog.DebugLevel)
	logger.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}
