package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	prev := log.Logger
	defer func() { log.Logger = prev }()

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)
	l := For("metrics")
	l.Info().Msg("server started")

	assert.Contains(t, buf.String(), `"component":"metrics"`)
	assert.Contains(t, buf.String(), `"message":"server started"`)
}

func TestInit_UnknownLevelFallsBackToInfo(t *testing.T) {
	prevLevel := zerolog.GlobalLevel()
	prev := log.Logger
	defer func() {
		zerolog.SetGlobalLevel(prevLevel)
		log.Logger = prev
	}()

	Init("chatty")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	Init("debug")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}
