package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "", "warn")
	l.Info().Msg("dropped")
	l.Warn().Str("station", "Chatelet").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "Chatelet", entry["station"])
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "", "chatty")
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
	l = New(&buf, "", "")
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
}

func TestNew_DevConsole(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "dev", "debug")
	l.Debug().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = New(&buf, "", "info")

	cl := Component("board")
	cl.Info().Msg("tick")
	assert.Contains(t, buf.String(), `"component":"board"`)
}
