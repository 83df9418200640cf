package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydromet/internal/config"
	"hydromet/internal/logging"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithWriter(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	t.Cleanup(func() { zerolog.DefaultContextLogger = nil })

	logger.Info().Msg("dropped")
	logger.Warn().Str("key", "storms/1/nwp").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "storms/1/nwp", entry["key"])
	assert.Equal(t, "kept", entry["message"])
}

func TestNewWithWriter_InvalidLevel(t *testing.T) {
	_, err := logging.NewWithWriter(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNewWithWriter_UnknownFormat(t *testing.T) {
	_, err := logging.NewWithWriter(config.LogConfig{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}
