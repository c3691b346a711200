package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "json", "warn")
	require.NoError(t, err)

	log.Info().Msg("dropped")
	log.Warn().Str("cabinet_id", "C1").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "C1", entry["cabinet_id"])
	assert.Equal(t, "warn", entry["level"])
}

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "console", "")
	require.NoError(t, err)
	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
}

func TestInvalidSettings(t *testing.T) {
	_, err := New(nil, "xml", "info")
	assert.Error(t, err)
	_, err = New(nil, "json", "loud")
	assert.Error(t, err)
}
