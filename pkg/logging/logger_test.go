package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:       LevelInfo,
		ServiceName: "test-agent",
		JSONFormat:  true,
		Output:      &buf,
	})

	log.Info("session started", F("session_id", "abc-123"), F("chunks", 3))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "session started", entry["message"])
	assert.Equal(t, "test-agent", entry["service"])
	assert.Equal(t, "abc-123", entry["session_id"])
	assert.Equal(t, float64(3), entry["chunks"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:      LevelWarn,
		JSONFormat: true,
		Output:     &buf,
	})

	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:      LevelInfo,
		JSONFormat: true,
		Output:     &buf,
	})

	child := log.With(F("session_id", "s-1"))
	child.Info("tick")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "s-1", entry["session_id"])
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:      LevelInfo,
		JSONFormat: true,
		Output:     &buf,
	})

	ctx := context.WithValue(context.Background(), SessionIDKey, "s-42")
	log.WithContext(ctx).Info("status update")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "s-42", entry["session_id"])
}

func TestLogger_FieldTypes(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:      LevelInfo,
		JSONFormat: true,
		Output:     &buf,
	})

	log.Error("flush failed",
		Err(errors.New("boom")),
		F("elapsed", 2*time.Second),
		F("retryable", true),
	)

	out := buf.String()
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "retryable")
}

func TestNewNopLogger_Silent(t *testing.T) {
	log := NewNopLogger()
	// Must not panic and must stay chainable.
	log.With(F("k", "v")).WithContext(context.Background()).Info("ignored")
}

func TestParseLevel_Unknown(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:      Level("bogus"),
		JSONFormat: true,
		Output:     &buf,
	})
	log.Info("still logs at info")
	assert.True(t, strings.Contains(buf.String(), "still logs at info"))
}
