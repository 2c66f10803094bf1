package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Output: &buf})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("capture started", "component", "recorder")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.Equal(t, "capture started", rec["msg"])
	require.Equal(t, "recorder", rec["component"])

	ts, ok := rec["time"].(string)
	require.True(t, ok)
	parsed, err := time.Parse(time.RFC3339, ts)
	require.NoError(t, err)
	require.Equal(t, time.UTC, parsed.Location())
}

func TestTextFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "WARN", Format: "text", Output: &buf})
	require.NoError(t, err)

	logger.Info("skipped")
	logger.Warn("synthesis failed")
	require.NotContains(t, buf.String(), "skipped")
	require.Contains(t, buf.String(), "msg=\"synthesis failed\"")
}

func TestInvalidOptions(t *testing.T) {
	_, err := New(Options{Level: "verbose"})
	require.Error(t, err)
	_, err = New(Options{Format: "xml"})
	require.Error(t, err)
}
