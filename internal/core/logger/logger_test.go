package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBuild_JSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup := Build(Options{Level: "info", JSON: true, Output: &buf})
	l.Debug("hidden")
	l.Info("task created", zap.String("id", "t-1"))
	cleanup()

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "task created", line["msg"])
	assert.Equal(t, "t-1", line["id"])
	assert.Contains(t, line, "ts")
}

func TestBuild_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup := Build(Options{Level: "loud", JSON: true, Output: &buf})
	l.Debug("hidden")
	l.Info("shown")
	cleanup()
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWithRotate_WritesFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "app.log")
	l, cleanup := NewWithRotate("info", true, p, 1, 1, 1, false)
	l.Error("boom")
	cleanup()

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), "boom")
}

func TestToWriter(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup := Build(Options{Level: "info", JSON: true, Output: &buf})
	w := ToWriter(l, zapcore.WarnLevel)
	_, err := io.WriteString(w, "gin warning\n")
	require.NoError(t, err)
	cleanup()
	assert.Contains(t, buf.String(), `"msg":"gin warning"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
