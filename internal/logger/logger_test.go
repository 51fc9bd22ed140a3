package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/dogbreed-go/internal/logger"
)

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelInfo)

	log.Debug("hidden debug")
	log.Trace("hidden trace")
	log.Info("visible info", logger.String("image_hash", "abc"))
	log.Warn("visible warn", logger.Int("label", 3))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible info")
	assert.Contains(t, out, "image_hash=abc")
	assert.Contains(t, out, "label=3")
	assert.NotContains(t, out, "time=", "console output must not carry timestamps")
}

func TestModuleNamesAreDotted(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelDebug).Module("datastore").Module("sqlite")
	log.Debug("opened")

	assert.Contains(t, buf.String(), "module=datastore.sqlite")
}

func TestWithFieldsAreImmutable(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	base := logger.NewSlogLogger(buf, logger.LogLevelInfo).Module("api")
	child := base.With(logger.String("request", "r1"))

	base.Info("from base")
	child.Info("from child")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "request=r1")
	assert.Contains(t, lines[1], "request=r1")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelInfo)

	ctx := logger.WithTraceID(context.Background(), "trace-123")
	log.WithContext(ctx).Info("handled")
	log.WithContext(context.Background()).Info("untraced")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=trace-123")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestTraceLevelRendering(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelTrace)
	log.Trace("very verbose")

	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestFieldConstructors(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelInfo)
	log.Info("fields",
		logger.Error(errors.New("boom")),
		logger.Bool("is_dog", true),
		logger.Float32("confidence", 0.87654),
		logger.Duration("elapsed", 1500*time.Millisecond),
	)

	out := buf.String()
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "is_dog=true")
	assert.Contains(t, out, "confidence=0.877")
	assert.Contains(t, out, "elapsed=1.5s")

	assert.Nil(t, logger.Error(nil).Value)
}

func TestCentralLoggerWritesJSONFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"noisy": "error"},
	})
	require.NoError(t, err)

	cl.Module("prediction").Info("cache hit", logger.Int("label", 7))
	cl.Module("noisy").Info("suppressed")
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "cache hit", record["msg"])
	assert.Equal(t, "prediction", record["module"])
	assert.InDelta(t, 7, record["label"], 0)
	assert.Contains(t, record["time"], "Z")
}

func TestCentralLoggerRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)

	_, err = logger.NewCentralLogger(nil)
	require.Error(t, err)
}

func TestValidLevel(t *testing.T) {
	t.Parallel()

	for _, lvl := range []string{"trace", "debug", "info", "warn", "error", "INFO"} {
		assert.True(t, logger.ValidLevel(lvl), lvl)
	}
	assert.False(t, logger.ValidLevel("verbose"))
}
