package logging

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit_WritesRunLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "run.log")

	require.NoError(t, Init(Config{Level: "info", Format: "json", OutputPath: logPath}))
	Info("download started", zap.String("project", "Tower"))
	Debug("hidden at info level")
	require.NoError(t, Sync())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"download started"`)
	assert.Contains(t, string(data), `"project":"Tower"`)
	assert.NotContains(t, string(data), "hidden at info level")
}

func TestSetLevel(t *testing.T) {
	require.NoError(t, Init(Config{Level: "error", Format: "console", OutputPath: filepath.Join(t.TempDir(), "x.log")}))
	assert.False(t, L().Core().Enabled(zapcore.InfoLevel))

	SetLevel("debug")
	assert.True(t, L().Core().Enabled(zapcore.DebugLevel))

	SetLevel("not-a-level")
	assert.True(t, L().Core().Enabled(zapcore.DebugLevel))
}

func TestWithFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Use(zap.New(core))

	ctx := WithFields(context.Background(), zap.String("project", "Tower"))
	WithContext(ctx).Info("folder")
	WithContext(context.Background()).Info("plain")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Tower", entries[0].ContextMap()["project"])
	assert.NotContains(t, entries[1].ContextMap(), "project")
}

func TestCallerIsLogSite(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Use(zap.New(core, zap.AddCaller()))

	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)

	Info("wrapper")
	WithContext(context.Background()).Info("direct")
	WithContext(WithFields(context.Background(), zap.String("k", "v"))).Info("with fields")
	L().Info("global")

	entries := logs.All()
	require.Len(t, entries, 4)
	for _, e := range entries {
		assert.True(t, e.Caller.Defined, e.Message)
		assert.Equal(t, file, e.Caller.File, e.Message)
	}
}
