package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxevent"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	Configure(buf, "test")
	t.Cleanup(func() {
		Configure(nil, "")
		SetLogLevel("INFO")
	})
	return buf
}

func TestSetLogLevel_FiltersBelowThreshold(t *testing.T) {
	buf := capture(t)
	SetLogLevel("WARN")

	Infof("hidden %d", 1)
	Warnf("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
	assert.Equal(t, LevelWarn, GetLogLevel())
}

func TestSetLogLevel_UnknownDefaultsToInfo(t *testing.T) {
	capture(t)
	SetLogLevel("verbose")
	assert.Equal(t, LevelInfo, GetLogLevel())
}

func TestEntriesAreStructured(t *testing.T) {
	buf := capture(t)
	SetLogLevel("debug")

	Debugf("hello %s", "world")

	line := strings.TrimSpace(buf.String())
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "hello world", entry["message"])
	assert.Equal(t, "test", entry["service"])
}

func TestFxLoggerAdapter_Started(t *testing.T) {
	buf := capture(t)

	NewFxLoggerAdapter().LogEvent(&fxevent.Started{})

	assert.Contains(t, buf.String(), "Application started.")
}

func TestShortFunctionName(t *testing.T) {
	assert.Equal(t, "main.startServer", shortFunctionName("main.startServer.func1"))
	assert.Equal(t, "main.run", shortFunctionName("main.run"))
}

func TestWithComponent_FollowsLogLevel(t *testing.T) {
	buf := capture(t)
	SetLogLevel("ERROR")

	l := WithComponent("server")
	l.Info().Msg("request served")
	l.Error().Msg("listener failed")

	out := buf.String()
	assert.NotContains(t, out, "request served")
	assert.Contains(t, out, `"component":"server"`)
	assert.Contains(t, out, "listener failed")
}

func TestFxLoggerAdapter_HookFailureIsStructured(t *testing.T) {
	buf := capture(t)

	NewFxLoggerAdapter().LogEvent(&fxevent.OnStartExecuted{
		FunctionName: "apps.NewRegistryProvider.func1",
		Err:          assert.AnError,
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "fx", entry["component"])
	assert.Equal(t, "apps.NewRegistryProvider", entry["callee"])
	assert.Equal(t, "OnStart hook failed", entry["message"])
	assert.Equal(t, assert.AnError.Error(), entry["error"])
}
