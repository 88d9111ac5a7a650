package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesToFile(t *testing.T) {
	var fileBuf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&fileBuf, "info")
	m.Logger().Info("hello file")

	assert.Contains(t, fileBuf.String(), "hello file")
}

func TestSetupDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "debug")

	m.Logger().Debug("debug msg")
	m.Logger().Info("info msg")

	output := buf.String()
	assert.Contains(t, output, "debug msg")
	assert.Contains(t, output, "info msg")
}

func TestSetupInfoLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info")

	m.Logger().Debug("should be filtered")
	m.Logger().Info("should appear")

	output := buf.String()
	assert.NotContains(t, output, "should be filtered")
	assert.Contains(t, output, "should appear")
}

func TestLoggerBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	require.NotNil(t, m.Logger(), "Logger should fall back to a default before Setup")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"garbage": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

type failingHandler struct {
	slog.Handler
	err error
}

func (f *failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (f *failingHandler) Handle(context.Context, slog.Record) error { return f.err }

func TestMultiHandlerContinuesAfterFailure(t *testing.T) {
	var buf bytes.Buffer
	sink := slog.NewTextHandler(&buf, nil)
	boom := errors.New("boom")
	mh := NewMultiHandler(&failingHandler{err: boom}, sink)

	logger := slog.New(mh)
	logger.Info("still delivered")

	assert.Contains(t, buf.String(), "still delivered")
}

func TestMultiHandlerSkipsNilHandlers(t *testing.T) {
	var buf bytes.Buffer
	mh := NewMultiHandler(nil, slog.NewTextHandler(&buf, nil))

	slog.New(mh).Info("ok")
	assert.Contains(t, buf.String(), "ok")
}
