package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/keyrelay/core/logger"
)

func TestGroup(t *testing.T) {
	t.Parallel()
	attr := logger.Group("relay", slog.String("key", "a"), slog.Int("n", 2))
	require.Equal(t, "relay", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "key", g[0].Key)
	assert.Equal(t, "n", g[1].Key)
}

// ============================================================================
// Error Handling Tests
// ============================================================================

func TestErrors(t *testing.T) {
	t.Parallel()
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "0", g[0].Key)
	assert.Equal(t, "2", g[1].Key)
	assert.Equal(t, err2, g[1].Value.Any())

	assert.True(t, logger.Errors(nil, nil).Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	t.Parallel()
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}

func TestTiming(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 2*time.Second, logger.Duration(2*time.Second).Value.Duration())

	elapsed := logger.Elapsed(time.Now().Add(-time.Minute))
	assert.Equal(t, "elapsed", elapsed.Key)
	assert.GreaterOrEqual(t, elapsed.Value.Duration(), time.Minute)
}

// ============================================================================
// Relay Attribute Tests
// ============================================================================

func TestRelayAttrs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		attr  slog.Attr
		key   string
		value any
	}{
		{"relay key", logger.RelayKey("order:1"), "relay_key", "order:1"},
		{"relay id", logger.RelayID("abc"), "relay_id", "abc"},
		{"expected", logger.Expected(3), "expected", int64(3)},
		{"delivered", logger.Delivered(2), "delivered", int64(2)},
		{"reason", logger.Reason("closed"), "reason", "closed"},
		{"source", logger.Source("relay:*"), "source", "relay:*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.key, tt.attr.Key)
			assert.Equal(t, tt.value, tt.attr.Value.Any())
		})
	}
}

func TestRelayAttrs_EmptyInput(t *testing.T) {
	t.Parallel()
	assert.True(t, logger.RelayKey("").Equal(slog.Attr{}))
	assert.True(t, logger.RelayID("").Equal(slog.Attr{}))
	assert.True(t, logger.Reason("").Equal(slog.Attr{}))
	assert.True(t, logger.Source("").Equal(slog.Attr{}))
}

// ============================================================================
// Constructor Tests
// ============================================================================

func TestNew_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithProduction("relayd"),
		logger.WithOutput(&buf),
	)
	log.Info("relay created", logger.RelayKey("a"), logger.Error(nil))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "relay created", rec["msg"])
	assert.Equal(t, "relayd", rec["service"])
	assert.Equal(t, "a", rec["relay_key"])
	assert.NotContains(t, rec, "error")
}

func TestNew_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithLevel(slog.LevelWarn),
	)
	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "shown"))
}

func TestDiscard(t *testing.T) {
	t.Parallel()
	log := logger.Discard()
	require.NotNil(t, log)
	log.Error("nothing happens")
}
