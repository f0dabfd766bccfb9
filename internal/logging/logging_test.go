package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := WithLogger(context.Background(), WithUser(logger, "u1"))
	ctxLogger := FromContext(ctx)
	ctxLogger.Warn().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "u1", line["user_id"])
	assert.Equal(t, "hello", line["message"])

	// A context without a logger gets a no-op logger.
	nop := FromContext(context.Background())
	nop.Error().Msg("dropped")
}

func TestEventHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := WithSession(zerolog.New(&buf), "s1")

	pnl := -42.5
	LogTradeLogged(logger, "s1", 3, "loss", &pnl, false)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "trade_logged", line["event"])
	assert.Equal(t, float64(3), line["trade_number"])
	assert.Equal(t, -42.5, line["pnl"])
	assert.Equal(t, false, line["rules_followed"])
}

func TestValidLevel(t *testing.T) {
	for _, l := range []string{"debug", "info", "warn", "error"} {
		assert.True(t, ValidLevel(l))
	}
	assert.False(t, ValidLevel("trace"))
}

func TestFileLogger(t *testing.T) {
	cfg := DefaultLogConfig()
	cfg.Console = false
	cfg.File = true
	cfg.FilePath = filepath.Join(t.TempDir(), "logs", "trademind.log")

	logger := NewLoggerWithConfig(cfg)
	logger.Info().Msg("written to file")
	assert.FileExists(t, cfg.FilePath)
}
