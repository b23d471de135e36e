package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanford-rc/acp-go/internal/config"
)

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"login", "logout", "whoami", "creds"} {
		assert.True(t, names[want], "subcommand %s should be registered", want)
	}
}

func TestBuildLogger_FlagsOverrideConfig(t *testing.T) {
	oldVerbose, oldQuiet := flagVerbose, flagQuiet
	t.Cleanup(func() { flagVerbose, flagQuiet = oldVerbose, oldQuiet })

	cfg := config.DefaultConfig()
	cfg.LogLevel = "info"

	flagVerbose, flagQuiet = false, false
	logger := buildLogger(cfg)
	require.True(t, logger.Enabled(t.Context(), slog.LevelInfo))
	assert.False(t, logger.Enabled(t.Context(), slog.LevelDebug))

	flagVerbose = true
	logger = buildLogger(cfg)
	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))

	flagVerbose, flagQuiet = false, true
	logger = buildLogger(cfg)
	assert.False(t, logger.Enabled(t.Context(), slog.LevelWarn))
	assert.True(t, logger.Enabled(t.Context(), slog.LevelError))
}
