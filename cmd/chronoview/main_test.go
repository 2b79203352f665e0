package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aNThiCu/AirsoftChronograph/internal/config"
	"github.com/aNThiCu/AirsoftChronograph/internal/session"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "tui", "simulate"}, names)
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chronoview.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device:\n  endpoint: ws://10.0.0.2/ws\nlog:\n  level: warn\n"), 0o644))

	cfg, err := loadConfig(&rootOptions{
		configPath: path,
		endpoint:   "tcp://127.0.0.1:3333",
		variant:    "poll",
	})
	require.NoError(t, err)
	assert.Equal(t, "tcp://127.0.0.1:3333", cfg.Device.Endpoint)
	assert.Equal(t, session.VariantPoll, cfg.Device.Variant)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_RejectsBadOverride(t *testing.T) {
	t.Setenv(config.EnvVar, "")

	_, err := loadConfig(&rootOptions{endpoint: "http://device"})
	require.Error(t, err)

	_, err = loadConfig(&rootOptions{logLevel: "chatty"})
	require.Error(t, err)
}
