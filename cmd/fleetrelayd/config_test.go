package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.DataDir)
	assert.NotEmpty(t, cfg.ListenAddr)
	assert.Positive(t, cfg.TelemetryQueueCapacity)
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"listen_addr: \":9999\"\n"+
			"log_level: debug\n",
	), 0o600))

	cfg, err := loadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_RejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("not: [valid\n"), 0o600))

	_, err := loadConfig(configPath)
	assert.Error(t, err)
}
