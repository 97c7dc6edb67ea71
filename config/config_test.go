package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.yaml", `
log_level: debug
log_format: json
max_file_size: 1048576
workers: 4
server:
  address: 127.0.0.1:9000
  read_timeout: 5s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, int64(1<<20), cfg.MaxFileSize)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.Equal(t, DefaultHistorySize, cfg.Server.HistorySize, "unset keys keep their default")

	d, err := cfg.Server.Timeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)
}

func TestLoad_TOML(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.toml", `
log_format = "text"
workers = 1000

[server]
history_size = 7
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, MaxWorkers, cfg.Workers)
	assert.Equal(t, 7, cfg.Server.HistorySize)
	assert.Equal(t, DefaultAddress, cfg.Server.Address)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		file   string
		body   string
		target error
	}{
		{name: "unknown extension", file: "config.ini", body: "x=1", target: ErrUnsupportedFormat},
		{name: "negative size", file: "c.yaml", body: "max_file_size: -1", target: ErrInvalidConfig},
		{name: "bad log format", file: "c.yml", body: "log_format: xml", target: ErrInvalidConfig},
		{name: "bad timeout", file: "c.toml", body: "[server]\nread_timeout = \"soon\"", target: ErrInvalidConfig},
		{name: "zero history", file: "c.yaml", body: "server:\n  history_size: 0", target: ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(writeFile(t, tt.file, tt.body))
			assert.ErrorIs(t, err, tt.target)
		})
	}

	_, err := Load(writeFile(t, "broken.yaml", "workers: [1, 2"))
	assert.Error(t, err)
}

func TestValidate_ClampsWorkers(t *testing.T) {
	t.Parallel()

	for in, want := range map[int]int{-3: 1, 0: 1, 1: 1, 8: 8, 64: 64, 65: 64} {
		cfg := Default()
		cfg.Workers = in
		require.NoError(t, cfg.Validate())
		assert.Equal(t, want, cfg.Workers, "workers=%d", in)
	}
}
