// Package config loads the optional peinspect configuration file. The file
// may be YAML or TOML; the extension decides. Every field has a default, so
// a missing file is not an error.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxFileSize = 256 << 20
	DefaultAddress     = "127.0.0.1:8080"
	DefaultReadTimeout = "30s"
	DefaultHistorySize = 100

	MaxWorkers = 64
)

var (
	ErrUnsupportedFormat = errors.New("unsupported config file format")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

type Config struct {
	LogLevel    string `yaml:"log_level" toml:"log_level"`
	LogFormat   string `yaml:"log_format" toml:"log_format"`
	MaxFileSize int64  `yaml:"max_file_size" toml:"max_file_size"`
	Workers     int    `yaml:"workers" toml:"workers"`
	Server      Server `yaml:"server" toml:"server"`
}

type Server struct {
	Address     string `yaml:"address" toml:"address"`
	ReadTimeout string `yaml:"read_timeout" toml:"read_timeout"`
	HistorySize int    `yaml:"history_size" toml:"history_size"`
}

func Default() Config {
	return Config{
		LogLevel:    "info",
		LogFormat:   "pretty",
		MaxFileSize: DefaultMaxFileSize,
		Workers:     min(runtime.NumCPU(), MaxWorkers),
		Server: Server{
			Address:     DefaultAddress,
			ReadTimeout: DefaultReadTimeout,
			HistorySize: DefaultHistorySize,
		},
	}
}

// DefaultPath is <user config dir>/peinspect/config.yaml, or "" when the
// user config dir cannot be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "peinspect", "config.yaml")
}

// Load reads path (DefaultPath when empty) over the defaults. A missing file
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := Decode(path, data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode unmarshals data into cfg using the format implied by name.
func Decode(name string, data []byte, cfg *Config) error {
	var err error
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", name, err)
	}
	return nil
}

// Validate clamps Workers to [1, MaxWorkers] and rejects values that cannot
// be used.
func (c *Config) Validate() error {
	c.Workers = max(1, min(c.Workers, MaxWorkers))

	if c.MaxFileSize <= 0 {
		return fmt.Errorf("%w: max_file_size must be positive, got %d", ErrInvalidConfig, c.MaxFileSize)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "pretty", "json", "text":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.Server.HistorySize <= 0 {
		return fmt.Errorf("%w: server.history_size must be positive, got %d", ErrInvalidConfig, c.Server.HistorySize)
	}
	if _, err := c.Server.Timeout(); err != nil {
		return err
	}
	return nil
}

// Timeout parses ReadTimeout. An empty value means the default.
func (s Server) Timeout() (time.Duration, error) {
	v := s.ReadTimeout
	if v == "" {
		v = DefaultReadTimeout
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: server.read_timeout: %w", ErrInvalidConfig, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: server.read_timeout must be positive", ErrInvalidConfig)
	}
	return d, nil
}
