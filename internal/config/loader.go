package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultDataDir                = "./data"
	defaultListenAddr             = ":8080"
	defaultLogLevel               = "info"
	defaultTelemetryQueueCapacity = 50000
)

// Loader assembles an AppConfig from defaults, an optional YAML file, and
// environment overrides, in that order of increasing precedence (mirroring
// the teacher's ENV > File > Defaults loader).
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a Loader for configPath (may be empty for ENV/defaults only).
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load resolves the final configuration and validates it.
func (l *Loader) Load() (AppConfig, error) {
	cfg := AppConfig{
		DataDir:                defaultDataDir,
		ListenAddr:             defaultListenAddr,
		LogLevel:               defaultLogLevel,
		TelemetryQueueCapacity: defaultTelemetryQueueCapacity,
	}

	if l.configPath != "" {
		fileCfg, err := loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	applyEnvOverrides(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Version = l.version

	if cfg.ZonesFile != "" {
		zones, err := LoadZones(cfg.ZonesFile)
		if err != nil {
			return cfg, fmt.Errorf("load zones file: %w", err)
		}
		cfg.Zones = zones
	}

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// loadFile reads and strictly parses a YAML config file: unknown fields are
// a fatal error, matching the teacher's loadFile discipline of failing fast
// on operator typos rather than silently ignoring them.
func loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, ErrUnsupportedFormat
	}

	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fileCfg); err != nil {
		if err == io.EOF {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, file *FileConfig) {
	if file.DataDir != "" {
		cfg.DataDir = file.DataDir
	}
	if file.ListenAddr != "" {
		cfg.ListenAddr = file.ListenAddr
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.TelemetryQueueCapacity != 0 {
		cfg.TelemetryQueueCapacity = file.TelemetryQueueCapacity
	}
	if file.ZonesFile != "" {
		cfg.ZonesFile = file.ZonesFile
	}
}

// Validate checks structural invariants Load cannot enforce by construction.
func Validate(cfg AppConfig) error {
	if cfg.DataDir == "" {
		return ErrDataDirRequired
	}
	if cfg.TelemetryQueueCapacity <= 0 {
		return ErrInvalidQueueCapacity
	}
	return nil
}
