package config

import "errors"

// ErrUnsupportedFormat is returned when the config or zones file extension
// is not .yaml/.yml.
var ErrUnsupportedFormat = errors.New("unsupported config format (only YAML is supported)")

// ErrInvalidQueueCapacity is returned when TelemetryQueueCapacity is not positive.
var ErrInvalidQueueCapacity = errors.New("telemetry queue capacity must be positive")

// ErrDataDirRequired is returned when DataDir resolves to the empty string.
var ErrDataDirRequired = errors.New("data_dir is required")
