package config

import (
	"os"
	"strconv"

	"github.com/fleetrelay/fleetrelay/internal/log"
)

// Environment variable names, highest-precedence overlay on top of the
// YAML file (spec §9's loading order notes, mirroring the teacher's
// ENV > File > Defaults precedence).
const (
	envDataDir    = "FLEETRELAY_DATA_DIR"
	envListenAddr = "FLEETRELAY_LISTEN_ADDR"
	envLogLevel   = "FLEETRELAY_LOG_LEVEL"
	envQueueCap   = "FLEETRELAY_TELEMETRY_QUEUE_CAPACITY"
	envZonesFile  = "FLEETRELAY_ZONES_FILE"
)

func envString(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		log.WithComponent("config").Debug().Str("key", key).Msg("using environment override")
		return v
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.WithComponent("config").Warn().Str("key", key).Str("value", v).Msg("invalid integer, using default")
		return defaultValue
	}
	return n
}

// applyEnvOverrides overlays environment variables onto cfg, mutating it in place.
func applyEnvOverrides(cfg *AppConfig) {
	cfg.DataDir = envString(envDataDir, cfg.DataDir)
	cfg.ListenAddr = envString(envListenAddr, cfg.ListenAddr)
	cfg.LogLevel = envString(envLogLevel, cfg.LogLevel)
	cfg.ZonesFile = envString(envZonesFile, cfg.ZonesFile)
	cfg.TelemetryQueueCapacity = envInt(envQueueCap, cfg.TelemetryQueueCapacity)
}
