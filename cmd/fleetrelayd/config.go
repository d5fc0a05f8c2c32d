package main

import (
	"os"
	"path/filepath"

	"github.com/fleetrelay/fleetrelay/internal/config"
	"github.com/fleetrelay/fleetrelay/internal/version"
)

// defaultZonesFile is used when neither -config nor the environment names a
// zones file but the repo-local config/zones.yaml exists — keeps the
// zero-flags demo experience working out of the checkout.
const defaultZonesFile = "config/zones.yaml"

func loadConfig(configPath string) (config.AppConfig, error) {
	loader := config.NewLoader(configPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		return config.AppConfig{}, err
	}
	if cfg.ZonesFile == "" {
		if _, statErr := os.Stat(defaultZonesFile); statErr == nil {
			abs, absErr := filepath.Abs(defaultZonesFile)
			if absErr == nil {
				cfg.ZonesFile = abs
				zones, zonesErr := config.LoadZones(cfg.ZonesFile)
				if zonesErr != nil {
					return config.AppConfig{}, zonesErr
				}
				cfg.Zones = zones
			}
		}
	}
	return cfg, nil
}
