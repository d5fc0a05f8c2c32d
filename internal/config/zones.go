package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fleetrelay/fleetrelay/internal/geo"
	"github.com/fleetrelay/fleetrelay/internal/policy"
)

// LoadZones strictly parses a YAML zone table (spec §3 Zone, §4.2).
func LoadZones(path string) (ZonesConfig, error) {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return ZonesConfig{}, ErrUnsupportedFormat
	}

	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied zones path
	if err != nil {
		return ZonesConfig{}, fmt.Errorf("read zones file: %w", err)
	}

	var zones ZonesConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&zones); err != nil {
		if err == io.EOF {
			return ZonesConfig{}, nil
		}
		return ZonesConfig{}, fmt.Errorf("strict zones parse error: %w", err)
	}
	return zones, nil
}

func toZones(entries []ZoneEntry) []geo.Zone {
	out := make([]geo.Zone, 0, len(entries))
	for _, e := range entries {
		out = append(out, geo.Zone{
			ID:         e.ID,
			Center:     geo.Point{Lat: e.Lat, Lon: e.Lon},
			RadiusM:    e.RadiusM,
			Restricted: e.Restricted,
		})
	}
	return out
}

// BuildGates turns a parsed zone table into the concrete city gates the
// registry is populated with at startup and on every hot reload (spec
// §4.2). It always returns gates for London, Milan and Rome; a city the
// table does not mention gets its gate with no zones.
func BuildGates(zones ZonesConfig) map[string]policy.Gate {
	gates := make(map[string]policy.Gate, 3)
	gates["London"] = policy.London{CongestionZones: toZones(zones.London.CongestionZones)}
	gates["Milan"] = policy.Milan{RestrictedZones: toZones(zones.Milan.RestrictedZones)}
	gates["Rome"] = policy.Rome{
		ZTLZones:            toZones(zones.Rome.ZTLZones),
		ArchaeologicalZones: toZones(zones.Rome.ArchaeologicalZones),
	}
	return gates
}
