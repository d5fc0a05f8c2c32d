package config

// AppConfig is the fully-resolved runtime configuration, assembled from
// defaults, the optional YAML file, and environment overrides, in that
// order of increasing precedence (spec §6 on the data directory, §4.2 on
// per-city zone tables).
type AppConfig struct {
	Version string

	// DataDir holds the CSV stores and the audit log (spec §6).
	DataDir string

	// ListenAddr is the peripheral HTTP façade's bind address.
	ListenAddr string

	// LogLevel is a zerolog level string ("debug", "info", "warn", "error").
	LogLevel string

	// TelemetryQueueCapacity bounds the telemetry worker's ingress queue
	// (spec §5 backpressure).
	TelemetryQueueCapacity int

	// ZonesFile is the path to the YAML zone table (spec §4.2, §3 Zone).
	// Empty disables file-backed zones and per-city gates with no static
	// entry fall back to the no-op Default policy.
	ZonesFile string

	Zones ZonesConfig
}

// FileConfig mirrors the subset of AppConfig an operator may set via
// config/app.yaml. Unknown fields are rejected at parse time.
type FileConfig struct {
	DataDir                string `yaml:"data_dir"`
	ListenAddr             string `yaml:"listen_addr"`
	LogLevel               string `yaml:"log_level"`
	TelemetryQueueCapacity int    `yaml:"telemetry_queue_capacity"`
	ZonesFile              string `yaml:"zones_file"`
}

// ZonesConfig is the per-city zone geometry parsed from config/zones.yaml
// (spec §3 Zone, §4.2). A city absent from the file gets its gate with no
// zones (see BuildGates).
type ZonesConfig struct {
	London ZoneSet `yaml:"london"`
	Milan  ZoneSet `yaml:"milan"`
	Rome   ZoneSet `yaml:"rome"`
}

// ZoneSet is the raw zone list a single city contributes to its gate.
// Which field each city's policy reads is fixed by spec §4.2: London reads
// CongestionZones (observed only, never a hard block); Milan reads
// RestrictedZones; Rome reads ZTLZones and ArchaeologicalZones.
type ZoneSet struct {
	CongestionZones     []ZoneEntry `yaml:"congestion_zones,omitempty"`
	RestrictedZones     []ZoneEntry `yaml:"restricted_zones,omitempty"`
	ZTLZones            []ZoneEntry `yaml:"ztl_zones,omitempty"`
	ArchaeologicalZones []ZoneEntry `yaml:"archaeological_zones,omitempty"`
}

// ZoneEntry is a single circular geofence as written in YAML (spec §3 Zone).
type ZoneEntry struct {
	ID         string  `yaml:"id"`
	Lat        float64 `yaml:"lat"`
	Lon        float64 `yaml:"lon"`
	RadiusM    float64 `yaml:"radius_m"`
	Restricted bool    `yaml:"restricted"`
}
