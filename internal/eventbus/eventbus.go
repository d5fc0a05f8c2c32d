// Package eventbus fans out telemetry events and audit entries to external
// subscribers over Redis pub/sub, grounded on the teacher's go-redis client
// configuration (internal/cache/redis.go) but used for publish/subscribe
// fanout rather than caching.
package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fleetrelay/fleetrelay/internal/audit"
)

// Channel names published to; external subscribers (dashboards, alerting)
// listen on these independently of the coordinator's own reaction table.
const (
	TelemetryChannel = "fleetrelay:telemetry"
	AuditChannel     = "fleetrelay:audit"
)

// TelemetryMessage is the JSON payload published for every terminal
// telemetry event (CRITICAL_TEMPERATURE, CRITICAL_BATTERY, THEFT_ALARM);
// warnings are not published (spec §4.6).
type TelemetryMessage struct {
	VehicleID      string    `json:"vehicle_id"`
	City           string    `json:"city"`
	EventType      string    `json:"event_type"`
	BatteryPercent int       `json:"battery_percent"`
	TemperatureC   float64   `json:"temperature_c"`
	DistanceMeters float64   `json:"distance_meters,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// AuditMessage mirrors one appended audit.Entry.
type AuditMessage struct {
	SeqID     uint64    `json:"seq_id"`
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Payload   string    `json:"payload"`
	Checksum  string    `json:"checksum"`
}

// AuditMessageFromEntry converts a chain entry to its wire representation.
func AuditMessageFromEntry(e audit.Entry) AuditMessage {
	return AuditMessage{
		SeqID:     e.SeqID,
		Timestamp: e.Timestamp,
		EventType: e.EventType,
		Payload:   e.Payload,
		Checksum:  e.Checksum,
	}
}

// Publisher fans out domain events. The coordinator depends on this narrow
// interface, not on Redis directly, so tests can substitute a recording
// fake and production can substitute NoopPublisher when no broker is
// configured.
type Publisher interface {
	PublishTelemetryEvent(ctx context.Context, msg TelemetryMessage) error
	PublishAuditEntry(ctx context.Context, msg AuditMessage) error
	Close() error
}

// NoopPublisher discards every message. It is the default when no Redis
// address is configured, so the coordinator never needs a nil check.
type NoopPublisher struct{}

func (NoopPublisher) PublishTelemetryEvent(context.Context, TelemetryMessage) error { return nil }
func (NoopPublisher) PublishAuditEntry(context.Context, AuditMessage) error         { return nil }
func (NoopPublisher) Close() error                                                 { return nil }

var _ Publisher = NoopPublisher{}

func marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
