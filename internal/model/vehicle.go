// Package model defines the fleet's domain entities: vehicles, rentals,
// payments, users, and telemetry samples.
package model

import (
	"sync"
	"time"

	"github.com/fleetrelay/fleetrelay/internal/geo"
	"github.com/fleetrelay/fleetrelay/internal/statemachine"
)

// Kind identifies a vehicle's physical type. Moped is the only kind that
// carries kind-specific attributes (helmet detection), so the tagged
// variant is expressed as a common struct plus a kind-guarded field rather
// than a type hierarchy — see DESIGN.md's note on spec §9's "Subtype
// behaviour" open question.
type Kind string

const (
	KindBicycle Kind = "bicycle"
	KindScooter Kind = "scooter"
	KindMoped   Kind = "moped"
)

// TelemetrySample is a single reading from a vehicle's sensors.
type TelemetrySample struct {
	Timestamp      time.Time
	GPS            geo.Point
	BatteryPercent int
	TemperatureC   float64
	HelmetPresent  bool
}

// Vehicle is the authoritative, mutable record of one fleet vehicle. Its
// State field is only ever mutated through TransitionTo/ForceState, both of
// which take the internal attribute lock described in spec §5 ("vehicle
// internal state lock"). Callers still need the coordinator's coarser
// per-vehicle mutex for anything that must appear atomic across more than
// one field (e.g. a transition plus a persistence write) — this lock only
// protects the struct's own memory.
type Vehicle struct {
	ID   string
	Kind Kind
	City string

	mu             sync.RWMutex
	location       geo.Point
	batteryPercent int
	temperatureC   float64
	state          statemachine.State
	helmetDetected bool // meaningful only when Kind == KindMoped
}

// NewVehicle constructs a vehicle in the given initial state.
func NewVehicle(id string, kind Kind, city string, loc geo.Point, batteryPercent int, temperatureC float64, state statemachine.State) *Vehicle {
	return &Vehicle{
		ID:             id,
		Kind:           kind,
		City:           city,
		location:       loc,
		batteryPercent: batteryPercent,
		temperatureC:   temperatureC,
		state:          state,
	}
}

// State returns the vehicle's current lifecycle state.
func (v *Vehicle) State() statemachine.State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Location returns the vehicle's last known position.
func (v *Vehicle) Location() geo.Point {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.location
}

// BatteryPercent returns the vehicle's last known battery level.
func (v *Vehicle) BatteryPercent() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.batteryPercent
}

// TemperatureC returns the vehicle's last known temperature reading.
func (v *Vehicle) TemperatureC() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.temperatureC
}

// HelmetDetected reports the moped's last known helmet sensor state. Always
// false for non-moped kinds.
func (v *Vehicle) HelmetDetected() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.helmetDetected
}

// SetHelmetDetected updates the moped helmet sensor state directly (used by
// seeding and admin override, not by the telemetry pipeline).
func (v *Vehicle) SetHelmetDetected(present bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.helmetDetected = present
}

// Snapshot is a lightweight, lock-free copy of a vehicle's attributes,
// returned by ToSnapshot and used by the coordinator's rollback snapshot
// table.
type Snapshot struct {
	Location       geo.Point
	BatteryPercent int
	TemperatureC   float64
	State          statemachine.State
	HelmetDetected bool
}

// ToSnapshot captures the vehicle's current attributes under the internal lock.
func (v *Vehicle) ToSnapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return Snapshot{
		Location:       v.location,
		BatteryPercent: v.batteryPercent,
		TemperatureC:   v.temperatureC,
		State:          v.state,
		HelmetDetected: v.helmetDetected,
	}
}

// ApplyTelemetry updates the vehicle's mutable sensor attributes from a
// telemetry sample under the internal lock (spec §4.5 step 2), and returns
// the location the vehicle had immediately before this update, so the
// telemetry worker can classify distance travelled deterministically.
func (v *Vehicle) ApplyTelemetry(sample TelemetrySample) (previous geo.Point) {
	v.mu.Lock()
	defer v.mu.Unlock()
	previous = v.location
	v.location = sample.GPS
	v.batteryPercent = sample.BatteryPercent
	v.temperatureC = sample.TemperatureC
	if v.Kind == KindMoped {
		v.helmetDetected = sample.HelmetPresent || v.helmetDetected
	}
	return previous
}

// TransitionTo attempts the legal table-guarded transition described in
// spec §4.1. It returns false without mutating state if the pair is illegal.
func (v *Vehicle) TransitionTo(target statemachine.State) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !statemachine.CanTransition(v.state, target) {
		return false
	}
	v.state = target
	return true
}

// ForceState bypasses the transition table (spec §4.1's force_state
// primitive), routing through AVAILABLE when target is not directly
// reachable from the current state. Used only by the coordinator's rollback
// paths; the emergency-lock procedure goes through TransitionTo.
func (v *Vehicle) ForceState(target statemachine.State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	path := statemachine.ForcePath(v.state, target)
	for _, s := range path {
		v.state = s
	}
}

// BuildTelemetrySample constructs a synthetic telemetry sample from the
// vehicle's current fields, used by start() when no live sample is
// available for policy inspection (spec §4.4 start step 2).
func (v *Vehicle) BuildTelemetrySample(at time.Time) TelemetrySample {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return TelemetrySample{
		Timestamp:      at,
		GPS:            v.location,
		BatteryPercent: v.batteryPercent,
		TemperatureC:   v.temperatureC,
		HelmetPresent:  v.helmetDetected,
	}
}
