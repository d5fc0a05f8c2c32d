package coordinator

import (
	"context"
	"fmt"

	"github.com/fleetrelay/fleetrelay/internal/audit"
	"github.com/fleetrelay/fleetrelay/internal/eventbus"
	"github.com/fleetrelay/fleetrelay/internal/log"
	"github.com/fleetrelay/fleetrelay/internal/metrics"
	"github.com/fleetrelay/fleetrelay/internal/model"
	"github.com/fleetrelay/fleetrelay/internal/statemachine"
	"github.com/fleetrelay/fleetrelay/internal/telemetry"
)

// HandleTelemetryEvent satisfies telemetry.EventHandler. It implements the
// event callback reaction table (spec §4.6), executed under the affected
// vehicle's mutex — the telemetry worker calls this directly from its own
// goroutine, which never holds any other vehicle's lock, so taking it here
// is always safe.
func (c *Coordinator) HandleTelemetryEvent(ev telemetry.Event) {
	v := ev.Vehicle
	metrics.IncTelemetryEvent(string(ev.Type))

	// Only terminal classifications (spec §4.5) are published externally —
	// warnings are audited but stay internal to this process.
	switch ev.Type {
	case telemetry.CriticalTemperature, telemetry.CriticalBattery, telemetry.TheftAlarm:
		if err := c.events.PublishTelemetryEvent(context.Background(), eventbus.TelemetryMessage{
			VehicleID:      v.ID,
			City:           v.City,
			EventType:      string(ev.Type),
			BatteryPercent: ev.Sample.BatteryPercent,
			TemperatureC:   ev.Sample.TemperatureC,
			DistanceMeters: ev.DistanceMeters,
			Timestamp:      ev.Sample.Timestamp,
		}); err != nil {
			log.WithVehicle(v.ID).Warn().Err(err).Msg("telemetry event publish failed")
		}
	}

	lock := c.locks.get(v.ID)
	lock.Lock()
	defer lock.Unlock()

	switch ev.Type {
	case telemetry.CriticalTemperature:
		reason := fmt.Sprintf("temperature=%.1f", ev.Sample.TemperatureC)
		c.emergencyLockLocked(v, reason)

	case telemetry.HighTemperatureWarning:
		payload := audit.FormatPayload("vehicle", v.ID, "temperature", fmt.Sprintf("%.1f", ev.Sample.TemperatureC))
		if _, err := c.appendAudit("VEHICLE_THROTTLED", payload); err != nil {
			log.WithVehicle(v.ID).Error().Err(err).Msg("failed to append throttle audit entry")
		}

	case telemetry.CriticalBattery:
		if v.State() == statemachine.InUse {
			c.autoEndOnCriticalBatteryLocked(v)
		} else {
			if v.TransitionTo(statemachine.Maintenance) {
				if err := c.persistVehicles(); err != nil {
					log.WithVehicle(v.ID).Error().Err(err).Msg("failed to persist vehicle entering maintenance")
				}
				payload := audit.FormatPayload("vehicle", v.ID, "battery", fmt.Sprintf("%d", ev.Sample.BatteryPercent))
				if _, err := c.appendAudit("VEHICLE_MAINTENANCE", payload); err != nil {
					log.WithVehicle(v.ID).Error().Err(err).Msg("failed to append maintenance audit entry")
				}
			}
		}

	case telemetry.LowBatteryWarning:
		payload := audit.FormatPayload("vehicle", v.ID, "battery", fmt.Sprintf("%d", ev.Sample.BatteryPercent))
		if _, err := c.appendAudit("LOW_BATTERY_WARNING", payload); err != nil {
			log.WithVehicle(v.ID).Error().Err(err).Msg("failed to append low battery audit entry")
		}

	case telemetry.TheftAlarm:
		reason := fmt.Sprintf("distance=%.1fm", ev.DistanceMeters)
		c.emergencyLockLocked(v, reason)
	}
}

// autoEndOnCriticalBatteryLocked implements the CRITICAL_BATTERY(IN_USE)
// row of spec §4.6's reaction table: attempt to auto-end the active
// rental, audit EMERGENCY_RENTAL_END; on failure, emergency-lock instead.
// Caller already holds v's mutex.
func (c *Coordinator) autoEndOnCriticalBatteryLocked(v *model.Vehicle) {
	rental, ok := c.activeRentalForVehicle(v.ID)
	if !ok {
		c.emergencyLockLocked(v, "critical battery with no active rental on record")
		return
	}

	payment, err := c.completeRental(v, rental)
	if err != nil {
		c.emergencyLockLocked(v, "critical battery, auto-end failed: "+err.Error())
		return
	}

	payload := audit.FormatPayload("vehicle", v.ID, "rental", rental.ID, "payment", payment.ID)
	if _, err := c.appendAudit("EMERGENCY_RENTAL_END", payload); err != nil {
		log.WithVehicle(v.ID).Error().Err(err).Msg("failed to append emergency rental end audit entry")
	}
}
