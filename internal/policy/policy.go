// Package policy implements the per-city regulatory gates the coordinator
// consults at unlock, state transition, trip end, and gps check time
// (spec §4.2).
package policy

import (
	"github.com/fleetrelay/fleetrelay/internal/errs"
	"github.com/fleetrelay/fleetrelay/internal/geo"
	"github.com/fleetrelay/fleetrelay/internal/model"
	"github.com/fleetrelay/fleetrelay/internal/statemachine"
)

// minBatteryForUnlock is the floor shared by every concrete city policy's
// before_unlock / validate_transition(IN_USE) gate (spec §4.2).
const minBatteryForUnlock = 15

// Gate is the capability set every city policy exposes, including the
// default no-op (spec §4.2).
type Gate interface {
	// BeforeUnlock fails with *errs.PolicyViolation to block an unlock.
	BeforeUnlock(v *model.Vehicle, sample model.TelemetrySample, rental *model.Rental) error
	// AfterTrip returns the non-negative surcharge to add to the base fare.
	AfterTrip(rental *model.Rental, baseAmount float64) float64
	// ValidateTransition fails with *errs.PolicyViolation to block target.
	ValidateTransition(v *model.Vehicle, target statemachine.State) error
	// IsAllowed fails with *errs.PolicyViolation when gps is not permitted.
	IsAllowed(v *model.Vehicle, gps geo.Point) error
}

// Default is the no-op policy applied to any city without a concrete gate.
type Default struct{}

func (Default) BeforeUnlock(*model.Vehicle, model.TelemetrySample, *model.Rental) error { return nil }
func (Default) AfterTrip(*model.Rental, float64) float64                               { return 0 }
func (Default) ValidateTransition(*model.Vehicle, statemachine.State) error            { return nil }
func (Default) IsAllowed(*model.Vehicle, geo.Point) error                              { return nil }

func lowBattery(v *model.Vehicle) error {
	if v.BatteryPercent() < minBatteryForUnlock {
		return &errs.PolicyViolation{Reason: "battery below minimum unlock threshold"}
	}
	return nil
}

// AsViolation reports whether err is a policy violation and returns it.
func AsViolation(err error) (*errs.PolicyViolation, bool) {
	return errs.AsPolicyViolation(err)
}
