package policy

import (
	"github.com/fleetrelay/fleetrelay/internal/geo"
	"github.com/fleetrelay/fleetrelay/internal/model"
	"github.com/fleetrelay/fleetrelay/internal/statemachine"
)

// londonCongestionCharge is fixed per spec.md §9's Open Question: whether
// trip duration should drive the fare is unresolved, and the constant
// fixed fare is treated as authoritative.
const londonCongestionCharge = 3.50

// London applies the congestion-charge surcharge unconditionally at trip
// end and never blocks on gps zone presence — it is observed, not a hard
// block (spec §4.2).
type London struct {
	CongestionZones []geo.Zone
}

func (London) BeforeUnlock(v *model.Vehicle, _ model.TelemetrySample, _ *model.Rental) error {
	return lowBattery(v)
}

func (London) AfterTrip(_ *model.Rental, _ float64) float64 {
	return londonCongestionCharge
}

func (London) ValidateTransition(v *model.Vehicle, target statemachine.State) error {
	if target == statemachine.InUse {
		return lowBattery(v)
	}
	return nil
}

func (l London) IsAllowed(_ *model.Vehicle, _ geo.Point) error {
	return nil
}

var _ Gate = London{}
