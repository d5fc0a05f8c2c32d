package policy

import (
	"github.com/fleetrelay/fleetrelay/internal/errs"
	"github.com/fleetrelay/fleetrelay/internal/geo"
	"github.com/fleetrelay/fleetrelay/internal/model"
	"github.com/fleetrelay/fleetrelay/internal/statemachine"
)

// milanCityCenterSurcharge exists for parity with the reference constant
// noted in spec.md §9 ("CITY_CENTER_SURCHARGE") but AfterTrip returns 0
// unconditionally — per the Open Question, the spec treats this as the
// implemented (not necessarily finished) behaviour and follows it as-is.
const milanCityCenterSurcharge = 2.00

// Milan gates moped unlocks on helmet presence and blocks any vehicle from
// entering its restricted zone set (spec §4.2).
type Milan struct {
	RestrictedZones []geo.Zone
}

func (m Milan) BeforeUnlock(v *model.Vehicle, sample model.TelemetrySample, _ *model.Rental) error {
	if v.Kind == model.KindMoped && !sample.HelmetPresent {
		return &errs.PolicyViolation{Reason: "helmet not detected"}
	}
	return lowBattery(v)
}

func (Milan) AfterTrip(_ *model.Rental, _ float64) float64 {
	return 0
}

func (Milan) ValidateTransition(v *model.Vehicle, target statemachine.State) error {
	if target != statemachine.InUse {
		return nil
	}
	if v.Kind == model.KindMoped && !v.HelmetDetected() {
		return &errs.PolicyViolation{Reason: "helmet not detected"}
	}
	return nil
}

func (m Milan) IsAllowed(_ *model.Vehicle, gps geo.Point) error {
	if _, restricted := geo.AnyContains(m.RestrictedZones, gps); restricted {
		return &errs.PolicyViolation{Reason: "vehicle entered a restricted zone"}
	}
	return nil
}

var _ Gate = Milan{}
