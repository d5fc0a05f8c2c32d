package policy

import (
	"github.com/fleetrelay/fleetrelay/internal/errs"
	"github.com/fleetrelay/fleetrelay/internal/geo"
	"github.com/fleetrelay/fleetrelay/internal/model"
	"github.com/fleetrelay/fleetrelay/internal/statemachine"
)

// Rome blocks unlock in any restricted zone up front, and separately blocks
// general ZTL entry for every vehicle plus archaeological/pedestrian zone
// entry specifically for scooters (spec §4.2).
type Rome struct {
	ZTLZones            []geo.Zone
	ArchaeologicalZones []geo.Zone
}

func (r Rome) BeforeUnlock(v *model.Vehicle, sample model.TelemetrySample, _ *model.Rental) error {
	if err := lowBattery(v); err != nil {
		return err
	}
	if _, restricted := geo.AnyContains(r.ZTLZones, sample.GPS); restricted {
		return &errs.PolicyViolation{Reason: "vehicle gps already in restricted zone"}
	}
	if _, restricted := geo.AnyContains(r.ArchaeologicalZones, sample.GPS); restricted {
		return &errs.PolicyViolation{Reason: "vehicle gps already in restricted zone"}
	}
	return nil
}

func (Rome) AfterTrip(_ *model.Rental, _ float64) float64 {
	return 0
}

func (Rome) ValidateTransition(_ *model.Vehicle, _ statemachine.State) error {
	return nil
}

func (r Rome) IsAllowed(v *model.Vehicle, gps geo.Point) error {
	if _, restricted := geo.AnyContains(r.ZTLZones, gps); restricted {
		return &errs.PolicyViolation{Reason: "vehicle entered the limited-traffic zone"}
	}
	if v.Kind == model.KindScooter {
		if _, restricted := geo.AnyContains(r.ArchaeologicalZones, gps); restricted {
			return &errs.PolicyViolation{Reason: "scooter entered an archaeological/pedestrian zone"}
		}
	}
	return nil
}

var _ Gate = Rome{}
