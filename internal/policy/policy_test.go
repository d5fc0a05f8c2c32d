package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetrelay/fleetrelay/internal/geo"
	"github.com/fleetrelay/fleetrelay/internal/model"
	"github.com/fleetrelay/fleetrelay/internal/statemachine"
)

var testTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func scooter(battery int, state statemachine.State) *model.Vehicle {
	return model.NewVehicle("V1", model.KindScooter, "London", geo.Point{}, battery, 20, state)
}

func moped(battery int, state statemachine.State, helmet bool) *model.Vehicle {
	v := model.NewVehicle("M1", model.KindMoped, "Milan", geo.Point{}, battery, 20, state)
	v.SetHelmetDetected(helmet)
	return v
}

func TestLondon_LowBatteryBlocksUnlock(t *testing.T) {
	l := London{}
	v := scooter(10, statemachine.Available)
	err := l.BeforeUnlock(v, v.BuildTelemetrySample(testTime), nil)
	require.Error(t, err)
	_, ok := AsViolation(err)
	assert.True(t, ok)
}

func TestLondon_AfterTripFixedCharge(t *testing.T) {
	l := London{}
	assert.Equal(t, londonCongestionCharge, l.AfterTrip(nil, 6.00))
}

func TestMilan_HelmetGate(t *testing.T) {
	m := Milan{}
	v := moped(90, statemachine.Reserved, false)
	err := m.BeforeUnlock(v, v.BuildTelemetrySample(testTime), nil)
	require.Error(t, err)
	pv, ok := AsViolation(err)
	require.True(t, ok)
	assert.Contains(t, pv.Reason, "helmet")

	v.SetHelmetDetected(true)
	err = m.BeforeUnlock(v, v.BuildTelemetrySample(testTime), nil)
	assert.NoError(t, err)
}

func TestMilan_ValidateTransitionRequiresHelmetForInUse(t *testing.T) {
	m := Milan{}
	v := moped(90, statemachine.Reserved, false)
	err := m.ValidateTransition(v, statemachine.InUse)
	require.Error(t, err)

	v.SetHelmetDetected(true)
	assert.NoError(t, m.ValidateTransition(v, statemachine.InUse))
}

func TestMilan_AfterTripAlwaysZero(t *testing.T) {
	m := Milan{}
	assert.Equal(t, 0.0, m.AfterTrip(nil, 6.00))
}

func TestMilan_RestrictedZoneBlocksGPS(t *testing.T) {
	zone := geo.Zone{ID: "duomo", Center: geo.Point{Lat: 45.4641, Lon: 9.1919}, RadiusM: 300, Restricted: true}
	m := Milan{RestrictedZones: []geo.Zone{zone}}
	v := scooter(90, statemachine.InUse)
	err := m.IsAllowed(v, geo.Point{Lat: 45.4641, Lon: 9.1919})
	require.Error(t, err)
	assert.NoError(t, m.IsAllowed(v, geo.Point{Lat: 45.9, Lon: 9.5}))
}

func TestRome_BeforeUnlockRejectsRestrictedGPS(t *testing.T) {
	ztl := geo.Zone{ID: "centro", Center: geo.Point{Lat: 41.8902, Lon: 12.4922}, RadiusM: 500, Restricted: true}
	r := Rome{ZTLZones: []geo.Zone{ztl}}
	v := scooter(90, statemachine.Reserved)
	sample := v.BuildTelemetrySample(testTime)
	sample.GPS = geo.Point{Lat: 41.8902, Lon: 12.4922}
	err := r.BeforeUnlock(v, sample, nil)
	require.Error(t, err)
}

func TestRome_ArchaeologicalZoneBlocksScootersOnly(t *testing.T) {
	arch := geo.Zone{ID: "forum", Center: geo.Point{Lat: 41.8925, Lon: 12.4853}, RadiusM: 400, Restricted: true}
	r := Rome{ArchaeologicalZones: []geo.Zone{arch}}
	s := scooter(90, statemachine.InUse)
	err := r.IsAllowed(s, geo.Point{Lat: 41.8925, Lon: 12.4853})
	require.Error(t, err)

	b := model.NewVehicle("B1", model.KindBicycle, "Rome", geo.Point{}, 90, 20, statemachine.InUse)
	assert.NoError(t, r.IsAllowed(b, geo.Point{Lat: 41.8925, Lon: 12.4853}))
}

func TestRegistry_FallsBackToDefault(t *testing.T) {
	reg := NewRegistry(map[string]Gate{"London": London{}})
	_, ok := reg.For("London").(London)
	assert.True(t, ok)
	_, ok = reg.For("Berlin").(Default)
	assert.True(t, ok)
}
