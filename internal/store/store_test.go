package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetrelay/fleetrelay/internal/geo"
	"github.com/fleetrelay/fleetrelay/internal/model"
	"github.com/fleetrelay/fleetrelay/internal/statemachine"
	"github.com/fleetrelay/fleetrelay/internal/store"
)

func testTime() time.Time {
	return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
}

func TestVehicleStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vehicles.csv")
	s := store.NewVehicleStore(path)

	v1 := model.NewVehicle("V1", model.KindScooter, "London", geo.Point{Lat: 51.5, Lon: -0.1}, 80, 21.5, statemachine.Available)
	v2 := model.NewVehicle("M1", model.KindMoped, "Milan", geo.Point{Lat: 45.46, Lon: 9.19}, 60, 22.0, statemachine.InUse)

	require.NoError(t, s.SaveAll([]*model.Vehicle{v1, v2}))

	loaded, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "V1", loaded[0].ID)
	assert.Equal(t, model.KindScooter, loaded[0].Kind)
	assert.Equal(t, statemachine.Available, loaded[0].State())
	assert.Equal(t, 80, loaded[0].BatteryPercent())
	assert.InDelta(t, 51.5, loaded[0].Location().Lat, 1e-6)

	assert.Equal(t, model.KindMoped, loaded[1].Kind)
	assert.False(t, loaded[1].HelmetDetected(), "helmet state is not part of the CSV schema and must default false")
}

func TestRentalStore_RoundTripWithOpenAndClosedRentals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rentals.csv")
	s := store.NewRentalStore(path)

	open := &model.Rental{ID: "R1", UserID: "U1", VehicleID: "V1", StartTime: testTime(), Active: true}
	closed := &model.Rental{ID: "R2", UserID: "U2", VehicleID: "V2", StartTime: testTime(), Active: false}
	closed.End(testTime())

	require.NoError(t, s.SaveAll([]*model.Rental{open, closed}))

	loaded, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.True(t, loaded[0].Active)
	assert.Nil(t, loaded[0].EndTime)

	assert.False(t, loaded[1].Active)
	require.NotNil(t, loaded[1].EndTime)
}

func TestPaymentStore_AppendThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.csv")
	s := store.NewPaymentStore(path)

	p := model.NewPayment("P1", "R1", 6.00, 3.50, "london trip")
	require.NoError(t, s.Append(p))

	loaded, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 9.50, loaded[0].Total)
}

func TestUserStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.csv")
	s := store.NewUserStore(path)

	require.NoError(t, s.SaveAll([]model.User{{ID: "U1", Name: "Ada"}}))

	loaded, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Ada", loaded[0].Name)
}

func TestVehicleStore_LoadAll_MissingFileIsEmpty(t *testing.T) {
	s := store.NewVehicleStore(filepath.Join(t.TempDir(), "does-not-exist.csv"))
	loaded, err := s.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
