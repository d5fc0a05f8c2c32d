// Package seed provides the demo fixture fleet and user roster fleetrelayd
// loads on first run, grounded on the teacher's cmd/generate-capability-fixtures
// SSOT-list-of-fixtures convention. Unlike that command, seed never touches
// disk itself — it hands fixture rows to the same VehicleStore/UserStore
// interfaces the coordinator depends on, so seeding and production loading
// go through one code path.
package seed

import (
	"github.com/fleetrelay/fleetrelay/internal/geo"
	"github.com/fleetrelay/fleetrelay/internal/model"
	"github.com/fleetrelay/fleetrelay/internal/statemachine"
)

// DemoVehicles is the SSOT fixture fleet: two vehicles per supported city,
// spanning every model.Kind so an operator can exercise all three city
// policies (spec §4.2) without hand-editing vehicles.csv.
func DemoVehicles() []*model.Vehicle {
	return []*model.Vehicle{
		model.NewVehicle("LON-ES001", model.KindScooter, "London", geo.Point{Lat: 51.5074, Lon: -0.1278}, 88, 21.4, statemachine.Available),
		model.NewVehicle("LON-MP001", model.KindMoped, "London", geo.Point{Lat: 51.5155, Lon: -0.0922}, 64, 19.8, statemachine.Available),
		model.NewVehicle("MIL-BC001", model.KindBicycle, "Milan", geo.Point{Lat: 45.4642, Lon: 9.1900}, 100, 0, statemachine.Available),
		model.NewVehicle("MIL-MP001", model.KindMoped, "Milan", geo.Point{Lat: 45.4668, Lon: 9.1905}, 55, 22.1, statemachine.Available),
		model.NewVehicle("ROM-ES001", model.KindScooter, "Rome", geo.Point{Lat: 41.9028, Lon: 12.4964}, 42, 25.3, statemachine.Available),
		model.NewVehicle("ROM-BC001", model.KindBicycle, "Rome", geo.Point{Lat: 41.8986, Lon: 12.4769}, 100, 0, statemachine.Available),
	}
}

// DemoUsers is the fixture roster seeded alongside DemoVehicles.
func DemoUsers() []model.User {
	return []model.User{
		{ID: "U001", Name: "Ada Lovelace"},
		{ID: "U002", Name: "Grace Hopper"},
		{ID: "U003", Name: "Alan Turing"},
	}
}

// VehicleStore is the narrow persistence surface seed needs, satisfied by
// *store.VehicleStore.
type VehicleStore interface {
	LoadAll() ([]*model.Vehicle, error)
	SaveAll([]*model.Vehicle) error
}

// UserStore is the narrow persistence surface seed needs, satisfied by
// *store.UserStore.
type UserStore interface {
	LoadAll() ([]model.User, error)
	SaveAll([]model.User) error
}

// Apply seeds vehicles and users are empty, and is a no-op for either store
// that already has rows — safe to call unconditionally on every startup so
// a fresh data directory gets a usable demo fleet without clobbering an
// operator's own data on restart.
func Apply(vehicles VehicleStore, users UserStore) error {
	existingVehicles, err := vehicles.LoadAll()
	if err != nil {
		return err
	}
	if len(existingVehicles) == 0 {
		if err := vehicles.SaveAll(DemoVehicles()); err != nil {
			return err
		}
	}

	existingUsers, err := users.LoadAll()
	if err != nil {
		return err
	}
	if len(existingUsers) == 0 {
		if err := users.SaveAll(DemoUsers()); err != nil {
			return err
		}
	}
	return nil
}
