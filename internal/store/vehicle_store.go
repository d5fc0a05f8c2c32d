package store

import (
	"fmt"
	"strconv"

	"github.com/fleetrelay/fleetrelay/internal/geo"
	"github.com/fleetrelay/fleetrelay/internal/model"
	"github.com/fleetrelay/fleetrelay/internal/statemachine"
)

var vehicleHeader = []string{"id", "type", "state", "batteryPercent", "temperatureC", "lat", "lon", "city"}

// kindToCSV and csvToKind translate between the model's lower-case Kind
// constants and the capitalized vocabulary spec §6 fixes for vehicles.csv.
func kindToCSV(k model.Kind) (string, error) {
	switch k {
	case model.KindBicycle:
		return "Bicycle", nil
	case model.KindScooter:
		return "ElectricScooter", nil
	case model.KindMoped:
		return "Moped", nil
	default:
		return "", fmt.Errorf("unknown vehicle kind %q", k)
	}
}

func csvToKind(s string) (model.Kind, error) {
	switch s {
	case "Bicycle":
		return model.KindBicycle, nil
	case "ElectricScooter":
		return model.KindScooter, nil
	case "Moped":
		return model.KindMoped, nil
	default:
		return "", fmt.Errorf("unknown vehicle type %q", s)
	}
}

// VehicleStore persists vehicles to data/vehicles.csv. Helmet detection is
// intentionally not part of this schema (spec §6); it is always reset to
// false on load and must be set explicitly by seeding or live telemetry.
type VehicleStore struct {
	path string
}

// NewVehicleStore returns a store backed by the CSV file at path.
func NewVehicleStore(path string) *VehicleStore {
	return &VehicleStore{path: path}
}

// LoadAll reads every vehicle row from disk.
func (s *VehicleStore) LoadAll() ([]*model.Vehicle, error) {
	_, rows, err := readCSV(s.path)
	if err != nil {
		return nil, err
	}
	vehicles := make([]*model.Vehicle, 0, len(rows))
	for _, row := range rows {
		if len(row) != 8 {
			return nil, fmt.Errorf("malformed vehicle row: %v", row)
		}
		kind, err := csvToKind(row[1])
		if err != nil {
			return nil, err
		}
		battery, err := strconv.Atoi(row[3])
		if err != nil {
			return nil, fmt.Errorf("parsing batteryPercent %q: %w", row[3], err)
		}
		temp, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing temperatureC %q: %w", row[4], err)
		}
		lat, err := strconv.ParseFloat(row[5], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing lat %q: %w", row[5], err)
		}
		lon, err := strconv.ParseFloat(row[6], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing lon %q: %w", row[6], err)
		}
		v := model.NewVehicle(row[0], kind, row[7], geo.Point{Lat: lat, Lon: lon}, battery, temp, statemachine.State(row[2]))
		vehicles = append(vehicles, v)
	}
	return vehicles, nil
}

// SaveAll atomically rewrites the entire vehicles table.
func (s *VehicleStore) SaveAll(vehicles []*model.Vehicle) error {
	rows := make([][]string, 0, len(vehicles))
	for _, v := range vehicles {
		row, err := vehicleRow(v)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return writeCSV(s.path, vehicleHeader, rows)
}

func vehicleRow(v *model.Vehicle) ([]string, error) {
	kindStr, err := kindToCSV(v.Kind)
	if err != nil {
		return nil, err
	}
	loc := v.Location()
	return []string{
		v.ID,
		kindStr,
		string(v.State()),
		strconv.Itoa(v.BatteryPercent()),
		strconv.FormatFloat(v.TemperatureC(), 'f', 2, 64),
		strconv.FormatFloat(loc.Lat, 'f', 6, 64),
		strconv.FormatFloat(loc.Lon, 'f', 6, 64),
		v.City,
	}, nil
}
