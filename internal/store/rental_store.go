package store

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fleetrelay/fleetrelay/internal/model"
)

var rentalHeader = []string{"id", "userId", "vehicleId", "startTime", "endTime", "active"}

// RentalStore persists rentals to data/rentals.csv.
type RentalStore struct {
	path string
}

// NewRentalStore returns a store backed by the CSV file at path.
func NewRentalStore(path string) *RentalStore {
	return &RentalStore{path: path}
}

// LoadAll reads every rental row from disk.
func (s *RentalStore) LoadAll() ([]*model.Rental, error) {
	_, rows, err := readCSV(s.path)
	if err != nil {
		return nil, err
	}
	rentals := make([]*model.Rental, 0, len(rows))
	for _, row := range rows {
		if len(row) != 6 {
			return nil, fmt.Errorf("malformed rental row: %v", row)
		}
		start, err := time.Parse(time.RFC3339Nano, row[3])
		if err != nil {
			return nil, fmt.Errorf("parsing startTime %q: %w", row[3], err)
		}
		var end *time.Time
		if row[4] != "" {
			t, err := time.Parse(time.RFC3339Nano, row[4])
			if err != nil {
				return nil, fmt.Errorf("parsing endTime %q: %w", row[4], err)
			}
			end = &t
		}
		active, err := strconv.ParseBool(row[5])
		if err != nil {
			return nil, fmt.Errorf("parsing active %q: %w", row[5], err)
		}
		rentals = append(rentals, &model.Rental{
			ID:        row[0],
			UserID:    row[1],
			VehicleID: row[2],
			StartTime: start,
			EndTime:   end,
			Active:    active,
		})
	}
	return rentals, nil
}

// SaveAll atomically rewrites the entire rentals table.
func (s *RentalStore) SaveAll(rentals []*model.Rental) error {
	rows := make([][]string, 0, len(rentals))
	for _, r := range rentals {
		endStr := ""
		if r.EndTime != nil {
			endStr = r.EndTime.UTC().Format(time.RFC3339Nano)
		}
		rows = append(rows, []string{
			r.ID,
			r.UserID,
			r.VehicleID,
			r.StartTime.UTC().Format(time.RFC3339Nano),
			endStr,
			strconv.FormatBool(r.Active),
		})
	}
	return writeCSV(s.path, rentalHeader, rows)
}
