package store

import (
	"fmt"
	"strconv"

	"github.com/fleetrelay/fleetrelay/internal/model"
)

var paymentHeader = []string{"id", "rentalId", "baseAmount", "surcharges", "total", "description"}

// PaymentStore persists payments to data/payments.csv. Payments are
// immutable once created, so this store only ever appends or rewrites the
// whole table — it never updates a row in place.
type PaymentStore struct {
	path string
}

// NewPaymentStore returns a store backed by the CSV file at path.
func NewPaymentStore(path string) *PaymentStore {
	return &PaymentStore{path: path}
}

// LoadAll reads every payment row from disk.
func (s *PaymentStore) LoadAll() ([]model.Payment, error) {
	_, rows, err := readCSV(s.path)
	if err != nil {
		return nil, err
	}
	payments := make([]model.Payment, 0, len(rows))
	for _, row := range rows {
		if len(row) != 6 {
			return nil, fmt.Errorf("malformed payment row: %v", row)
		}
		base, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing baseAmount %q: %w", row[2], err)
		}
		surcharges, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing surcharges %q: %w", row[3], err)
		}
		total, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing total %q: %w", row[4], err)
		}
		payments = append(payments, model.Payment{
			ID:          row[0],
			RentalID:    row[1],
			BaseAmount:  base,
			Surcharges:  surcharges,
			Total:       total,
			Description: row[5],
		})
	}
	return payments, nil
}

// Append writes one payment to the end of the table.
func (s *PaymentStore) Append(p model.Payment) error {
	row := []string{
		p.ID,
		p.RentalID,
		strconv.FormatFloat(p.BaseAmount, 'f', 2, 64),
		strconv.FormatFloat(p.Surcharges, 'f', 2, 64),
		strconv.FormatFloat(p.Total, 'f', 2, 64),
		p.Description,
	}
	return appendCSVRow(s.path, paymentHeader, row)
}

// SaveAll atomically rewrites the entire payments table.
func (s *PaymentStore) SaveAll(payments []model.Payment) error {
	rows := make([][]string, 0, len(payments))
	for _, p := range payments {
		rows = append(rows, []string{
			p.ID,
			p.RentalID,
			strconv.FormatFloat(p.BaseAmount, 'f', 2, 64),
			strconv.FormatFloat(p.Surcharges, 'f', 2, 64),
			strconv.FormatFloat(p.Total, 'f', 2, 64),
			p.Description,
		})
	}
	return writeCSV(s.path, paymentHeader, rows)
}
