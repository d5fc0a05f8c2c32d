// Package report maintains a SQLite read-model mirror of fleet state for
// status queries, grounded on the teacher's modernc.org/sqlite connection
// setup (internal/persistence/sqlite/config.go) and its per-module store
// pattern (internal/pipeline/resume/sqlite_store.go). The CSV stores in
// internal/store remain authoritative; this package is a disposable,
// rebuildable projection optimized for read queries the coordinator's own
// in-memory maps aren't meant to serve concurrently under a reporting load.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fleetrelay/fleetrelay/internal/model"
)

const schemaVersion = 1

// Config mirrors the teacher's SQLite connection configuration.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultConfig returns sane defaults for a single-process demo workload.
func DefaultConfig() Config {
	return Config{BusyTimeout: 5 * time.Second, MaxOpenConns: 4}
}

// Open opens dbPath with the mandatory WAL/busy_timeout pragmas and
// migrates the schema.
func Open(dbPath string, cfg Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		dbPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("report: open failed: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("report: ping failed: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("report: migration failed: %w", err)
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	var current int
	if err := db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS vehicles (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		city TEXT NOT NULL,
		state TEXT NOT NULL,
		battery_percent INTEGER NOT NULL,
		temperature_c REAL NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_vehicles_city ON vehicles(city);
	CREATE INDEX IF NOT EXISTS idx_vehicles_state ON vehicles(state);

	CREATE TABLE IF NOT EXISTS rentals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		vehicle_id TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT,
		active BOOLEAN NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rentals_vehicle ON rentals(vehicle_id);
	CREATE INDEX IF NOT EXISTS idx_rentals_active ON rentals(active);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Store mirrors coordinator state into SQLite for status queries.
type Store struct {
	db *sql.DB
}

// NewStore wraps an already-opened, migrated *sql.DB.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// RefreshVehicles replaces the vehicles mirror with a fresh snapshot. Called
// periodically by the reporting loop, never by the transactional path.
func (s *Store) RefreshVehicles(ctx context.Context, vehicles []*model.Vehicle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM vehicles"); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vehicles (id, kind, city, state, battery_percent, temperature_c, lat, lon, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, v := range vehicles {
		loc := v.Location()
		if _, err := stmt.ExecContext(ctx, v.ID, string(v.Kind), v.City, string(v.State()),
			v.BatteryPercent(), v.TemperatureC(), loc.Lat, loc.Lon, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RefreshRentals replaces the rentals mirror with a fresh snapshot.
func (s *Store) RefreshRentals(ctx context.Context, rentals []*model.Rental) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM rentals"); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rentals (id, user_id, vehicle_id, start_time, end_time, active)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rentals {
		var endTime sql.NullString
		if r.EndTime != nil {
			endTime = sql.NullString{String: r.EndTime.Format(time.RFC3339), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.UserID, r.VehicleID,
			r.StartTime.Format(time.RFC3339), endTime, r.Active); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// FleetStatusByCity is one row of the fleet status report: a city/state pair
// and how many vehicles currently occupy it (spec §6's fleet status intent,
// extended with a city breakdown the CSV-only coordinator has no cheap way
// to compute without a full scan per request).
type FleetStatusByCity struct {
	City  string
	State string
	Count int
}

// FleetStatus aggregates the vehicle mirror by city and state.
func (s *Store) FleetStatus(ctx context.Context) ([]FleetStatusByCity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT city, state, COUNT(*) FROM vehicles
		GROUP BY city, state
		ORDER BY city, state
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []FleetStatusByCity
	for rows.Next() {
		var row FleetStatusByCity
		if err := rows.Scan(&row.City, &row.State, &row.Count); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ActiveRentalCount returns the number of rentals currently marked active.
func (s *Store) ActiveRentalCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rentals WHERE active = 1").Scan(&n)
	return n, err
}

// VehicleReportRow is one denormalised row of the fleet report: a vehicle
// joined with its currently active rental, if any.
type VehicleReportRow struct {
	VehicleID      string `json:"vehicle_id"`
	Kind           string `json:"kind"`
	City           string `json:"city"`
	State          string `json:"state"`
	BatteryPercent int    `json:"battery_percent"`
	ActiveRentalID string `json:"active_rental_id"` // empty when the vehicle has no active rental
}

// VehicleReportRows returns the full per-vehicle report, joining each
// vehicle against its active rental. Backs the GET /fleet/status façade
// endpoint.
func (s *Store) VehicleReportRows(ctx context.Context) ([]VehicleReportRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.kind, v.city, v.state, v.battery_percent, COALESCE(r.id, '')
		FROM vehicles v
		LEFT JOIN rentals r ON r.vehicle_id = v.id AND r.active = 1
		ORDER BY v.city, v.id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []VehicleReportRow
	for rows.Next() {
		var row VehicleReportRow
		if err := rows.Scan(&row.VehicleID, &row.Kind, &row.City, &row.State, &row.BatteryPercent, &row.ActiveRentalID); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
