package store

import (
	"fmt"

	"github.com/fleetrelay/fleetrelay/internal/model"
)

var userHeader = []string{"id", "name"}

// UserStore persists users to data/users.csv.
type UserStore struct {
	path string
}

// NewUserStore returns a store backed by the CSV file at path.
func NewUserStore(path string) *UserStore {
	return &UserStore{path: path}
}

// LoadAll reads every user row from disk.
func (s *UserStore) LoadAll() ([]model.User, error) {
	_, rows, err := readCSV(s.path)
	if err != nil {
		return nil, err
	}
	users := make([]model.User, 0, len(rows))
	for _, row := range rows {
		if len(row) != 2 {
			return nil, fmt.Errorf("malformed user row: %v", row)
		}
		users = append(users, model.User{ID: row[0], Name: row[1]})
	}
	return users, nil
}

// SaveAll atomically rewrites the entire users table.
func (s *UserStore) SaveAll(users []model.User) error {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{u.ID, u.Name})
	}
	return writeCSV(s.path, userHeader, rows)
}
