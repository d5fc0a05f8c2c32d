package store

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fleetrelay/fleetrelay/internal/audit"
)

var auditHeader = []string{"seqId", "timestamp", "eventType", "payload", "prevChecksum", "checksum"}

// AuditStore persists audit.Entry rows to an append-only CSV file at path.
// It satisfies audit.Store.
type AuditStore struct {
	path string
}

// NewAuditStore returns a store backed by the CSV file at path.
func NewAuditStore(path string) *AuditStore {
	return &AuditStore{path: path}
}

// Append writes one row to the end of the file, fsyncing before returning
// (spec §4.3's write-ahead discipline: this must succeed before the caller
// commits the entry to the in-memory chain).
func (s *AuditStore) Append(e audit.Entry) error {
	row := []string{
		strconv.FormatUint(e.SeqID, 10),
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.EventType,
		e.Payload,
		e.PrevChecksum,
		e.Checksum,
	}
	return appendCSVRow(s.path, auditHeader, row)
}

// LoadAll replays every entry previously committed to the file, in order.
func (s *AuditStore) LoadAll() ([]audit.Entry, error) {
	_, rows, err := readCSV(s.path)
	if err != nil {
		return nil, err
	}
	entries := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		if len(row) != 6 {
			return nil, fmt.Errorf("malformed audit row: %v", row)
		}
		seqID, err := strconv.ParseUint(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing seq id %q: %w", row[0], err)
		}
		ts, err := time.Parse(time.RFC3339Nano, row[1])
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp %q: %w", row[1], err)
		}
		entries = append(entries, audit.Entry{
			SeqID:        seqID,
			Timestamp:    ts,
			EventType:    row[2],
			Payload:      row[3],
			PrevChecksum: row[4],
			Checksum:     row[5],
		})
	}
	return entries, nil
}
