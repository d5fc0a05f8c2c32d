// Package store implements the persistence adapters the coordinator and
// audit log require: table-oriented CSV stores with load_all / save_all /
// find semantics for entities, and an append-only writer for the audit
// log (spec §6). Saves go through github.com/google/renameio/v2 so a crash
// mid-write never leaves a truncated file in data/ — the only documented
// partial-write recovery story is the audit write-ahead discipline, and
// these atomic renames are what keep the entity stores from needing one of
// their own.
package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/google/renameio/v2"
)

// writeCSV atomically (re)writes path with header followed by rows.
func writeCSV(path string, header []string, rows [][]string) error {
	t, err := renameio.TempFile("", path)
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer t.Cleanup()

	w := csv.NewWriter(t)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header to %s: %w", path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing row to %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return t.CloseAtomicallyReplace()
}

// readCSV reads path and returns its header and data rows. A missing file
// is treated as an empty table (header nil, rows nil, err nil).
func readCSV(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err = r.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading row of %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// appendCSVRow appends a single row to path, creating it with header if it
// does not yet exist, and fsyncs before returning so the append is durable
// before the caller's in-memory commit (spec §4.3 write-ahead discipline).
func appendCSVRow(path string, header []string, row []string) error {
	_, err := os.Stat(path)
	needsHeader := os.IsNotExist(err)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s for append: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needsHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("writing header to %s: %w", path, err)
		}
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("writing row to %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Sync()
}
