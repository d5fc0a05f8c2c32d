// Package auditindex provides a Badger-backed secondary index over the
// audit log (internal/audit), grounded on the teacher's Badger key-prefix
// conventions (internal/v3/store/badger_store.go). The index is rebuilt
// from the audit chain on every startup and is never authoritative — the
// CSV-backed chain in internal/audit is the source of truth; losing or
// corrupting the index only costs a rebuild, never data.
package auditindex

import (
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/fleetrelay/fleetrelay/internal/audit"
)

const (
	seqPrefix      = "seq:"
	checksumPrefix = "chk:"
)

// Index resolves a sequence id to its position in the in-memory chain and
// a checksum to the sequence id that produced it, without re-scanning the
// full audit log for every lookup.
type Index struct {
	db *badger.DB
}

// Open creates or opens a Badger database at path.
func Open(path string) (*Index, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open audit index: %w", err)
	}
	return &Index{db: db}, nil
}

// Close closes the underlying Badger database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Rebuild wipes the index and repopulates it from entries, in order. Called
// once at startup after audit.Open has loaded the chain into memory.
func (ix *Index) Rebuild(entries []audit.Entry) error {
	if err := ix.db.DropAll(); err != nil {
		return fmt.Errorf("drop audit index: %w", err)
	}
	return ix.db.Update(func(txn *badger.Txn) error {
		for position, e := range entries {
			if err := putEntry(txn, e, position); err != nil {
				return err
			}
		}
		return nil
	})
}

// Put indexes a single newly-appended entry at position (its index in the
// in-memory chain, i.e. len(chain)-1 right after CreateEntry succeeds).
func (ix *Index) Put(e audit.Entry, position int) error {
	return ix.db.Update(func(txn *badger.Txn) error {
		return putEntry(txn, e, position)
	})
}

func putEntry(txn *badger.Txn, e audit.Entry, position int) error {
	posBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(posBuf, uint64(position))
	if err := txn.Set(seqKey(e.SeqID), posBuf); err != nil {
		return err
	}
	seqBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(seqBuf, e.SeqID)
	return txn.Set(checksumKey(e.Checksum), seqBuf)
}

// PositionForSeq returns the in-memory chain position for a sequence id.
func (ix *Index) PositionForSeq(seqID uint64) (int, bool, error) {
	var position int
	found := false
	err := ix.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(seqKey(seqID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			position = int(binary.BigEndian.Uint64(val))
			found = true
			return nil
		})
	})
	if err != nil {
		return 0, false, err
	}
	return position, found, nil
}

// SeqForChecksum returns the sequence id that produced checksum.
func (ix *Index) SeqForChecksum(checksum string) (uint64, bool, error) {
	var seqID uint64
	found := false
	err := ix.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(checksumKey(checksum))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			seqID = binary.BigEndian.Uint64(val)
			found = true
			return nil
		})
	})
	if err != nil {
		return 0, false, err
	}
	return seqID, found, nil
}

func seqKey(seqID uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", seqPrefix, seqID))
}

func checksumKey(checksum string) []byte {
	return []byte(checksumPrefix + checksum)
}
