// Package audit implements the checksum-chained, write-ahead-persisted
// audit log every coordinator operation appends to (spec §4.3). Each entry
// commits to durable storage before it is visible in memory: if persistence
// fails the append is refused outright and the in-memory chain is left
// exactly as it was, so a caller can never observe a checksum the log
// cannot also produce from disk.
package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/fleetrelay/fleetrelay/internal/errs"
	"github.com/fleetrelay/fleetrelay/internal/log"
)

// genesisChecksum is the fixed previous-checksum value for the first entry
// in the chain (spec §4.3).
const genesisChecksum = "0000000000000000"

// Entry is one row of the audit trail.
type Entry struct {
	SeqID        uint64
	Timestamp    time.Time
	EventType    string
	Payload      string
	PrevChecksum string
	Checksum     string
}

// Store persists entries append-only and can replay them on startup. The
// CSV-backed implementation lives in internal/store.
type Store interface {
	Append(Entry) error
	LoadAll() ([]Entry, error)
}

// Log is the in-memory, checksum-chained audit trail. It is safe for
// concurrent use; every append and read takes the same mutex described in
// spec §5 as the "audit log mutex".
type Log struct {
	mu      sync.Mutex
	store   Store
	entries []Entry
	nextSeq uint64
}

// Open loads any existing entries from store and resumes the chain from
// there. An empty store starts a fresh chain at seq 1.
func Open(store Store) (*Log, error) {
	existing, err := store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("loading audit log: %w", err)
	}
	l := &Log{store: store, entries: existing, nextSeq: 1}
	if n := len(existing); n > 0 {
		l.nextSeq = existing[n-1].SeqID + 1
	}
	return l, nil
}

// hash implements the djb2-variant fold specified in spec §4.3: starting
// from 5381, fold each byte of the canonical entry representation with
// hash <- ((hash << 5) + hash) + byte, then take the absolute value and
// render as lower-case, zero-padded hex.
func hash(seqID uint64, timestamp time.Time, eventType, payload, prevChecksum string) string {
	canonical := fmt.Sprintf("%d|%s|%s|%s|%s", seqID, timestamp.UTC().Format(time.RFC3339Nano), eventType, payload, prevChecksum)

	h := int64(5381)
	for i := 0; i < len(canonical); i++ {
		h = (h << 5) + h + int64(canonical[i])
	}
	if h < 0 {
		h = -h
	}
	return fmt.Sprintf("%016x", uint64(h))
}

// CreateEntry appends a new entry chained to the current tail and persists
// it before returning. On persistence failure the chain is left untouched
// and the call returns errs.ErrAuditWriteFailure.
func (l *Log) CreateEntry(eventType, payload string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := genesisChecksum
	if n := len(l.entries); n > 0 {
		prev = l.entries[n-1].Checksum
	}

	entry := Entry{
		SeqID:        l.nextSeq,
		Timestamp:    time.Now().UTC(),
		EventType:    eventType,
		Payload:      payload,
		PrevChecksum: prev,
	}
	entry.Checksum = hash(entry.SeqID, entry.Timestamp, entry.EventType, entry.Payload, entry.PrevChecksum)

	if err := l.store.Append(entry); err != nil {
		auditLog := log.AuditComponent()
		auditLog.Error().Err(err).Uint64("seq_id", entry.SeqID).Str("event_type", eventType).Msg("audit append failed")
		return Entry{}, fmt.Errorf("%w: %v", errs.ErrAuditWriteFailure, err)
	}

	l.entries = append(l.entries, entry)
	l.nextSeq++
	return entry, nil
}

// VerifyChain re-walks every entry checking that each checksum is both
// internally consistent and correctly chained to its predecessor. It
// returns the first broken seq id encountered, or ok=true if the whole
// chain is intact.
func (l *Log) VerifyChain() (ok bool, brokenSeqID uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	expectedPrev := genesisChecksum
	for _, e := range l.entries {
		if e.PrevChecksum != expectedPrev {
			return false, e.SeqID
		}
		want := hash(e.SeqID, e.Timestamp, e.EventType, e.Payload, e.PrevChecksum)
		if want != e.Checksum {
			return false, e.SeqID
		}
		expectedPrev = e.Checksum
	}
	return true, 0
}

// Entries returns a copy of the full in-memory chain, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries currently in the chain.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
