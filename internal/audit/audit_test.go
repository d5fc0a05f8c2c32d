package audit_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetrelay/fleetrelay/internal/audit"
	"github.com/fleetrelay/fleetrelay/internal/store"
)

// failingStore always refuses Append, to exercise the write-ahead
// discipline: a failed persist must never touch the in-memory chain.
type failingStore struct{}

func (failingStore) Append(audit.Entry) error       { return assert.AnError }
func (failingStore) LoadAll() ([]audit.Entry, error) { return nil, nil }

func TestCreateEntry_ChainsFromGenesis(t *testing.T) {
	s := store.NewAuditStore(filepath.Join(t.TempDir(), "audit_log.csv"))
	l, err := audit.Open(s)
	require.NoError(t, err)

	first, err := l.CreateEntry("RESERVE", `{"vehicle_id":"V1"}`)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.SeqID)
	assert.Equal(t, "0000000000000000", first.PrevChecksum)
	assert.Len(t, first.Checksum, 16)

	second, err := l.CreateEntry("START", `{"vehicle_id":"V1"}`)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.SeqID)
	assert.Equal(t, first.Checksum, second.PrevChecksum)

	ok, broken := l.VerifyChain()
	assert.True(t, ok)
	assert.Zero(t, broken)
}

func TestCreateEntry_FailedPersistLeavesChainUntouched(t *testing.T) {
	l, err := audit.Open(failingStore{})
	require.NoError(t, err)

	_, err = l.CreateEntry("RESERVE", `{}`)
	require.Error(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestOpen_ResumesSequenceFromExistingLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit_log.csv")
	s := store.NewAuditStore(path)

	l, err := audit.Open(s)
	require.NoError(t, err)
	_, err = l.CreateEntry("RESERVE", `{}`)
	require.NoError(t, err)
	_, err = l.CreateEntry("START", `{}`)
	require.NoError(t, err)

	reopened, err := audit.Open(store.NewAuditStore(path))
	require.NoError(t, err)
	require.Equal(t, 2, reopened.Len())

	third, err := reopened.CreateEntry("END", `{}`)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), third.SeqID)

	ok, _ := reopened.VerifyChain()
	assert.True(t, ok)
}

func TestVerifyChain_DetectsTampering(t *testing.T) {
	s := store.NewAuditStore(filepath.Join(t.TempDir(), "audit_log.csv"))
	l, err := audit.Open(s)
	require.NoError(t, err)

	_, err = l.CreateEntry("RESERVE", `{}`)
	require.NoError(t, err)
	_, err = l.CreateEntry("START", `{}`)
	require.NoError(t, err)

	entries := l.Entries()
	entries[0].Payload = "tampered"
	tamperedPrev := entries[0].Checksum

	rebuilt, err := audit.Open(&staticStore{entries: entries})
	require.NoError(t, err)
	ok, brokenSeq := rebuilt.VerifyChain()
	assert.False(t, ok)
	assert.Equal(t, entries[0].SeqID, brokenSeq)
	_ = tamperedPrev
}

// staticStore replays a fixed, possibly tampered-with set of entries.
type staticStore struct {
	entries []audit.Entry
}

func (s *staticStore) Append(e audit.Entry) error {
	s.entries = append(s.entries, e)
	return nil
}

func (s *staticStore) LoadAll() ([]audit.Entry, error) {
	return s.entries, nil
}
