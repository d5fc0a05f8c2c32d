package auditindex_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleetrelay/fleetrelay/internal/audit"
	"github.com/fleetrelay/fleetrelay/internal/auditindex"
)

func entry(seq uint64, checksum string) audit.Entry {
	return audit.Entry{
		SeqID:     seq,
		Timestamp: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		EventType: "VEHICLE_RESERVED",
		Payload:   "vehicle=V1",
		Checksum:  checksum,
	}
}

func TestIndex_RebuildThenLookup(t *testing.T) {
	ix, err := auditindex.Open(filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })

	entries := []audit.Entry{entry(0, "aaa"), entry(1, "bbb"), entry(2, "ccc")}
	require.NoError(t, ix.Rebuild(entries))

	pos, ok, err := ix.PositionForSeq(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, pos)

	seq, ok, err := ix.SeqForChecksum("ccc")
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 2, seq)
}

func TestIndex_LookupMissingKeyReturnsNotFound(t *testing.T) {
	ix, err := auditindex.Open(filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })

	_, ok, err := ix.PositionForSeq(999)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = ix.SeqForChecksum("nonexistent")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIndex_PutAddsIncrementally(t *testing.T) {
	ix, err := auditindex.Open(filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })

	require.NoError(t, ix.Rebuild([]audit.Entry{entry(0, "aaa")}))
	require.NoError(t, ix.Put(entry(1, "bbb"), 1))

	pos, ok, err := ix.PositionForSeq(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, pos)
}

func TestIndex_RebuildClearsStaleEntries(t *testing.T) {
	ix, err := auditindex.Open(filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })

	require.NoError(t, ix.Rebuild([]audit.Entry{entry(0, "aaa"), entry(1, "bbb")}))
	require.NoError(t, ix.Rebuild([]audit.Entry{entry(0, "aaa")}))

	_, ok, err := ix.PositionForSeq(1)
	require.NoError(t, err)
	require.False(t, ok)
}
