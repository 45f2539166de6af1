package banstore

import (
	"net/netip"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkeye/voipcore/internal/ban"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bans.db")
	now := time.Unix(1_700_000_000, 0)

	s, err := Open(path)
	require.NoError(t, err)
	s.Now = func() time.Time { return now }

	id := ban.Identity{Name: "mallory", Hash: "deadbeef", Addr: netip.MustParseAddr("198.51.100.4")}
	require.NoError(t, s.RecordBan(id, "flood", time.Hour))
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.RecordBan(id, "", 0), ErrClosed)

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	s.Now = func() time.Time { return now.Add(time.Minute) }

	assert.True(t, s.IsBanned(ban.Identity{Addr: netip.MustParseAddr("198.51.100.4")}))
	assert.True(t, s.IsBanned(ban.Identity{Hash: "DEADBEEF"}))
	assert.True(t, s.IsBanned(ban.Identity{Name: "mallory", Addr: netip.MustParseAddr("192.0.2.1")}))
	assert.False(t, s.IsBanned(ban.Identity{Name: "alice", Addr: netip.MustParseAddr("192.0.2.1")}))

	entries, err := s.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "flood", entries[0].Reason)
	assert.Equal(t, time.Hour, entries[0].Duration)
	assert.Equal(t, now.Unix(), entries[0].Start.Unix())
}

func TestSQLiteStore_SetEntriesAndPrune(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "bans.db"))
	require.NoError(t, err)
	defer s.Close()

	start := time.Unix(1_700_000_000, 0)
	require.NoError(t, s.SetEntries([]ban.Entry{
		{Prefix: netip.MustParsePrefix("10.0.0.0/8"), Start: start, Duration: time.Minute},
		{Hash: "cafe", Start: start},
	}))

	n, err := s.Prune(start.Add(2 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries, err := s.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cafe", entries[0].Hash)
}
