package ban

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_Matches(t *testing.T) {
	e := Entry{Prefix: netip.MustParsePrefix("10.0.0.0/24"), Hash: "ABCDEF"}

	assert.True(t, e.Matches(Identity{Addr: netip.MustParseAddr("10.0.0.7")}))
	assert.True(t, e.Matches(Identity{Addr: netip.MustParseAddr("::ffff:10.0.0.7")}))
	assert.True(t, e.Matches(Identity{Hash: "abcdef", Addr: netip.MustParseAddr("192.168.1.1")}))
	assert.False(t, e.Matches(Identity{Addr: netip.MustParseAddr("10.0.1.7")}))
	assert.False(t, Entry{}.Matches(Identity{Name: "alice"}))

	byName := Entry{Name: "mallory"}
	assert.True(t, byName.Matches(Identity{Name: "mallory", Addr: netip.MustParseAddr("10.6.6.6")}))
	assert.False(t, byName.Matches(Identity{Name: "Mallory2"}))
	assert.False(t, byName.Matches(Identity{Addr: netip.MustParseAddr("10.6.6.6")}))
}

func TestEntry_Expired(t *testing.T) {
	start := time.Unix(1000, 0)
	assert.False(t, Entry{Start: start}.Expired(start.Add(time.Hour*1000)))
	e := Entry{Start: start, Duration: time.Minute}
	assert.False(t, e.Expired(start.Add(59*time.Second)))
	assert.True(t, e.Expired(start.Add(time.Minute)))
}

func TestMemoryStore(t *testing.T) {
	now := time.Unix(5000, 0)
	s := NewMemoryStore()
	s.Now = func() time.Time { return now }

	id := Identity{Name: "mallory", Addr: netip.MustParseAddr("203.0.113.9")}
	require.NoError(t, s.RecordBan(id, "spam", time.Minute))
	require.NoError(t, s.RecordBan(Identity{Addr: netip.MustParseAddr("203.0.113.10")}, "", 0))

	assert.True(t, s.IsBanned(Identity{Addr: netip.MustParseAddr("203.0.113.9")}))
	assert.False(t, s.IsBanned(Identity{Addr: netip.MustParseAddr("203.0.113.11")}))

	entries, err := s.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, netip.MustParsePrefix("203.0.113.9/32"), entries[0].Prefix)
	assert.Equal(t, "spam", entries[0].Reason)

	now = now.Add(2 * time.Minute)
	assert.False(t, s.IsBanned(id))
	n, err := s.Prune(now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.SetEntries([]Entry{{Name: "mallory", Start: now}}))
	assert.True(t, s.IsBanned(Identity{Name: "mallory", Addr: netip.MustParseAddr("10.6.6.6")}))
	assert.False(t, s.IsBanned(Identity{Name: "alice", Addr: netip.MustParseAddr("10.6.6.6")}))

	require.NoError(t, s.SetEntries(nil))
	entries, err = s.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
