package app

import (
	"net/netip"
	"testing"
	"time"

	"github.com/dkeye/voipcore/internal/config"
	"github.com/dkeye/voipcore/internal/core"
	"github.com/dkeye/voipcore/internal/domain"
	"github.com/dkeye/voipcore/internal/mumbleproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubConn struct {
	id   core.ConnID
	addr netip.AddrPort
}

func (c stubConn) ID() core.ConnID            { return c.id }
func (c stubConn) RemoteAddr() netip.AddrPort { return c.addr }
func (c stubConn) Close() error               { return nil }

func newConn(addr string) stubConn {
	return stubConn{id: core.NewConnID(), addr: netip.MustParseAddrPort(addr)}
}

func TestRegistry_SmallestFreeID(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	a := r.Add(newConn("10.0.0.1:1000"), 1024, now)
	b := r.Add(newConn("10.0.0.2:1000"), 1024, now)
	c := r.Add(newConn("10.0.0.3:1000"), 1024, now)
	require.Equal(t, []domain.SessionID{1, 2, 3}, []domain.SessionID{a.ID, b.ID, c.ID})

	r.Remove(b)
	d := r.Add(newConn("10.0.0.4:1000"), 1024, now)
	assert.Equal(t, domain.SessionID(2), d.ID)

	got, ok := r.ByConn(d.Conn.ID())
	require.True(t, ok)
	assert.Same(t, d, got)
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_UDPAndLookups(t *testing.T) {
	r := NewRegistry()
	s := r.Add(newConn("10.0.0.1:1000"), 1024, time.Now())
	s.Authenticated = true
	s.Name = "[12]alice"
	other := r.Add(newConn("10.0.0.2:1000"), 1024, time.Now())

	first := netip.MustParseAddrPort("10.0.0.1:5000")
	second := netip.MustParseAddrPort("10.0.0.1:5001")
	r.BindUDP(s, first)
	r.BindUDP(s, second)
	_, ok := r.ByUDP(first)
	assert.False(t, ok)
	got, ok := r.ByUDP(second)
	require.True(t, ok)
	assert.Same(t, s, got)

	assert.Equal(t, []*core.Session{s}, r.SameHost(netip.MustParseAddr("10.0.0.1")))
	assert.Equal(t, 1, r.AuthenticatedCount())

	byName, ok := r.FindByName("[12]alice")
	require.True(t, ok)
	assert.Same(t, s, byName)
	_, ok = r.FindByPrefix("[13]")
	assert.False(t, ok)
	byPrefix, ok := r.FindByPrefix("[12]")
	require.True(t, ok)
	assert.Same(t, s, byPrefix)

	r.Remove(s)
	_, ok = r.ByUDP(second)
	assert.False(t, ok)
	assert.Equal(t, []*core.Session{other}, r.All())
}

func TestBuildChannelTree(t *testing.T) {
	tree, def, err := BuildChannelTree(
		[]config.Channel{
			{Name: "Server", Description: "top"},
			{Name: "Lobby", Parent: "Server"},
			{Name: "AFK", Parent: "Server", Silent: true},
			{Name: "Team", Parent: "Lobby", Password: "pw"},
		},
		[]config.ChannelLink{{Source: "Lobby", Destination: "AFK"}},
		"Lobby",
	)
	require.NoError(t, err)
	assert.Equal(t, "Server", tree.Root().Name)
	assert.Equal(t, "top", tree.Root().Description)
	assert.Equal(t, "Lobby", def.Name)
	assert.Equal(t, 4, tree.Len())

	afk, ok := tree.Get(2)
	require.True(t, ok)
	assert.True(t, afk.Silent)
	assert.Equal(t, []domain.ChannelID{afk.ID}, def.Links())
}

func TestBuildChannelTree_Errors(t *testing.T) {
	_, _, err := BuildChannelTree([]config.Channel{{Name: "A", Parent: "Missing"}}, nil, "")
	assert.ErrorIs(t, err, ErrUnknownParent)

	_, _, err = BuildChannelTree([]config.Channel{{Name: "A", Parent: "Root"}, {Name: "A", Parent: "Root"}}, nil, "")
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, _, err = BuildChannelTree(nil, nil, "Nowhere")
	assert.ErrorIs(t, err, ErrUnknownChannel)

	tree, def, err := BuildChannelTree(nil, nil, "")
	require.NoError(t, err)
	assert.Same(t, tree.Root(), def)
	assert.Equal(t, DefaultRootName, def.Name)
}

func TestCodecNegotiator_MajorityAndHysteresis(t *testing.T) {
	n := NewCodecNegotiator(100)

	out := n.Recheck([]CodecPeer{{Session: 1, Authenticated: true, Codecs: []int32{CompatCELT}}}, nil)
	assert.True(t, out.Announce)
	assert.Equal(t, CodecState{Alpha: CompatCELT, PreferAlpha: true, Opus: false}, out.State)

	// A tie keeps the codec already in use.
	peers := []CodecPeer{
		{Session: 1, Authenticated: true, Codecs: []int32{CompatCELT}},
		{Session: 2, Authenticated: true, Codecs: []int32{7}},
	}
	out = n.Recheck(peers, nil)
	assert.Equal(t, CompatCELT, out.State.Alpha)
	assert.True(t, out.State.PreferAlpha)

	peers = append(peers, CodecPeer{Session: 3, Authenticated: true, Codecs: []int32{7}})
	out = n.Recheck(peers, nil)
	assert.True(t, out.Announce)
	assert.Equal(t, int32(7), out.State.Beta)
	assert.False(t, out.State.PreferAlpha)
}

func TestCodecNegotiator_OpusThreshold(t *testing.T) {
	n := NewCodecNegotiator(100)
	opusOnly := []CodecPeer{{Session: 1, Authenticated: true, Opus: true, Codecs: []int32{CompatCELT}}}
	n.Recheck(opusOnly, nil)

	legacy := CodecPeer{Session: 2, Codecs: []int32{CompatCELT}}
	out := n.Recheck(append(opusOnly, legacy), &legacy)
	assert.True(t, out.Announce)
	assert.False(t, out.State.Opus)

	out = n.Recheck(opusOnly, nil)
	assert.True(t, out.State.Opus)

	n2 := NewCodecNegotiator(50)
	n2.Recheck(opusOnly, nil)
	out = n2.Recheck(append(opusOnly, legacy), &legacy)
	assert.False(t, out.Announce)
	assert.Equal(t, []domain.SessionID{2}, out.WarnUsing)
}

func TestCodecNegotiator_WarnsOnSwitch(t *testing.T) {
	n := NewCodecNegotiator(50)
	legacy := []CodecPeer{
		{Session: 1, Authenticated: true, Codecs: []int32{CompatCELT}},
		{Session: 2, Authenticated: true, Codecs: []int32{CompatCELT}},
	}
	out := n.Recheck(legacy, nil)
	require.False(t, out.State.Opus)

	newcomer := CodecPeer{Session: 3, Opus: true, Codecs: []int32{CompatCELT}}
	peers := append(legacy, newcomer, CodecPeer{Session: 4, Opus: true, Authenticated: true, Codecs: []int32{CompatCELT}})
	out = n.Recheck(peers, &newcomer)
	assert.True(t, out.Announce)
	assert.True(t, out.State.Opus)
	assert.Equal(t, []domain.SessionID{1, 2}, out.WarnSwitching)
}

func TestPassword(t *testing.T) {
	assert.False(t, Password("").Check(""))
	assert.True(t, Password("hunter2").Check("hunter2"))
	assert.False(t, Password("hunter2").Check("hunter3"))

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	p := Password(hash)
	assert.True(t, p.Check("s3cret"))
	assert.False(t, p.Check("nope"))
	assert.True(t, p.MatchAny([]string{"x", "s3cret"}))
}

func TestSimplePolicy(t *testing.T) {
	assert.Equal(t, DropFrame, SimplePolicy{}.OnBackPressure(nil, 0))
	kick := PolicyFunc(func(*core.Session, mumbleproto.Kind) BackpressureAction { return KickMember })
	assert.Equal(t, KickMember, kick.OnBackPressure(nil, 0))
}
