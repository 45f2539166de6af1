package sfu

import (
	"errors"
	"testing"
	"time"

	"github.com/dkeye/voipcore/internal/core"
	"github.com/dkeye/voipcore/internal/domain"
	"github.com/dkeye/voipcore/internal/mumbleproto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionMap map[domain.SessionID]*core.Session

func (m sessionMap) Get(id domain.SessionID) (*core.Session, bool) {
	s, ok := m[id]
	return s, ok
}

type fixture struct {
	router   *Router
	sessions sessionMap
	lobby    *core.Channel
	quiet    *core.Channel
	sub      *core.Channel
	sibling  *core.Channel
}

// Root
// ├─ Lobby (1)
// │  └─ Sub (3)
// ├─ Quiet (2)
// └─ Sibling (4)
func newFixture(t *testing.T) *fixture {
	t.Helper()
	tree := core.NewChannelTree("Root")
	lobby := tree.CreateChannel("Lobby", "")
	tree.AddChannel(tree.Root(), lobby)
	quiet := tree.CreateChannel("Quiet", "")
	tree.AddChannel(tree.Root(), quiet)
	sub := tree.CreateChannel("Sub", "")
	tree.AddChannel(lobby, sub)
	sibling := tree.CreateChannel("Sibling", "")
	tree.AddChannel(tree.Root(), sibling)
	require.Equal(t, domain.ChannelID(1), lobby.ID)
	require.Equal(t, domain.ChannelID(2), quiet.ID)

	f := &fixture{
		sessions: sessionMap{},
		lobby:    lobby,
		quiet:    quiet,
		sub:      sub,
		sibling:  sibling,
	}
	f.router = &Router{Tree: tree, Listeners: core.NewListenerRegistry(), Sessions: f.sessions}
	return f
}

func (f *fixture) join(id domain.SessionID, ch *core.Channel) *core.Session {
	s := core.NewSession(id, nil, 1024, time.Now())
	s.Authenticated = true
	f.sessions[id] = s
	f.router.Tree.Join(ch, id)
	return s
}

func recipients(tracks []*OutTrack) map[domain.SessionID]uint8 {
	out := make(map[domain.SessionID]uint8)
	for _, ot := range tracks {
		if ot.GetState() == TrackStateOk {
			out[ot.Dst.ID] = ot.Flag
		}
	}
	return out
}

func TestRoute_ChannelSpeechReachesListener(t *testing.T) {
	f := newFixture(t)
	a := f.join(1, f.lobby)
	f.join(2, f.quiet)
	f.router.Listeners.Add(2, f.lobby.ID)

	got := recipients(f.router.Route(a, mumbleproto.TargetNormal))
	assert.Equal(t, map[domain.SessionID]uint8{2: mumbleproto.FlagListen}, got)
}

func TestRoute_ChannelSpeechSkipsSenderAndDeaf(t *testing.T) {
	f := newFixture(t)
	a := f.join(1, f.lobby)
	f.join(2, f.lobby)
	deaf := f.join(3, f.lobby)
	deaf.Voice.Deaf = true
	selfDeaf := f.join(4, f.quiet)
	selfDeaf.Voice.SelfDeaf = true
	f.router.Listeners.Add(4, f.lobby.ID)
	pending := f.join(5, f.lobby)
	pending.Authenticated = false

	tracks := f.router.Route(a, mumbleproto.TargetNormal)
	assert.Equal(t, map[domain.SessionID]uint8{2: mumbleproto.FlagNormal}, recipients(tracks))
	for _, ot := range tracks {
		assert.NotEqual(t, a.ID, ot.Dst.ID)
	}
}

func TestRoute_MemberWinsOverListenerFlag(t *testing.T) {
	f := newFixture(t)
	a := f.join(1, f.lobby)
	f.join(2, f.lobby)
	f.router.Listeners.Add(2, f.lobby.ID)

	tracks := f.router.Route(a, mumbleproto.TargetNormal)
	require.Len(t, tracks, 1)
	assert.Equal(t, mumbleproto.FlagNormal, tracks[0].Flag)
}

func TestRoute_WhisperChildren(t *testing.T) {
	f := newFixture(t)
	a := f.join(1, f.quiet)
	f.join(2, f.lobby)
	f.join(3, f.sub)
	f.join(4, f.sibling)
	require.NoError(t, a.Targets.SetTarget(5, []core.ChannelTarget{{Channel: f.lobby.ID, Children: true}}, nil))

	got := recipients(f.router.Route(a, 5))
	assert.Equal(t, map[domain.SessionID]uint8{
		2: mumbleproto.FlagWhisperChannel,
		3: mumbleproto.FlagWhisperChannel,
	}, got)
}

func TestRoute_WhisperWithoutChildrenStaysInChannel(t *testing.T) {
	f := newFixture(t)
	a := f.join(1, f.quiet)
	f.join(2, f.lobby)
	f.join(3, f.sub)
	require.NoError(t, a.Targets.SetTarget(1, []core.ChannelTarget{{Channel: f.lobby.ID}}, nil))

	assert.Equal(t, map[domain.SessionID]uint8{2: mumbleproto.FlagWhisperChannel}, recipients(f.router.Route(a, 1)))
}

func TestRoute_WhisperLinks(t *testing.T) {
	f := newFixture(t)
	f.router.Tree.Link(f.lobby, f.sibling)
	a := f.join(1, f.quiet)
	f.join(2, f.lobby)
	f.join(3, f.sibling)
	// listens to the linked channel from the sender's own channel: skipped
	f.join(4, f.quiet)
	f.router.Listeners.Add(4, f.sibling.ID)
	// listens to the linked channel from elsewhere: reached
	f.join(5, f.sub)
	f.router.Listeners.Add(5, f.sibling.ID)

	require.NoError(t, a.Targets.SetTarget(2, []core.ChannelTarget{{Channel: f.lobby.ID, Links: true}}, nil))
	got := recipients(f.router.Route(a, 2))
	assert.Equal(t, map[domain.SessionID]uint8{
		2: mumbleproto.FlagWhisperChannel,
		3: mumbleproto.FlagWhisperChannel,
		5: mumbleproto.FlagWhisperChannel,
	}, got)
}

func TestRoute_WhisperSessions(t *testing.T) {
	f := newFixture(t)
	a := f.join(1, f.quiet)
	f.join(2, f.lobby)
	f.join(3, f.sibling)
	require.NoError(t, a.Targets.SetTarget(4,
		[]core.ChannelTarget{{Channel: f.lobby.ID}},
		[]domain.SessionID{2, 3, 99},
	))

	got := recipients(f.router.Route(a, 4))
	assert.Equal(t, map[domain.SessionID]uint8{
		2: mumbleproto.FlagWhisperChannel,
		3: mumbleproto.FlagWhisperDirect,
	}, got)

	assert.Empty(t, f.router.Route(a, 9))
}

func TestRoute_Loopback(t *testing.T) {
	f := newFixture(t)
	a := f.join(1, f.lobby)
	a.Voice.SelfDeaf = true
	f.join(2, f.lobby)

	tracks := f.router.Route(a, mumbleproto.TargetLoopback)
	require.Len(t, tracks, 1)
	assert.Same(t, a, tracks[0].Dst)
	assert.True(t, tracks[0].KeepPosition)
}

func TestRelay_ShapesPerRecipient(t *testing.T) {
	f := newFixture(t)
	a := f.join(1, f.lobby)
	a.PluginContext = []byte("game")
	same := f.join(2, f.lobby)
	same.PluginContext = []byte("game")
	other := f.join(3, f.lobby)
	other.PluginContext = []byte("other")
	failing := f.join(4, f.lobby)

	// opus, seq 1, 2 byte frame, 3 byte trailer
	raw := []byte{byte(mumbleproto.VoiceOpus) << 5, 0x01, 0x02, 0xAA, 0xBB, 0x10, 0x20, 0x30}
	pkt, err := mumbleproto.ParseVoicePacket(raw)
	require.NoError(t, err)
	require.Equal(t, 3, pkt.PosLen)

	got := map[domain.SessionID][]byte{}
	relay := NewRelay(func(dst *core.Session, b []byte) error {
		if dst == failing {
			return errors.New("gone")
		}
		got[dst.ID] = b
		return nil
	}, zerolog.Nop())

	sent, dirty := relay.Forward(a.ID, pkt, f.router.Route(a, mumbleproto.TargetNormal))
	assert.Equal(t, 2, sent)
	require.Len(t, dirty, 1)
	assert.Same(t, failing, dirty[0].Dst)
	assert.Equal(t, TrackStateDelete, dirty[0].GetState())

	full := []byte{byte(mumbleproto.VoiceOpus) << 5, 0x01, 0x01, 0x02, 0xAA, 0xBB, 0x10, 0x20, 0x30}
	assert.Equal(t, full, got[same.ID])
	assert.Equal(t, full[:len(full)-3], got[other.ID])
}
