// Package sfu fans a speaker's voice packet out to its recipients.
package sfu

import (
	"github.com/dkeye/voipcore/internal/core"
	"github.com/dkeye/voipcore/internal/domain"
	"github.com/dkeye/voipcore/internal/mumbleproto"
	"github.com/rs/zerolog/log"
)

// SessionLookup resolves session ids to live sessions.
type SessionLookup interface {
	Get(id domain.SessionID) (*core.Session, bool)
}

// Router computes who hears a packet. It reads shared state and must run
// under the orchestrator lock.
type Router struct {
	Tree      *core.ChannelTree
	Listeners *core.ListenerRegistry
	Sessions  SessionLookup
}

// RecipientSet keeps insertion order. The first insertion of a session
// decides its speech flag.
type RecipientSet struct {
	order []*OutTrack
	index map[domain.SessionID]int
}

func newRecipientSet() *RecipientSet {
	return &RecipientSet{index: make(map[domain.SessionID]int)}
}

func (rs *RecipientSet) add(s *core.Session, flag uint8) {
	if _, ok := rs.index[s.ID]; ok {
		return
	}
	rs.index[s.ID] = len(rs.order)
	rs.order = append(rs.order, NewOutTrack(s, flag))
}

func (rs *RecipientSet) Tracks() []*OutTrack { return rs.order }

func (rs *RecipientSet) Len() int { return len(rs.order) }

func (rs *RecipientSet) Contains(id domain.SessionID) bool {
	_, ok := rs.index[id]
	return ok
}

// Route builds the recipient tracks for a packet from sender addressed to
// target. Undeliverable recipients are returned muted; the sender is left out
// except on loopback.
func (rt *Router) Route(sender *core.Session, target uint8) []*OutTrack {
	if target == mumbleproto.TargetLoopback {
		ot := NewOutTrack(sender, mumbleproto.FlagNormal)
		ot.KeepPosition = true
		return []*OutTrack{ot}
	}

	rs := newRecipientSet()
	switch {
	case target == mumbleproto.TargetNormal:
		ch, ok := rt.Tree.ChannelOf(sender.ID)
		if !ok {
			return nil
		}
		rt.addMembers(rs, ch, mumbleproto.FlagNormal)
		rt.addListeners(rs, ch.ID, mumbleproto.FlagListen)
	default:
		vt, ok := sender.Targets.Get(uint32(target))
		if !ok {
			log.Debug().Str("module", "sfu.router").Uint32("session", uint32(sender.ID)).Uint8("target", target).Msg("unknown voice target")
			return nil
		}
		rt.addWhisper(rs, sender, vt)
	}

	out := make([]*OutTrack, 0, rs.Len())
	for _, ot := range rs.Tracks() {
		if ot.Dst == sender {
			continue
		}
		if !ot.Dst.Authenticated || ot.Dst.Voice.Deafened() {
			ot.MarkMuted()
		}
		ot.KeepPosition = sender.SamePluginContext(ot.Dst)
		out = append(out, ot)
	}
	return out
}

func (rt *Router) addWhisper(rs *RecipientSet, sender *core.Session, vt *core.VoiceTarget) {
	covered := make(map[domain.ChannelID]struct{}, len(vt.Channels))
	senderCh, _ := rt.Tree.ChannelOf(sender.ID)

	for _, entry := range vt.Channels {
		ch, ok := rt.Tree.Get(entry.Channel)
		if !ok {
			continue
		}
		covered[ch.ID] = struct{}{}
		rt.addMembers(rs, ch, mumbleproto.FlagWhisperChannel)
		rt.addListeners(rs, ch.ID, mumbleproto.FlagWhisperChannel)

		if entry.Links {
			for _, linkID := range ch.Links() {
				link, ok := rt.Tree.Get(linkID)
				if !ok {
					continue
				}
				for _, sid := range rt.Listeners.ListenersOf(link.ID) {
					s, ok := rt.Sessions.Get(sid)
					if !ok {
						continue
					}
					if senderCh != nil && senderCh.HasMember(sid) {
						continue
					}
					if rt.Listeners.IsListening(sid, ch.ID) {
						continue
					}
					rs.add(s, mumbleproto.FlagWhisperChannel)
				}
				for _, sid := range link.Members() {
					if rt.Listeners.IsListening(sid, link.ID) {
						continue
					}
					if s, ok := rt.Sessions.Get(sid); ok {
						rs.add(s, mumbleproto.FlagWhisperChannel)
					}
				}
			}
		}

		if entry.Children {
			for _, sub := range rt.Tree.BuildDescendantList(ch) {
				rt.addMembers(rs, sub, mumbleproto.FlagWhisperChannel)
			}
		}
	}

	for _, sid := range vt.Sessions {
		s, ok := rt.Sessions.Get(sid)
		if !ok {
			continue
		}
		if ch, in := rt.Tree.ChannelOf(sid); in {
			if _, dup := covered[ch.ID]; dup {
				continue
			}
		}
		rs.add(s, mumbleproto.FlagWhisperDirect)
	}
}

func (rt *Router) addMembers(rs *RecipientSet, ch *core.Channel, flag uint8) {
	for _, sid := range ch.Members() {
		if s, ok := rt.Sessions.Get(sid); ok {
			rs.add(s, flag)
		}
	}
}

func (rt *Router) addListeners(rs *RecipientSet, ch domain.ChannelID, flag uint8) {
	for _, sid := range rt.Listeners.ListenersOf(ch) {
		if s, ok := rt.Sessions.Get(sid); ok {
			rs.add(s, flag)
		}
	}
}
