package orch

import (
	"fmt"

	"github.com/dkeye/voipcore/internal/core"
	"github.com/dkeye/voipcore/internal/domain"
	"github.com/dkeye/voipcore/internal/mumbleproto"
	"github.com/rs/zerolog/log"
)

// recordingNoticeBelow is the first client version that shows recording
// state by itself.
const recordingNoticeBelow uint32 = 0x010203

func (o *Orchestrator) onUserState(s *core.Session, m *mumbleproto.UserState) {
	target := s
	if m.Session != nil && domain.SessionID(*m.Session) != s.ID {
		if !s.IsAdmin {
			o.deny(s, "Permission denied")
			return
		}
		t, ok := o.Registry.Get(domain.SessionID(*m.Session))
		if !ok || !t.Authenticated {
			log.Warn().Str("module", "orch.state").Uint32("session", *m.Session).Msg("user state for unknown session")
			return
		}
		target = t
	}
	if m.UserID != nil || m.Suppress != nil || m.PrioritySpeaker != nil || len(m.Texture) > 0 {
		o.deny(s, "Not supported")
		return
	}
	if (m.Mute != nil || m.Deaf != nil) && !s.IsAdmin {
		o.deny(s, "Permission denied")
		return
	}

	out := &mumbleproto.UserState{
		Session: mumbleproto.Ptr(uint32(target.ID)),
		Actor:   mumbleproto.Ptr(uint32(s.ID)),
	}
	changed := false

	change := domain.StateChange{Mute: m.Mute, Deaf: m.Deaf}
	if target == s {
		change.SelfMute, change.SelfDeaf = m.SelfMute, m.SelfDeaf
	}
	if change != (domain.StateChange{}) {
		applied := target.Voice.Apply(change)
		out.Mute, out.Deaf = applied.Mute, applied.Deaf
		out.SelfMute, out.SelfDeaf = applied.SelfMute, applied.SelfDeaf
		changed = true
	}

	if m.Recording != nil && target == s && *m.Recording != s.Voice.Recording {
		s.Voice.Recording = *m.Recording
		out.Recording = mumbleproto.Ptr(s.Voice.Recording)
		changed = true
		verb := "stopped"
		if s.Voice.Recording {
			verb = "started"
		}
		o.broadcastOlder(&mumbleproto.TextMessage{
			Message: fmt.Sprintf("User %s %s recording", s.Name, verb),
			TreeIDs: []uint32{0},
		}, recordingNoticeBelow)
	}

	removed := domain.NoChannel
	if m.ChannelID != nil {
		id := domain.ChannelID(*m.ChannelID)
		res := o.Channels.TestJoin(id, &target.Tokens)
		if res.NoEnter || res.NotFound {
			return
		}
		if res.WrongPassword && !s.IsAdmin {
			// an admin may move anyone past a password
			if target == s {
				o.deny(s, "Wrong channel password")
			}
			return
		}
		ch, _ := o.Channels.Get(id)
		removed = o.Channels.Join(ch, target.ID)
		out.ChannelID = mumbleproto.Ptr(uint32(id))
		changed = true

		if res.Silent {
			if !target.Voice.Suppress {
				out.Suppress = mumbleproto.Ptr(true)
				target.Voice.Suppress = true
			}
		} else if target.Voice.Suppress {
			out.Suppress = mumbleproto.Ptr(false)
			target.Voice.Suppress = false
		}
	}

	for _, id := range m.ListeningChannelAdd {
		if o.mayListen(s, target, domain.ChannelID(id)) && o.Listeners.Add(target.ID, domain.ChannelID(id)) {
			out.ListeningChannelAdd = append(out.ListeningChannelAdd, id)
			changed = true
		}
	}
	for _, id := range m.ListeningChannelRemove {
		if o.Listeners.Remove(target.ID, domain.ChannelID(id)) {
			out.ListeningChannelRemove = append(out.ListeningChannelRemove, id)
			changed = true
		}
	}

	if m.PluginContext != nil && target == s {
		s.PluginContext = append([]byte(nil), m.PluginContext...)
	}

	if changed {
		o.broadcast(out, nil)
	}
	if removed != domain.NoChannel {
		o.channelRemoved(removed)
	}
}

// mayListen applies the join rules to listening: the channel must exist and
// be enterable, and its password is waived only for admins.
func (o *Orchestrator) mayListen(actor, target *core.Session, id domain.ChannelID) bool {
	res := o.Channels.TestJoin(id, &target.Tokens)
	if res.NotFound || res.NoEnter {
		return false
	}
	return !res.WrongPassword || actor.IsAdmin
}

func (o *Orchestrator) onTextMessage(s *core.Session, m *mumbleproto.TextMessage) {
	if !o.cfg.AllowTextMessage {
		return
	}
	if len(m.TreeIDs) > 0 {
		o.deny(s, "Tree message not supported")
		return
	}
	if len(m.Message) > MaxTextLength {
		o.send(s, &mumbleproto.PermissionDenied{Type: mumbleproto.DenyTextTooLong})
		return
	}
	m.Actor = mumbleproto.Ptr(uint32(s.ID))
	f := core.Frame(mumbleproto.Encode(m))

	for _, cid := range m.ChannelIDs {
		ch, ok := o.Channels.Get(domain.ChannelID(cid))
		if !ok {
			continue
		}
		for _, sid := range ch.Members() {
			r, ok := o.Registry.Get(sid)
			if !ok || r == s || r.Voice.Deafened() {
				continue
			}
			o.push(r, mumbleproto.KindTextMessage, f, false)
		}
	}
	for _, sid := range m.Sessions {
		r, ok := o.Registry.Get(domain.SessionID(sid))
		if !ok || !r.Authenticated {
			log.Warn().Str("module", "orch.state").Uint32("session", sid).Msg("text message for unknown session")
			continue
		}
		if r.Voice.Deafened() {
			continue
		}
		o.push(r, mumbleproto.KindTextMessage, f, false)
	}
}
