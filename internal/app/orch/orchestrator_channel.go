package orch

import (
	"github.com/dkeye/voipcore/internal/core"
	"github.com/dkeye/voipcore/internal/domain"
	"github.com/dkeye/voipcore/internal/mumbleproto"
	"github.com/rs/zerolog/log"
)

// onChannelState only creates temporary channels. The creator is moved into
// the new channel right away.
func (o *Orchestrator) onChannelState(s *core.Session, m *mumbleproto.ChannelState) {
	switch {
	case m.ChannelID != nil, m.Parent == nil, m.Name == nil:
		o.deny(s, "Not supported")
		return
	case m.Temporary == nil || !*m.Temporary:
		o.deny(s, "Only temporary channels are supported")
		return
	case len(*m.Name) > MaxTextLength:
		o.deny(s, "Channel name too long")
		return
	}

	parent, ok := o.Channels.Get(domain.ChannelID(*m.Parent))
	if !ok {
		return
	}
	for sib := range o.Channels.IterateSiblings(parent) {
		if sib.Name == *m.Name {
			o.deny(s, "Channel already exists")
			return
		}
	}
	if parent.Temporary {
		o.deny(s, "Parent channel is temporary channel")
		return
	}

	var desc string
	if m.Description != nil {
		desc = *m.Description
	}
	ch := o.Channels.CreateChannel(*m.Name, desc)
	ch.Temporary = true
	if m.Position != nil {
		ch.Position = *m.Position
	}
	o.Channels.AddChannel(parent, ch)
	log.Info().Str("module", "orch.channel").Uint32("session", uint32(s.ID)).Int("channel", int(ch.ID)).Str("name", ch.Name).Msg("temporary channel created")

	o.broadcast(&mumbleproto.ChannelState{
		ChannelID:   mumbleproto.Ptr(uint32(ch.ID)),
		Parent:      mumbleproto.Ptr(uint32(parent.ID)),
		Name:        mumbleproto.Ptr(ch.Name),
		Description: m.Description,
		Temporary:   mumbleproto.Ptr(true),
		Position:    m.Position,
	}, nil)

	us := &mumbleproto.UserState{
		Session:   mumbleproto.Ptr(uint32(s.ID)),
		ChannelID: mumbleproto.Ptr(uint32(ch.ID)),
	}
	if s.Voice.Suppress {
		us.Suppress = mumbleproto.Ptr(false)
		s.Voice.Suppress = false
	}
	o.broadcast(us, nil)

	if removed := o.Channels.Join(ch, s.ID); removed != domain.NoChannel {
		o.channelRemoved(removed)
	}
}
