package orch

import (
	"errors"

	"github.com/dkeye/voipcore/internal/app"
	"github.com/dkeye/voipcore/internal/core"
	"github.com/dkeye/voipcore/internal/domain"
	"github.com/dkeye/voipcore/internal/mumbleproto"
	"github.com/rs/zerolog/log"
)

// Calls in this file are for the embedding application. They take the
// lock themselves.

var ErrUnknownPlayer = errors.New("unknown player")

// Stats is the server summary for the admin API.
type Stats struct {
	Sessions      int                    `json:"sessions"`
	Authenticated int                    `json:"authenticated"`
	MaxClients    int                    `json:"max_clients"`
	Channels      int                    `json:"channels"`
	Codec         app.CodecState         `json:"codec"`
	Users         []core.SessionSnapshot `json:"users"`
}

// IsPlayerMuted reports the forced mute of the first player whose name
// starts with prefix.
func (o *Orchestrator) IsPlayerMuted(prefix string) (muted bool, found bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.Registry.FindByPrefix(prefix)
	if !ok {
		return false, false
	}
	return s.Voice.Mute, true
}

// SetPlayerMuted forces the mute flag and announces it to everyone.
func (o *Orchestrator) SetPlayerMuted(prefix string, muted bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.Registry.FindByPrefix(prefix)
	if !ok {
		return ErrUnknownPlayer
	}
	applied := s.Voice.Apply(domain.StateChange{Mute: &muted})
	o.broadcast(&mumbleproto.UserState{
		Session: mumbleproto.Ptr(uint32(s.ID)),
		Mute:    applied.Mute,
		Deaf:    applied.Deaf,
	}, nil)
	log.Info().Str("module", "orch.host").Uint32("session", uint32(s.ID)).Bool("muted", muted).Msg("player mute set")
	return nil
}

// FindPlayer returns the session of a player named "[id]nick".
func (o *Orchestrator) FindPlayer(id int) (domain.SessionID, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, s := range o.Registry.Authenticated() {
		if pid, ok := domain.PlayerID(s.Name); ok && pid == id {
			return s.ID, true
		}
	}
	return 0, false
}

// AddListener lets sid hear channel ch without joining it.
func (o *Orchestrator) AddListener(sid domain.SessionID, ch domain.ChannelID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.Registry.Get(sid)
	if !ok || !s.Authenticated {
		return ErrUnknownPlayer
	}
	if _, ok := o.Channels.Get(ch); !ok {
		return app.ErrUnknownChannel
	}
	if o.Listeners.Add(sid, ch) {
		o.broadcast(&mumbleproto.UserState{
			Session:             mumbleproto.Ptr(uint32(sid)),
			ListeningChannelAdd: []uint32{uint32(ch)},
		}, nil)
	}
	return nil
}

func (o *Orchestrator) RemoveListener(sid domain.SessionID, ch domain.ChannelID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Listeners.Remove(sid, ch) {
		o.broadcast(&mumbleproto.UserState{
			Session:                mumbleproto.Ptr(uint32(sid)),
			ListeningChannelRemove: []uint32{uint32(ch)},
		}, nil)
	}
}

// Snapshot copies every session for telemetry.
func (o *Orchestrator) Snapshot() []core.SessionSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() []core.SessionSnapshot {
	now := o.now()
	sessions := o.Registry.All()
	out := make([]core.SessionSnapshot, 0, len(sessions))
	for _, s := range sessions {
		ch := domain.NoChannel
		if c, ok := o.Channels.ChannelOf(s.ID); ok {
			ch = c.ID
		}
		out = append(out, s.Snapshot(ch, o.Listeners.ChannelsListenedBy(s.ID), now))
	}
	return out
}

func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	users := o.snapshotLocked()
	auth := 0
	for _, u := range users {
		if u.Authenticated {
			auth++
		}
	}
	return Stats{
		Sessions:      len(users),
		Authenticated: auth,
		MaxClients:    o.cfg.MaxClients,
		Channels:      o.Channels.Len(),
		Codec:         o.Codecs.State(),
		Users:         users,
	}
}

// ChannelTree copies the channel tree with its members.
func (o *Orchestrator) ChannelTree() core.ChannelSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Channels.Root().Snapshot()
}
