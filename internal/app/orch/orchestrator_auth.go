package orch

import (
	"errors"
	"fmt"

	"github.com/dkeye/voipcore/internal/app"
	"github.com/dkeye/voipcore/internal/ban"
	"github.com/dkeye/voipcore/internal/core"
	"github.com/dkeye/voipcore/internal/domain"
	"github.com/dkeye/voipcore/internal/mumbleproto"
	"github.com/rs/zerolog/log"
)

const (
	// MaxTextLength bounds text messages and channel names.
	MaxTextLength = 512
)

func (o *Orchestrator) onAuthenticate(s *core.Session, m *mumbleproto.Authenticate) {
	if s.Authenticated {
		// A repeated Authenticate only replaces the token list.
		s.Tokens.Clear()
		if len(m.Tokens) > 0 {
			o.addTokens(s, m.Tokens)
		}
		return
	}

	if other, taken := o.Registry.FindByName(m.Username); taken && other != s {
		o.reject(s, mumbleproto.RejectUsernameInUse, "Username already in use")
		return
	}
	if pw := app.Password(o.cfg.ServerPassword); pw.Set() && !pw.Check(m.Password) {
		o.reject(s, mumbleproto.RejectWrongServerPW, "Wrong server password")
		return
	}
	if err := domain.ValidateUsername(m.Username); err != nil {
		o.reject(s, mumbleproto.RejectInvalidUsername, "Invalid username")
		return
	}
	if o.Registry.AuthenticatedCount() >= o.cfg.MaxClients {
		o.reject(s, mumbleproto.RejectServerFull, fmt.Sprintf("Server is full (max %d users)", o.cfg.MaxClients))
		return
	}
	if o.Bans != nil && o.Bans.IsBanned(ban.Identity{Name: m.Username, Addr: s.RemoteAddr().Addr()}) {
		o.reject(s, mumbleproto.RejectNone, "You are banned")
		return
	}

	s.Authenticated = true
	s.Name = m.Username
	if len(m.Tokens) > 0 {
		o.addTokens(s, m.Tokens)
	}
	if pw := app.Password(o.cfg.AdminPassword); pw.Set() && pw.MatchAny(s.Tokens.List()) {
		s.IsAdmin = true
		log.Info().Str("module", "orch.auth").Uint32("session", uint32(s.ID)).Msg("user provided admin password")
	}

	if err := s.Crypt.GenerateKey(); err != nil {
		log.Error().Str("module", "orch.auth").Uint32("session", uint32(s.ID)).Err(err).Msg("crypt key generation failed")
		o.disconnect(s)
		return
	}
	o.send(s, &mumbleproto.CryptSetup{
		Key:         s.Crypt.Key(),
		ServerNonce: s.Crypt.EncryptIV(),
		ClientNonce: s.Crypt.DecryptIV(),
	})
	// a new association may succeed where earlier probes failed
	delete(o.udpFailures, s.RemoteAddr().Addr().Unmap())

	o.Channels.Join(o.defaultChannel, s.ID)
	s.Voice.Suppress = o.defaultChannel.Silent

	s.Opus = m.Opus
	s.Codecs = append([]int32(nil), m.CeltVersions...)
	fake := false
	if len(s.Codecs) == 0 {
		s.Codecs = []int32{app.CompatCELT}
		fake = true
	}
	o.recheckCodecs(s)
	cv := o.Codecs.State()
	o.send(s, &mumbleproto.CodecVersion{Alpha: cv.Alpha, Beta: cv.Beta, PreferAlpha: cv.PreferAlpha, Opus: cv.Opus})
	if !o.Codecs.State().Opus && s.Opus && fake {
		o.sendText(s, app.NoCELTWarning)
	}

	o.sendChannelTree(s)

	joined := &mumbleproto.UserState{
		Session:   mumbleproto.Ptr(uint32(s.ID)),
		Name:      mumbleproto.Ptr(s.Name),
		ChannelID: mumbleproto.Ptr(uint32(o.defaultChannel.ID)),
	}
	if s.Voice.Suppress {
		joined.Suppress = mumbleproto.Ptr(true)
	}
	o.broadcast(joined, s)

	for _, other := range o.Registry.Authenticated() {
		o.send(s, o.userStateOf(other))
	}

	o.send(s, &mumbleproto.ServerSync{
		Session:      uint32(s.ID),
		MaxBandwidth: uint32(o.cfg.MaxBandwidth),
		WelcomeText:  o.cfg.WelcomeText,
		Permissions:  uint64(o.permissions(s)),
	})
	o.send(s, &mumbleproto.ServerConfig{
		AllowHTML:          mumbleproto.Ptr(true),
		MessageLength:      mumbleproto.Ptr(uint32(MaxTextLength)),
		ImageMessageLength: mumbleproto.Ptr(uint32(0)),
	})
	log.Info().Str("module", "orch.auth").Uint32("session", uint32(s.ID)).Str("name", s.Name).Bool("admin", s.IsAdmin).Msg("user authenticated")
}

// addTokens applies one batch. A rejected batch leaves the list as it was.
func (o *Orchestrator) addTokens(s *core.Session, tokens []string) {
	err := s.Tokens.Add(tokens...)
	switch {
	case errors.Is(err, domain.ErrTooManyTokens):
		o.deny(s, "Too many tokens")
	case errors.Is(err, domain.ErrTokenTooLong):
		o.deny(s, "Too long token")
	}
}

// sendChannelTree replays every channel, then the links once all ids exist.
func (o *Orchestrator) sendChannelTree(s *core.Session) {
	for ch := range o.Channels.Iterate() {
		cs := &mumbleproto.ChannelState{
			ChannelID:   mumbleproto.Ptr(uint32(ch.ID)),
			Name:        mumbleproto.Ptr(ch.Name),
			Description: mumbleproto.Ptr(ch.Description),
		}
		if p := ch.Parent(); p != nil {
			cs.Parent = mumbleproto.Ptr(uint32(p.ID))
		}
		if ch.Temporary {
			cs.Temporary = mumbleproto.Ptr(true)
		}
		if ch.Position != 0 {
			cs.Position = mumbleproto.Ptr(ch.Position)
		}
		o.send(s, cs)
	}
	for ch := range o.Channels.Iterate() {
		links := ch.Links()
		if len(links) == 0 {
			continue
		}
		cs := &mumbleproto.ChannelState{ChannelID: mumbleproto.Ptr(uint32(ch.ID))}
		for _, l := range links {
			cs.Links = append(cs.Links, uint32(l))
		}
		o.send(s, cs)
	}
}

// userStateOf describes an authenticated session to a newcomer.
func (o *Orchestrator) userStateOf(s *core.Session) *mumbleproto.UserState {
	us := &mumbleproto.UserState{
		Session: mumbleproto.Ptr(uint32(s.ID)),
		Name:    mumbleproto.Ptr(s.Name),
	}
	if ch, ok := o.Channels.ChannelOf(s.ID); ok {
		us.ChannelID = mumbleproto.Ptr(uint32(ch.ID))
		if ch.Silent {
			us.Suppress = mumbleproto.Ptr(true)
		}
	}
	v := s.Voice
	if v.Deaf {
		us.Deaf = mumbleproto.Ptr(true)
	}
	if v.Mute {
		us.Mute = mumbleproto.Ptr(true)
	}
	if v.SelfDeaf {
		us.SelfDeaf = mumbleproto.Ptr(true)
	}
	if v.SelfMute {
		us.SelfMute = mumbleproto.Ptr(true)
	}
	if v.Recording {
		us.Recording = mumbleproto.Ptr(true)
	}
	for _, id := range o.Listeners.ChannelsListenedBy(s.ID) {
		us.ListeningChannelAdd = append(us.ListeningChannelAdd, uint32(id))
	}
	return us
}

func (o *Orchestrator) permissions(s *core.Session) uint32 {
	perm := mumbleproto.PermDefault
	if s.IsAdmin {
		perm = mumbleproto.PermAdmin
	}
	if !o.cfg.AllowTextMessage {
		perm &^= mumbleproto.PermTextMessage
	}
	if !o.cfg.EnableBan {
		perm &^= mumbleproto.PermBan
	}
	return perm
}

func (o *Orchestrator) onPermissionQuery(s *core.Session, m *mumbleproto.PermissionQuery) {
	o.send(s, &mumbleproto.PermissionQuery{
		ChannelID:   m.ChannelID,
		Permissions: mumbleproto.Ptr(o.permissions(s)),
	})
}

// recheckCodecs runs the codec vote. connecting is the session that is
// authenticating right now, nil on departures.
func (o *Orchestrator) recheckCodecs(connecting *core.Session) {
	var peers []app.CodecPeer
	for _, s := range o.Registry.Authenticated() {
		peers = append(peers, app.CodecPeer{Session: s.ID, Authenticated: true, Codecs: s.Codecs, Opus: s.Opus})
	}
	var cp *app.CodecPeer
	if connecting != nil {
		cp = &app.CodecPeer{Session: connecting.ID, Authenticated: connecting.Authenticated, Codecs: connecting.Codecs, Opus: connecting.Opus}
	}

	out := o.Codecs.Recheck(peers, cp)
	if out.Announce {
		o.broadcast(&mumbleproto.CodecVersion{
			Alpha:       out.State.Alpha,
			Beta:        out.State.Beta,
			PreferAlpha: out.State.PreferAlpha,
			Opus:        out.State.Opus,
		}, nil)
		log.Info().Str("module", "orch.codec").Int32("alpha", out.State.Alpha).Int32("beta", out.State.Beta).Bool("opus", out.State.Opus).Msg("codec version announced")
	}
	for _, id := range out.WarnUsing {
		if s, ok := o.Registry.Get(id); ok {
			o.sendText(s, app.OpusWarnUsing)
		}
	}
	for _, id := range out.WarnSwitching {
		if s, ok := o.Registry.Get(id); ok {
			o.sendText(s, app.OpusWarnSwitching)
		}
	}
}
