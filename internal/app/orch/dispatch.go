package orch

import (
	"fmt"

	"github.com/dkeye/voipcore/internal/core"
	"github.com/dkeye/voipcore/internal/domain"
	"github.com/dkeye/voipcore/internal/mumbleproto"
	"github.com/rs/zerolog/log"
)

type unmarshaler interface {
	Unmarshal(b []byte) error
}

func decode(kind mumbleproto.Kind, m unmarshaler, payload []byte) error {
	if err := m.Unmarshal(payload); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return nil
}

// dispatch handles one control frame. Only decode failures are returned;
// everything else is answered on the wire or ignored.
func (o *Orchestrator) dispatch(s *core.Session, kind mumbleproto.Kind, payload []byte) error {
	if !s.Authenticated && kind != mumbleproto.KindAuthenticate && kind != mumbleproto.KindVersion {
		log.Debug().Str("module", "orch").Uint32("session", uint32(s.ID)).Stringer("kind", kind).Msg("discarded before authentication")
		return nil
	}

	switch kind {
	case mumbleproto.KindUDPTunnel, mumbleproto.KindPing, mumbleproto.KindCryptSetup,
		mumbleproto.KindVoiceTarget, mumbleproto.KindUserStats, mumbleproto.KindPermissionQuery:
	default:
		s.IdleSince = o.now()
	}

	switch kind {
	case mumbleproto.KindVersion:
		var m mumbleproto.Version
		if err := decode(kind, &m, payload); err != nil {
			return err
		}
		s.Client = core.ClientVersion{Version: m.Version, Release: m.Release, OS: m.OS, OSVersion: m.OSVersion}
		log.Debug().Str("module", "orch").Uint32("session", uint32(s.ID)).Str("release", m.Release).Str("os", m.OS).Msg("client version")

	case mumbleproto.KindAuthenticate:
		var m mumbleproto.Authenticate
		if err := decode(kind, &m, payload); err != nil {
			return err
		}
		o.onAuthenticate(s, &m)

	case mumbleproto.KindPing:
		var m mumbleproto.Ping
		if err := decode(kind, &m, payload); err != nil {
			return err
		}
		o.onPing(s, &m)

	case mumbleproto.KindCryptSetup:
		var m mumbleproto.CryptSetup
		if err := decode(kind, &m, payload); err != nil {
			return err
		}
		o.onCryptSetup(s, &m)

	case mumbleproto.KindUserState:
		var m mumbleproto.UserState
		if err := decode(kind, &m, payload); err != nil {
			return err
		}
		o.onUserState(s, &m)

	case mumbleproto.KindTextMessage:
		var m mumbleproto.TextMessage
		if err := decode(kind, &m, payload); err != nil {
			return err
		}
		o.onTextMessage(s, &m)

	case mumbleproto.KindVoiceTarget:
		var m mumbleproto.VoiceTarget
		if err := decode(kind, &m, payload); err != nil {
			return err
		}
		o.onVoiceTarget(s, &m)

	case mumbleproto.KindPermissionQuery:
		var m mumbleproto.PermissionQuery
		if err := decode(kind, &m, payload); err != nil {
			return err
		}
		o.onPermissionQuery(s, &m)

	case mumbleproto.KindUDPTunnel:
		s.UDP = false
		o.onVoice(s, payload)

	case mumbleproto.KindChannelState:
		var m mumbleproto.ChannelState
		if err := decode(kind, &m, payload); err != nil {
			return err
		}
		o.onChannelState(s, &m)

	case mumbleproto.KindUserStats:
		var m mumbleproto.UserStats
		if err := decode(kind, &m, payload); err != nil {
			return err
		}
		o.onUserStats(s, &m)

	case mumbleproto.KindUserRemove:
		var m mumbleproto.UserRemove
		if err := decode(kind, &m, payload); err != nil {
			return err
		}
		o.onUserRemove(s, &m)

	case mumbleproto.KindBanList:
		var m mumbleproto.BanList
		if err := decode(kind, &m, payload); err != nil {
			return err
		}
		o.onBanList(s, &m)

	case mumbleproto.KindChannelRemove, mumbleproto.KindContextAction, mumbleproto.KindContextActionModify,
		mumbleproto.KindACL, mumbleproto.KindUserList, mumbleproto.KindQueryUsers:
		o.deny(s, "Not supported")

	default:
		log.Warn().Str("module", "orch").Uint32("session", uint32(s.ID)).Stringer("kind", kind).Msg("message not handled")
	}
	return nil
}

func (o *Orchestrator) onPing(s *core.Session, m *mumbleproto.Ping) {
	if m.Good != nil {
		s.Crypt.Remote.Good = *m.Good
	}
	if m.Late != nil {
		s.Crypt.Remote.Late = *m.Late
	}
	if m.Lost != nil {
		s.Crypt.Remote.Lost = int32(*m.Lost)
	}
	if m.Resync != nil {
		s.Crypt.Remote.Resync = *m.Resync
	}
	s.Ping = core.PingStats{
		UDPPackets: m.UDPPackets,
		TCPPackets: m.TCPPackets,
		UDPPingAvg: m.UDPPingAvg,
		UDPPingVar: m.UDPPingVar,
		TCPPingAvg: m.TCPPingAvg,
		TCPPingVar: m.TCPPingVar,
	}

	local := s.Crypt.Local
	o.send(s, &mumbleproto.Ping{
		Timestamp: m.Timestamp,
		Good:      mumbleproto.Ptr(local.Good),
		Late:      mumbleproto.Ptr(local.Late),
		Lost:      mumbleproto.Ptr(uint32(local.Lost)),
		Resync:    mumbleproto.Ptr(local.Resync),
	})
}

func (o *Orchestrator) onCryptSetup(s *core.Session, m *mumbleproto.CryptSetup) {
	if len(m.ClientNonce) == 0 {
		log.Debug().Str("module", "orch").Uint32("session", uint32(s.ID)).Msg("crypt resync requested")
		o.send(s, &mumbleproto.CryptSetup{ServerNonce: s.Crypt.EncryptIV()})
		return
	}
	if err := s.Crypt.SetDecryptIV(m.ClientNonce); err != nil {
		log.Warn().Str("module", "orch").Uint32("session", uint32(s.ID)).Err(err).Msg("bad client nonce")
		return
	}
	s.Crypt.Local.Resync++
}

// onVoiceTarget replaces the whole target. Ids outside 1..30 are ignored.
func (o *Orchestrator) onVoiceTarget(s *core.Session, m *mumbleproto.VoiceTarget) {
	var (
		channels []core.ChannelTarget
		sessions []domain.SessionID
	)
	for _, t := range m.Targets {
		for _, sid := range t.Sessions {
			sessions = append(sessions, domain.SessionID(sid))
		}
		if t.ChannelID != nil {
			channels = append(channels, core.ChannelTarget{
				Channel:  domain.ChannelID(*t.ChannelID),
				Links:    t.Links,
				Children: t.Children,
			})
		}
	}
	if err := s.Targets.SetTarget(m.ID, channels, sessions); err != nil {
		log.Debug().Str("module", "orch").Uint32("session", uint32(s.ID)).Uint32("target", m.ID).Err(err).Msg("voice target ignored")
	}
}
