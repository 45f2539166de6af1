package orch

import (
	"net/netip"
	"slices"

	"github.com/dkeye/voipcore/internal/core"
	"github.com/dkeye/voipcore/internal/mumbleproto"
	"github.com/rs/zerolog/log"
)

const (
	// minDatagramSize is the crypt header plus one payload byte.
	minDatagramSize = 5
	// maxProbeFailures blacklists an unbound address until the next
	// successful authentication.
	maxProbeFailures = 3
)

// OnDatagram handles one datagram from the voice socket.
func (o *Orchestrator) OnDatagram(b []byte, from netip.AddrPort) {
	if mumbleproto.IsPing(b) {
		o.replyPing(b, from)
		return
	}
	if len(b) < minDatagramSize || len(b) > mumbleproto.MaxDatagramSize {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	s, plain := o.associate(b, from)
	if s == nil {
		return
	}
	s.UDP = true

	typ, _ := mumbleproto.SplitHeader(plain[0])
	switch typ {
	case mumbleproto.VoiceSpeex, mumbleproto.VoiceCELTAlpha, mumbleproto.VoiceCELTBeta:
		if o.Codecs.State().Opus {
			return
		}
		o.onVoice(s, plain)
	case mumbleproto.VoiceOpus, mumbleproto.VoicePing:
		o.onVoice(s, plain)
	default:
		log.Debug().Str("module", "orch.udp").Uint32("session", uint32(s.ID)).Uint8("type", uint8(typ)).Msg("unknown datagram type")
	}
}

func (o *Orchestrator) replyPing(b []byte, from netip.AddrPort) {
	if o.UDP == nil {
		return
	}
	reply := mumbleproto.PingReply(b, uint32(o.Registry.Len()), uint32(o.cfg.MaxClients), uint32(o.cfg.MaxBandwidth))
	if err := o.UDP.SendTo(reply, from); err != nil {
		log.Debug().Str("module", "orch.udp").Str("addr", from.String()).Err(err).Msg("ping reply failed")
	}
}

// associate finds the session a datagram belongs to and decrypts it. An
// unknown source is probed against every session connected from the same
// host and bound on the first successful decrypt.
func (o *Orchestrator) associate(b []byte, from netip.AddrPort) (*core.Session, []byte) {
	if s, ok := o.Registry.ByUDP(from); ok {
		plain, ok := o.checkDecrypt(s, b)
		if !ok {
			return nil, nil
		}
		return s, plain
	}

	host := from.Addr().Unmap()
	if o.udpFailures[host] >= maxProbeFailures {
		return nil, nil
	}
	probed := false
	for _, s := range o.Registry.SameHost(host) {
		if !s.Authenticated {
			continue
		}
		probed = true
		plain, ok := o.checkDecrypt(s, b)
		if !ok {
			continue
		}
		o.Registry.BindUDP(s, from)
		delete(o.udpFailures, host)
		log.Info().Str("module", "orch.udp").Uint32("session", uint32(s.ID)).Str("addr", from.String()).Msg("new udp connection")
		return s, plain
	}
	// Only hosts with a session to probe are tracked.
	if !probed {
		return nil, nil
	}
	o.udpFailures[host]++
	if o.udpFailures[host] == maxProbeFailures {
		log.Warn().Str("module", "orch.udp").Str("addr", host.String()).Msg("udp source blacklisted after failed probes")
	}
	return nil, nil
}

// checkDecrypt decrypts for s and asks for a resync when the stream has
// been failing for a while.
func (o *Orchestrator) checkDecrypt(s *core.Session, b []byte) ([]byte, bool) {
	if s.Crypt.IsValid() {
		plain, err := s.Crypt.Decrypt(b)
		if err == nil && len(plain) > 0 {
			return plain, true
		}
	}
	if s.Crypt.ShouldRequestResync() {
		log.Info().Str("module", "orch.udp").Uint32("session", uint32(s.ID)).Msg("requesting voice channel crypt resync")
		o.send(s, &mumbleproto.CryptSetup{})
	}
	return nil, false
}

// pruneUDPFailures forgets hosts that no longer have an authenticated session.
func (o *Orchestrator) pruneUDPFailures() {
	for host := range o.udpFailures {
		if !slices.ContainsFunc(o.Registry.SameHost(host), func(s *core.Session) bool { return s.Authenticated }) {
			delete(o.udpFailures, host)
		}
	}
}
