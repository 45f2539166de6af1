package orch

import (
	"errors"

	"github.com/dkeye/voipcore/internal/core"
	"github.com/dkeye/voipcore/internal/mumbleproto"
	"github.com/rs/zerolog/log"
)

// packetOverhead approximates IP, UDP and crypt framing per voice packet.
const packetOverhead = 20 + 8 + 4

// onVoice handles a decrypted datagram or tunneled packet from s. Ping
// packets are echoed, everything else is routed as voice.
func (o *Orchestrator) onVoice(s *core.Session, data []byte) {
	if len(data) == 0 || len(data) > mumbleproto.MaxDatagramSize {
		return
	}
	typ, _ := mumbleproto.SplitHeader(data[0])
	if typ == mumbleproto.VoicePing {
		if err := o.sendUDP(s, data); err != nil {
			log.Debug().Str("module", "orch.media").Uint32("session", uint32(s.ID)).Err(err).Msg("ping echo failed")
		}
		return
	}
	o.routeVoice(s, data)
}

func (o *Orchestrator) routeVoice(s *core.Session, data []byte) {
	if !s.Authenticated || s.Voice.Silenced() {
		return
	}
	ch, ok := o.Channels.ChannelOf(s.ID)
	if !ok || ch.Silent {
		return
	}
	cost := packetOverhead + len(data)
	if s.Bandwidth-cost < 0 {
		return
	}
	s.Bandwidth -= cost
	now := o.now()
	s.IdleSince = now
	s.LastActivity = now

	pkt, err := mumbleproto.ParseVoicePacket(data)
	if err != nil {
		return
	}
	tracks := o.router.Route(s, pkt.Target)
	if len(tracks) == 0 {
		return
	}
	sent, dirty := o.relay.Forward(s.ID, pkt, tracks)
	if len(dirty) > 0 {
		log.Debug().Str("module", "orch.media").Uint32("session", uint32(s.ID)).Int("sent", sent).Int("failed", len(dirty)).Msg("voice partially delivered")
	}
}

// sendVoice is the relay's delivery hook.
func (o *Orchestrator) sendVoice(dst *core.Session, packet []byte) error {
	return o.sendUDP(dst, packet)
}

// sendUDP encrypts data for the session's datagram path, or tunnels it over
// the control stream while no UDP association exists. A full queue drops
// the packet silently.
func (o *Orchestrator) sendUDP(s *core.Session, data []byte) error {
	if o.UDP != nil && s.UDP && s.UDPAddr.IsValid() && s.Crypt.IsValid() {
		enc, err := s.Crypt.Encrypt(data)
		if err != nil {
			return err
		}
		return o.UDP.SendTo(enc, s.UDPAddr)
	}
	err := s.Outbox.Push(core.Frame(mumbleproto.EncodeFrame(mumbleproto.KindUDPTunnel, data)), true)
	if errors.Is(err, core.ErrQueueFull) {
		return nil
	}
	return err
}
