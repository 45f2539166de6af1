package orch

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/dkeye/voipcore/internal/ban"
	"github.com/dkeye/voipcore/internal/core"
	"github.com/dkeye/voipcore/internal/domain"
	"github.com/dkeye/voipcore/internal/mumbleproto"
	"github.com/rs/zerolog/log"
)

// banTimeLayout is the ISO 8601 form BanList uses for start times.
const banTimeLayout = "2006-01-02T15:04:05"

var errBanAddress = errors.New("bad ban address")

func (o *Orchestrator) onUserRemove(s *core.Session, m *mumbleproto.UserRemove) {
	if !s.IsAdmin {
		o.deny(s, "Permission denied")
		return
	}
	t, ok := o.Registry.Get(domain.SessionID(m.Session))
	if !ok {
		log.Warn().Str("module", "orch.admin").Uint32("session", m.Session).Msg("remove for unknown session")
		return
	}

	var reason string
	if m.Reason != nil {
		reason = *m.Reason
	}
	if m.Ban != nil && *m.Ban {
		if !o.cfg.EnableBan {
			// the kick still goes through
			o.deny(s, "Permission denied")
		} else if err := o.Bans.RecordBan(ban.Identity{Name: t.Name, Addr: t.RemoteAddr().Addr()}, reason, o.cfg.BanLength); err != nil {
			log.Error().Str("module", "orch.admin").Uint32("session", uint32(t.ID)).Err(err).Msg("ban not recorded")
		} else {
			log.Info().Str("module", "orch.admin").Uint32("session", uint32(t.ID)).Str("name", t.Name).Str("reason", reason).Msg("user banned")
		}
	} else {
		if reason == "" {
			reason = "N/A"
		}
		log.Info().Str("module", "orch.admin").Uint32("session", uint32(t.ID)).Str("name", t.Name).Str("reason", reason).Msg("user kicked")
	}

	o.broadcast(&mumbleproto.UserRemove{
		Session: uint32(t.ID),
		Actor:   mumbleproto.Ptr(uint32(s.ID)),
		Reason:  m.Reason,
		Ban:     m.Ban,
	}, nil)
	t.Kicked = true
	o.disconnect(t)
}

func (o *Orchestrator) onBanList(s *core.Session, m *mumbleproto.BanList) {
	if !s.IsAdmin || !o.cfg.EnableBan {
		o.deny(s, "Permission denied")
		return
	}
	if m.Query {
		entries, err := o.Bans.Entries()
		if err != nil {
			log.Error().Str("module", "orch.admin").Err(err).Msg("ban list unavailable")
			return
		}
		out := &mumbleproto.BanList{Bans: make([]mumbleproto.BanEntry, 0, len(entries))}
		for _, e := range entries {
			out.Bans = append(out.Bans, banToWire(e))
		}
		o.send(s, out)
		return
	}

	entries := make([]ban.Entry, 0, len(m.Bans))
	for _, b := range m.Bans {
		e, err := banFromWire(b, o.now())
		if err != nil {
			log.Warn().Str("module", "orch.admin").Err(err).Msg("ban entry skipped")
			continue
		}
		entries = append(entries, e)
	}
	if err := o.Bans.SetEntries(entries); err != nil {
		log.Error().Str("module", "orch.admin").Err(err).Msg("ban list not replaced")
		return
	}
	log.Info().Str("module", "orch.admin").Uint32("session", uint32(s.ID)).Int("entries", len(entries)).Msg("ban list replaced")
}

// banToWire encodes the address as 16 bytes, IPv4 mapped into IPv6, with
// the mask counted in the same space.
func banToWire(e ban.Entry) mumbleproto.BanEntry {
	out := mumbleproto.BanEntry{
		Name:     e.Name,
		Hash:     e.Hash,
		Reason:   e.Reason,
		Start:    e.Start.UTC().Format(banTimeLayout),
		Duration: uint32(e.Duration / time.Second),
	}
	if e.Prefix.IsValid() {
		a16 := e.Prefix.Addr().As16()
		out.Address = a16[:]
		bits := e.Prefix.Bits()
		if e.Prefix.Addr().Is4() {
			bits += 96
		}
		out.Mask = uint32(bits)
	}
	return out
}

func banFromWire(b mumbleproto.BanEntry, now time.Time) (ban.Entry, error) {
	e := ban.Entry{
		Name:     b.Name,
		Hash:     b.Hash,
		Reason:   b.Reason,
		Start:    now,
		Duration: time.Duration(b.Duration) * time.Second,
	}
	if b.Start != "" {
		if t, err := time.Parse(banTimeLayout, b.Start); err == nil {
			e.Start = t
		}
	}
	if len(b.Address) == 0 {
		return e, nil
	}

	addr, ok := netip.AddrFromSlice(b.Address)
	if !ok {
		return ban.Entry{}, fmt.Errorf("%w: %d bytes", errBanAddress, len(b.Address))
	}
	bits := int(b.Mask)
	if addr.Is4In6() {
		addr = addr.Unmap()
		bits -= 96
	}
	if bits < 0 || bits > addr.BitLen() {
		return ban.Entry{}, fmt.Errorf("%w: mask %d", errBanAddress, b.Mask)
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return ban.Entry{}, fmt.Errorf("%w: %v", errBanAddress, err)
	}
	e.Prefix = prefix
	return e, nil
}

func (o *Orchestrator) onUserStats(s *core.Session, m *mumbleproto.UserStats) {
	if m.Session == nil {
		o.deny(s, "Not supported")
		return
	}
	t, ok := o.Registry.Get(domain.SessionID(*m.Session))
	if !ok || !t.Authenticated {
		return
	}
	details := m.StatsOnly == nil || !*m.StatsOnly
	now := o.now()

	local, remote := t.Crypt.Local, t.Crypt.Remote
	out := &mumbleproto.UserStats{
		Session: m.Session,
		FromClient: &mumbleproto.PacketStats{
			Good: local.Good, Late: local.Late, Lost: uint32(local.Lost), Resync: local.Resync,
		},
		FromServer: &mumbleproto.PacketStats{
			Good: remote.Good, Late: remote.Late, Lost: uint32(remote.Lost), Resync: remote.Resync,
		},
		UDPPackets: t.Ping.UDPPackets,
		TCPPackets: t.Ping.TCPPackets,
		UDPPingAvg: t.Ping.UDPPingAvg,
		UDPPingVar: t.Ping.UDPPingVar,
		TCPPingAvg: t.Ping.TCPPingAvg,
		TCPPingVar: t.Ping.TCPPingVar,
		Bandwidth:  uint32(max(t.Bandwidth, 0)),
		OnlineSecs: uint32(now.Sub(t.ConnectedAt) / time.Second),
		IdleSecs:   uint32(now.Sub(t.IdleSince) / time.Second),
	}
	if details {
		out.Version = &mumbleproto.Version{
			Version:   t.Client.Version,
			Release:   t.Client.Release,
			OS:        t.Client.OS,
			OSVersion: t.Client.OSVersion,
		}
		out.CeltVersions = append([]int32(nil), t.Codecs...)
		out.Opus = t.Opus
	}
	o.send(s, out)
}
