package sfu

import (
	"github.com/dkeye/voipcore/internal/core"
	"github.com/dkeye/voipcore/internal/domain"
	"github.com/dkeye/voipcore/internal/mumbleproto"
	"github.com/rs/zerolog"
)

// Sender delivers one relayed voice packet to a session, over UDP or the
// control stream.
type Sender func(dst *core.Session, packet []byte) error

// Relay shapes a packet per recipient and hands it to the sender. Recipients
// that need the same bytes share one buffer; buffers are never modified after
// they are built.
type Relay struct {
	send   Sender
	logger zerolog.Logger
}

func NewRelay(send Sender, logger zerolog.Logger) *Relay {
	return &Relay{send: send, logger: logger}
}

type shape struct {
	flag       uint8
	positional bool
}

// Forward sends pkt from sender to every track that is not muted and returns
// the tracks whose delivery failed, marked for delete.
func (r *Relay) Forward(sender domain.SessionID, pkt mumbleproto.VoicePacket, tracks []*OutTrack) (sent int, dirty []*OutTrack) {
	built := make(map[shape][]byte, 2)
	for _, ot := range tracks {
		switch ot.GetState() {
		case TrackStateDelete, TrackStateMuted:
			continue
		case TrackStateOk:
		}
		key := shape{flag: ot.Flag, positional: ot.KeepPosition && pkt.PosLen > 0}
		buf, ok := built[key]
		if !ok {
			buf = pkt.Relay(key.flag, uint32(sender), key.positional)
			built[key] = buf
		}
		if err := r.send(ot.Dst, buf); err != nil {
			r.logger.Debug().
				Err(err).
				Uint32("dst", uint32(ot.Dst.ID)).
				Msg("voice delivery failed")
			ot.MarkDelete()
			dirty = append(dirty, ot)
			continue
		}
		sent++
	}
	return sent, dirty
}
