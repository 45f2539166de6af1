package sfu

import (
	"sync/atomic"

	"github.com/dkeye/voipcore/internal/core"
)

type TrackState int32

const (
	TrackStateOk TrackState = iota
	// TrackStateMuted recipients are routed to but receive nothing.
	TrackStateMuted
	TrackStateDelete
)

// OutTrack is one recipient of one voice packet.
type OutTrack struct {
	Dst *core.Session
	// Flag replaces the target bits of the relayed header.
	Flag uint8
	// KeepPosition leaves the positional trailer in place.
	KeepPosition bool

	state atomic.Int32
}

func NewOutTrack(dst *core.Session, flag uint8) *OutTrack {
	return &OutTrack{Dst: dst, Flag: flag}
}

func (ot *OutTrack) GetState() TrackState {
	return TrackState(ot.state.Load())
}

func (ot *OutTrack) MarkOk() {
	ot.state.Store(int32(TrackStateOk))
}

func (ot *OutTrack) MarkMuted() {
	ot.state.Store(int32(TrackStateMuted))
}

func (ot *OutTrack) MarkDelete() {
	ot.state.Store(int32(TrackStateDelete))
}
