package app

import (
	"github.com/dkeye/voipcore/internal/domain"
	"github.com/rs/zerolog/log"
)

// CompatCELT is CELT 0.7.0, the bitstream every legacy client understands.
const CompatCELT int32 = -0x7ffffff5 // 0x8000000b

const (
	OpusWarnUsing     = "<strong>WARNING:</strong> Your client doesn't support the Opus codec the server is using, you won't be able to talk or hear anyone. Please upgrade your Mumble client."
	OpusWarnSwitching = "<strong>WARNING:</strong> Your client doesn't support the Opus codec the server is switching to, you won't be able to talk or hear anyone. Please upgrade your Mumble client."
	NoCELTWarning     = "<strong>WARNING:</strong> Your client doesn't support the CELT codec, you won't be able to talk to or hear most clients. Please make sure your client was built with CELT support."
)

// CodecState is what CodecVersion announces.
type CodecState struct {
	Alpha       int32
	Beta        int32
	PreferAlpha bool
	Opus        bool
}

// CodecPeer is the codec view of one session.
type CodecPeer struct {
	Session       domain.SessionID
	Authenticated bool
	Codecs        []int32
	Opus          bool
}

// CodecOutcome tells the caller what to send after a recheck.
type CodecOutcome struct {
	// Announce is set when CodecVersion must go to every session.
	Announce bool
	State    CodecState
	// WarnUsing lists the connecting session when it cannot decode the current Opus stream.
	WarnUsing []domain.SessionID
	// WarnSwitching lists sessions left behind by the switch to Opus.
	WarnSwitching []domain.SessionID
}

// CodecNegotiator picks the server-wide codec by majority. It is not safe for
// concurrent use.
type CodecNegotiator struct {
	state     CodecState
	threshold int
}

func NewCodecNegotiator(opusThreshold int) *CodecNegotiator {
	return &CodecNegotiator{state: CodecState{Opus: true}, threshold: opusThreshold}
}

func (n *CodecNegotiator) State() CodecState { return n.state }

// Recheck recounts codec support over peers. connecting is the session that
// is authenticating right now, if any.
func (n *CodecNegotiator) Recheck(peers []CodecPeer, connecting *CodecPeer) CodecOutcome {
	type tally struct {
		codec int32
		count int
	}
	var counts []tally
	users, opus := 0, 0
	for _, p := range peers {
		if len(p.Codecs) == 0 && !p.Opus {
			continue
		}
		for _, c := range p.Codecs {
			found := false
			for i := range counts {
				if counts[i].codec == c {
					counts[i].count++
					found = true
				}
			}
			if !found {
				counts = append(counts, tally{codec: c, count: 1})
			}
		}
		users++
		if p.Opus {
			opus++
		}
	}
	if users == 0 {
		return CodecOutcome{State: n.state}
	}

	enableOpus := opus*100/users >= n.threshold

	max, version := 0, int32(0)
	for _, t := range counts {
		if t.count > max {
			max, version = t.count, t.codec
		}
	}

	current := n.state.Beta
	if n.state.PreferAlpha {
		current = n.state.Alpha
	}
	if max > 0 && current != version {
		if version == CompatCELT {
			n.state.PreferAlpha = true
		} else {
			n.state.PreferAlpha = !n.state.PreferAlpha
		}
		if n.state.PreferAlpha {
			n.state.Alpha = version
		} else {
			n.state.Beta = version
		}
	} else if n.state.Opus && enableOpus {
		out := CodecOutcome{State: n.state}
		if connecting != nil && !connecting.Opus {
			out.WarnUsing = []domain.SessionID{connecting.Session}
		}
		return out
	}

	announced := n.state
	announced.Opus = enableOpus
	out := CodecOutcome{Announce: true, State: announced}

	if enableOpus && !n.state.Opus {
		for _, p := range peers {
			isConnecting := connecting != nil && p.Session == connecting.Session
			if (p.Authenticated || isConnecting) && !p.Opus {
				out.WarnSwitching = append(out.WarnSwitching, p.Session)
			}
		}
		log.Info().Str("module", "app.codec").Msg("switching to opus")
	}
	n.state.Opus = enableOpus
	return out
}
