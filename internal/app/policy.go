package app

import (
	"github.com/dkeye/voipcore/internal/core"
	"github.com/dkeye/voipcore/internal/mumbleproto"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens when a session's outbox refuses a frame.
type Policy interface {
	OnBackPressure(s *core.Session, kind mumbleproto.Kind) BackpressureAction
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(s *core.Session, kind mumbleproto.Kind) BackpressureAction

func (f PolicyFunc) OnBackPressure(s *core.Session, kind mumbleproto.Kind) BackpressureAction {
	return f(s, kind)
}

// SimplePolicy drops the frame.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(*core.Session, mumbleproto.Kind) BackpressureAction {
	return DropFrame
}
