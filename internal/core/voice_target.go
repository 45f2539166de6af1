package core

import (
	"errors"

	"github.com/dkeye/voipcore/internal/domain"
)

const (
	MinTargetID = 1
	MaxTargetID = 30

	MaxTargetChannels = 16
	MaxTargetSessions = 32
)

var ErrInvalidTarget = errors.New("voice target id out of range")

// ChannelTarget is one channel entry of a whisper target.
type ChannelTarget struct {
	Channel  domain.ChannelID
	Links    bool
	Children bool
}

type VoiceTarget struct {
	ID       uint8
	Channels []ChannelTarget
	Sessions []domain.SessionID
}

// TargetTable holds the whisper targets configured by one session.
type TargetTable struct {
	targets map[uint8]*VoiceTarget
}

func NewTargetTable() *TargetTable {
	return &TargetTable{targets: make(map[uint8]*VoiceTarget)}
}

func validTarget(id uint32) bool { return id >= MinTargetID && id <= MaxTargetID }

// SetTarget replaces target id. Entries past capacity are ignored.
func (t *TargetTable) SetTarget(id uint32, channels []ChannelTarget, sessions []domain.SessionID) error {
	if !validTarget(id) {
		return ErrInvalidTarget
	}
	vt := &VoiceTarget{ID: uint8(id)}
	t.targets[vt.ID] = vt
	for _, c := range channels {
		t.addChannel(vt, c)
	}
	for _, s := range sessions {
		t.addSession(vt, s)
	}
	return nil
}

// AddChannel appends to target id, creating it when needed.
func (t *TargetTable) AddChannel(id uint32, c ChannelTarget) error {
	vt, err := t.ensure(id)
	if err != nil {
		return err
	}
	t.addChannel(vt, c)
	return nil
}

func (t *TargetTable) AddSession(id uint32, sid domain.SessionID) error {
	vt, err := t.ensure(id)
	if err != nil {
		return err
	}
	t.addSession(vt, sid)
	return nil
}

func (t *TargetTable) ensure(id uint32) (*VoiceTarget, error) {
	if !validTarget(id) {
		return nil, ErrInvalidTarget
	}
	vt, ok := t.targets[uint8(id)]
	if !ok {
		vt = &VoiceTarget{ID: uint8(id)}
		t.targets[vt.ID] = vt
	}
	return vt, nil
}

func (t *TargetTable) addChannel(vt *VoiceTarget, c ChannelTarget) {
	if len(vt.Channels) < MaxTargetChannels {
		vt.Channels = append(vt.Channels, c)
	}
}

func (t *TargetTable) addSession(vt *VoiceTarget, sid domain.SessionID) {
	if len(vt.Sessions) < MaxTargetSessions {
		vt.Sessions = append(vt.Sessions, sid)
	}
}

func (t *TargetTable) Get(id uint32) (*VoiceTarget, bool) {
	if !validTarget(id) {
		return nil, false
	}
	vt, ok := t.targets[uint8(id)]
	return vt, ok
}

func (t *TargetTable) Clear(id uint32) {
	if validTarget(id) {
		delete(t.targets, uint8(id))
	}
}

func (t *TargetTable) ClearAll() {
	clear(t.targets)
}

func (t *TargetTable) Len() int { return len(t.targets) }
