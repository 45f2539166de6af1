package domain

// VoiceState is the mute/deaf view of a participant.
// Server-forced and self-set flags are kept apart.
type VoiceState struct {
	Mute      bool `json:"mute"`
	Deaf      bool `json:"deaf"`
	SelfMute  bool `json:"self_mute"`
	SelfDeaf  bool `json:"self_deaf"`
	Suppress  bool `json:"suppress"`
	Recording bool `json:"recording"`
}

// StateChange lists the optional flags of a user-state request. Nil means untouched.
type StateChange struct {
	Mute     *bool
	Deaf     *bool
	SelfMute *bool
	SelfDeaf *bool
}

// Apply updates the state and returns the change as it must be announced.
// Deafening implies muting and unmuting implies undeafening, for both the
// forced and the self-set pair.
func (v *VoiceState) Apply(c StateChange) StateChange {
	if c.Deaf != nil {
		v.Deaf = *c.Deaf
		if v.Deaf {
			c.Mute = boolPtr(true)
		}
	}
	if c.Mute != nil {
		v.Mute = *c.Mute
		if !v.Mute {
			c.Deaf = boolPtr(false)
			v.Deaf = false
		}
	}
	if c.SelfDeaf != nil {
		v.SelfDeaf = *c.SelfDeaf
		if v.SelfDeaf {
			c.SelfMute = boolPtr(true)
		}
	}
	if c.SelfMute != nil {
		v.SelfMute = *c.SelfMute
		if !v.SelfMute {
			c.SelfDeaf = boolPtr(false)
			v.SelfDeaf = false
		}
	}
	return c
}

// Silenced reports whether audio from this participant must be dropped.
func (v VoiceState) Silenced() bool { return v.Mute || v.SelfMute }

// Deafened reports whether nothing may be delivered to this participant.
func (v VoiceState) Deafened() bool { return v.Deaf || v.SelfDeaf }

func boolPtr(b bool) *bool { return &b }
