package core

import (
	"time"

	"github.com/dkeye/voipcore/internal/cryptstate"
	"github.com/dkeye/voipcore/internal/domain"
)

// SessionSnapshot is a read-only copy of a session for telemetry.
type SessionSnapshot struct {
	Session       domain.SessionID   `json:"session"`
	Name          string             `json:"name"`
	Authenticated bool               `json:"authenticated"`
	IsAdmin       bool               `json:"is_admin"`
	Channel       domain.ChannelID   `json:"channel"`
	Listening     []domain.ChannelID `json:"listening,omitempty"`
	Voice         domain.VoiceState  `json:"voice"`
	Address       string             `json:"address"`
	UDP           bool               `json:"udp"`
	Client        ClientVersion      `json:"client"`
	Codecs        []int32            `json:"codecs,omitempty"`
	Opus          bool               `json:"opus"`
	Bandwidth     int                `json:"bandwidth"`
	Local         cryptstate.Stats   `json:"crypt_local"`
	Remote        cryptstate.Stats   `json:"crypt_remote"`
	Ping          PingStats          `json:"ping"`
	OnlineSecs    int64              `json:"online_secs"`
	IdleSecs      int64              `json:"idle_secs"`
}

// ChannelSnapshot is one channel with its members, nested as in the tree.
type ChannelSnapshot struct {
	domain.Channel
	Parent   *domain.ChannelID  `json:"parent,omitempty"`
	Links    []domain.ChannelID `json:"links,omitempty"`
	Members  []domain.SessionID `json:"members"`
	Children []ChannelSnapshot  `json:"children,omitempty"`
}

func (s *Session) Snapshot(ch domain.ChannelID, listening []domain.ChannelID, now time.Time) SessionSnapshot {
	return SessionSnapshot{
		Session:       s.ID,
		Name:          s.Name,
		Authenticated: s.Authenticated,
		IsAdmin:       s.IsAdmin,
		Channel:       ch,
		Listening:     listening,
		Voice:         s.Voice,
		Address:       s.RemoteAddr().String(),
		UDP:           s.UDP,
		Client:        s.Client,
		Codecs:        append([]int32(nil), s.Codecs...),
		Opus:          s.Opus,
		Bandwidth:     s.Bandwidth,
		Local:         s.Crypt.Local,
		Remote:        s.Crypt.Remote,
		Ping:          s.Ping,
		OnlineSecs:    int64(now.Sub(s.ConnectedAt).Seconds()),
		IdleSecs:      int64(now.Sub(s.IdleSince).Seconds()),
	}
}

// Snapshot copies the subtree rooted at c.
func (c *Channel) Snapshot() ChannelSnapshot {
	out := ChannelSnapshot{
		Channel: c.Channel,
		Links:   c.Links(),
		Members: c.Members(),
	}
	if c.parent != nil {
		id := c.parent.ID
		out.Parent = &id
	}
	for _, child := range c.children {
		out.Children = append(out.Children, child.Snapshot())
	}
	return out
}
