package core

import (
	"net/netip"
	"time"

	"github.com/dkeye/voipcore/internal/cryptstate"
	"github.com/dkeye/voipcore/internal/domain"
	"github.com/dkeye/voipcore/internal/mumbleproto"
)

// PingStats are the link quality figures a client reports in Ping.
type PingStats struct {
	UDPPackets uint32  `json:"udp_packets"`
	TCPPackets uint32  `json:"tcp_packets"`
	UDPPingAvg float32 `json:"udp_ping_avg"`
	UDPPingVar float32 `json:"udp_ping_var"`
	TCPPingAvg float32 `json:"tcp_ping_avg"`
	TCPPingVar float32 `json:"tcp_ping_var"`
}

// ClientVersion is what the peer announced in its Version message.
type ClientVersion struct {
	Version   uint32 `json:"version"`
	Release   string `json:"release,omitempty"`
	OS        string `json:"os,omitempty"`
	OSVersion string `json:"os_version,omitempty"`
}

// Session is the server side of one connected client. All fields are owned
// by the orchestrator and read or written only under its lock, except Outbox
// which is safe for concurrent use.
type Session struct {
	ID     domain.SessionID
	Conn   Conn
	Outbox *Outbox
	Crypt  *cryptstate.CryptState

	Targets *TargetTable
	Tokens  domain.TokenSet
	Voice   domain.VoiceState

	Authenticated bool
	Name          string
	IsAdmin       bool
	// Kicked is set once a removal has been announced, so teardown does not
	// announce it twice.
	Kicked bool

	Client        ClientVersion
	Codecs        []int32
	Opus          bool
	PluginContext []byte
	Ping          PingStats

	// Bandwidth is the byte budget left for voice in the current janitor tick.
	Bandwidth int

	UDPAddr netip.AddrPort
	// UDP is false while voice must go through the control stream.
	UDP bool

	ConnectedAt  time.Time
	LastActivity time.Time
	IdleSince    time.Time

	rx *mumbleproto.FrameBuffer
}

func NewSession(id domain.SessionID, conn Conn, maxFrame int, now time.Time) *Session {
	return &Session{
		ID:           id,
		Conn:         conn,
		Outbox:       NewOutbox(),
		Crypt:        cryptstate.New(),
		Targets:      NewTargetTable(),
		ConnectedAt:  now,
		LastActivity: now,
		IdleSince:    now,
		rx:           mumbleproto.NewFrameBuffer(maxFrame),
	}
}

// Feed appends received bytes to the reassembly buffer.
func (s *Session) Feed(b []byte) { s.rx.Write(b) }

// NextFrame returns the next complete control frame, if any.
func (s *Session) NextFrame() (mumbleproto.Kind, []byte, bool, error) {
	return s.rx.Next()
}

func (s *Session) RemoteAddr() netip.AddrPort {
	if s.Conn == nil {
		return netip.AddrPort{}
	}
	return s.Conn.RemoteAddr()
}

// User returns the public identity of the session.
func (s *Session) User() domain.User {
	return domain.User{Session: s.ID, Username: s.Name, IsAdmin: s.IsAdmin}
}

// SamePluginContext reports whether positional audio may pass from s to o.
func (s *Session) SamePluginContext(o *Session) bool {
	if len(s.PluginContext) == 0 || len(o.PluginContext) == 0 {
		return false
	}
	return string(s.PluginContext) == string(o.PluginContext)
}
