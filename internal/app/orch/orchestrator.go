// Package orch owns the shared server state and serializes every mutation
// of it: control messages, voice routing, UDP association and the janitor.
package orch

import (
	"errors"
	"fmt"
	"net/netip"
	"runtime"
	"sync"
	"time"

	"github.com/dkeye/voipcore/internal/app"
	"github.com/dkeye/voipcore/internal/app/sfu"
	"github.com/dkeye/voipcore/internal/ban"
	"github.com/dkeye/voipcore/internal/config"
	"github.com/dkeye/voipcore/internal/core"
	"github.com/dkeye/voipcore/internal/domain"
	"github.com/dkeye/voipcore/internal/mumbleproto"
	"github.com/rs/zerolog/log"
)

const (
	ServerRelease   = "voipcore"
	ServerOSVersion = "embedded voice server"
)

var ErrUnknownConn = errors.New("unknown connection")

type Orchestrator struct {
	Registry  *app.Registry
	Channels  *core.ChannelTree
	Listeners *core.ListenerRegistry
	Policy    app.Policy
	Bans      ban.Store
	Codecs    *app.CodecNegotiator
	// UDP may be nil; voice then always goes through the control stream.
	UDP core.DatagramSender
	Now func() time.Time

	cfg            *config.Config
	defaultChannel *core.Channel
	router         *sfu.Router
	relay          *sfu.Relay

	// mu is the single lock around the session, channel, listener and
	// target state.
	mu          sync.Mutex
	udpFailures map[netip.Addr]int
}

func New(cfg *config.Config, tree *core.ChannelTree, def *core.Channel, bans ban.Store) *Orchestrator {
	if bans == nil {
		bans = ban.NewMemoryStore()
	}
	o := &Orchestrator{
		Registry:       app.NewRegistry(),
		Channels:       tree,
		Listeners:      core.NewListenerRegistry(),
		Policy:         app.SimplePolicy{},
		Bans:           bans,
		Codecs:         app.NewCodecNegotiator(cfg.OpusThreshold),
		Now:            time.Now,
		cfg:            cfg,
		defaultChannel: def,
		udpFailures:    make(map[netip.Addr]int),
	}
	o.router = &sfu.Router{Tree: tree, Listeners: o.Listeners, Sessions: o.Registry}
	o.relay = sfu.NewRelay(o.sendVoice, log.With().Str("module", "sfu.relay").Logger())
	return o
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// Connect registers a new control connection and greets it with the
// server version.
func (o *Orchestrator) Connect(conn core.Conn) *core.Session {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.Registry.Add(conn, o.cfg.MaxMessageSize, o.now())
	s.Crypt.Now = o.now
	s.Bandwidth = o.cfg.BandwidthPerTick()
	o.send(s, &mumbleproto.Version{
		Version:   mumbleproto.ProtocolVersion,
		Release:   ServerRelease,
		OS:        runtime.GOOS,
		OSVersion: ServerOSVersion,
	})
	return s
}

// OnBytesReceived feeds stream bytes and dispatches every complete frame.
// A returned error means the connection must be closed.
func (o *Orchestrator) OnBytesReceived(id core.ConnID, b []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.Registry.ByConn(id)
	if !ok {
		return ErrUnknownConn
	}
	if s.Outbox.Closed() {
		return nil
	}
	s.LastActivity = o.now()
	s.Feed(b)
	for {
		kind, payload, ok, err := s.NextFrame()
		if err != nil {
			log.Warn().Str("module", "orch").Uint32("session", uint32(s.ID)).Err(err).Msg("bad frame")
			o.disconnect(s)
			return fmt.Errorf("session %d: %w", s.ID, err)
		}
		if !ok {
			return nil
		}
		if err := o.dispatch(s, kind, payload); err != nil {
			log.Warn().Str("module", "orch").Uint32("session", uint32(s.ID)).Stringer("kind", kind).Err(err).Msg("protocol violation")
			o.disconnect(s)
			return fmt.Errorf("session %d: %w", s.ID, err)
		}
		if s.Outbox.Closed() {
			return nil
		}
	}
}

// OnConnectionClosed tears the session down. The id is freed only after
// the leave and removal notices went out.
func (o *Orchestrator) OnConnectionClosed(id core.ConnID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.Registry.ByConn(id)
	if !ok {
		return
	}
	o.teardown(s)
}

func (o *Orchestrator) teardown(s *core.Session) {
	wasAuth := s.Authenticated
	if wasAuth {
		removed := o.Channels.Leave(s.ID)
		if removed != domain.NoChannel {
			o.channelRemoved(removed)
		}
		if !s.Kicked {
			o.broadcast(&mumbleproto.UserRemove{Session: uint32(s.ID)}, s)
		}
	}
	o.Listeners.RemoveSession(s.ID)
	s.Targets.ClearAll()
	s.Authenticated = false
	if n := s.Outbox.Discard(); n > 0 {
		log.Debug().Str("module", "orch").Uint32("session", uint32(s.ID)).Int("frames", n).Msg("queued frames released")
	}
	o.Registry.Remove(s)
	if wasAuth {
		o.recheckCodecs(nil)
	}
	log.Info().Str("module", "orch").Uint32("session", uint32(s.ID)).Str("name", s.Name).Msg("session closed")
}

// channelRemoved finishes the removal of a temporary channel that lost its
// last member. Its listeners are told they stopped listening first.
func (o *Orchestrator) channelRemoved(id domain.ChannelID) {
	for _, sid := range o.Listeners.RemoveChannel(id) {
		o.broadcast(&mumbleproto.UserState{
			Session:                mumbleproto.Ptr(uint32(sid)),
			ListeningChannelRemove: []uint32{uint32(id)},
		}, nil)
	}
	o.broadcast(&mumbleproto.ChannelRemove{ChannelID: uint32(id)}, nil)
}

// Send queues an already encoded frame on a connection.
func (o *Orchestrator) Send(id core.ConnID, frame core.Frame) error {
	s, ok := o.Registry.ByConn(id)
	if !ok {
		return ErrUnknownConn
	}
	return s.Outbox.Push(frame, false)
}

// send queues msg for s. Before authentication only Version and Reject go out.
func (o *Orchestrator) send(s *core.Session, msg mumbleproto.Message) {
	if !s.Authenticated && msg.Kind() != mumbleproto.KindVersion && msg.Kind() != mumbleproto.KindReject {
		return
	}
	o.push(s, msg.Kind(), core.Frame(mumbleproto.Encode(msg)), false)
}

func (o *Orchestrator) push(s *core.Session, kind mumbleproto.Kind, f core.Frame, tunnel bool) {
	err := s.Outbox.Push(f, tunnel)
	if err == nil || errors.Is(err, core.ErrOutboxClosed) {
		return
	}
	action := app.DropFrame
	if o.Policy != nil {
		action = o.Policy.OnBackPressure(s, kind)
	}
	switch action {
	case app.KickMember:
		log.Warn().Str("module", "orch").Uint32("session", uint32(s.ID)).Msg("outbound queue full, disconnecting")
		o.disconnect(s)
	case app.DropFrame, app.NoAction:
		log.Debug().Str("module", "orch").Uint32("session", uint32(s.ID)).Stringer("kind", kind).Msg("outbound queue full, frame dropped")
	}
}

// broadcast encodes msg once and queues it for every authenticated session
// except skip.
func (o *Orchestrator) broadcast(msg mumbleproto.Message, skip *core.Session) {
	f := core.Frame(mumbleproto.Encode(msg))
	for _, s := range o.Registry.Authenticated() {
		if s == skip {
			continue
		}
		o.push(s, msg.Kind(), f, false)
	}
}

// broadcastOlder sends msg to authenticated clients older than version.
func (o *Orchestrator) broadcastOlder(msg mumbleproto.Message, version uint32) {
	f := core.Frame(mumbleproto.Encode(msg))
	for _, s := range o.Registry.Authenticated() {
		if s.Client.Version < version {
			o.push(s, msg.Kind(), f, false)
		}
	}
}

func (o *Orchestrator) sendText(s *core.Session, text string) {
	o.send(s, &mumbleproto.TextMessage{Message: text, TreeIDs: []uint32{0}})
}

func (o *Orchestrator) deny(s *core.Session, reason string) {
	o.send(s, &mumbleproto.PermissionDenied{Type: mumbleproto.DenyText, Reason: reason})
}

func (o *Orchestrator) reject(s *core.Session, typ mumbleproto.RejectType, reason string) {
	log.Info().Str("module", "orch.auth").Uint32("session", uint32(s.ID)).Str("reason", reason).Msg("rejected")
	o.send(s, &mumbleproto.Reject{Type: typ, Reason: reason})
	o.disconnect(s)
}

// disconnect stops the session's outbox. The transport writes what is still
// queued, closes the connection and reports back with OnConnectionClosed.
func (o *Orchestrator) disconnect(s *core.Session) {
	s.Outbox.Close()
}
