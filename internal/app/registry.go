package app

import (
	"net/netip"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/voipcore/internal/core"
	"github.com/dkeye/voipcore/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry indexes live sessions by session id, connection and bound UDP
// address. Session ids are the smallest free positive integer.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*core.Session
	byConn   map[core.ConnID]*core.Session
	byUDP    map[netip.AddrPort]*core.Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.SessionID]*core.Session),
		byConn:   make(map[core.ConnID]*core.Session),
		byUDP:    make(map[netip.AddrPort]*core.Session),
	}
}

// Add creates a session for conn under the smallest free id.
func (r *Registry) Add(conn core.Conn, maxFrame int, now time.Time) *core.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := domain.SessionID(1)
	for {
		if _, used := r.sessions[id]; !used {
			break
		}
		id++
	}
	s := core.NewSession(id, conn, maxFrame, now)
	r.sessions[id] = s
	r.byConn[conn.ID()] = s
	log.Info().Str("module", "app.registry").Uint32("session", uint32(id)).Str("conn", string(conn.ID())).Msg("session added")
	return s
}

func (r *Registry) Get(id domain.SessionID) (*core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) ByConn(id core.ConnID) (*core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byConn[id]
	return s, ok
}

func (r *Registry) ByUDP(addr netip.AddrPort) (*core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byUDP[addr]
	return s, ok
}

// BindUDP records the datagram source of s, replacing any earlier one.
func (r *Registry) BindUDP(s *core.Session, addr netip.AddrPort) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.UDPAddr.IsValid() {
		delete(r.byUDP, s.UDPAddr)
	}
	s.UDPAddr = addr
	r.byUDP[addr] = s
	log.Info().Str("module", "app.registry").Uint32("session", uint32(s.ID)).Str("udp", addr.String()).Msg("udp bound")
}

// Remove frees the id of s. It must be the last step of teardown.
func (r *Registry) Remove(s *core.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.ID]; !ok || cur != s {
		return
	}
	delete(r.sessions, s.ID)
	if s.Conn != nil {
		delete(r.byConn, s.Conn.ID())
	}
	if s.UDPAddr.IsValid() && r.byUDP[s.UDPAddr] == s {
		delete(r.byUDP, s.UDPAddr)
	}
	log.Info().Str("module", "app.registry").Uint32("session", uint32(s.ID)).Msg("session removed")
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// All returns the sessions ordered by id.
func (r *Registry) All() []*core.Session {
	r.mu.RLock()
	out := make([]*core.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b *core.Session) int { return int(a.ID) - int(b.ID) })
	return out
}

// Authenticated returns the authenticated sessions ordered by id.
func (r *Registry) Authenticated() []*core.Session {
	return slices.DeleteFunc(r.All(), func(s *core.Session) bool { return !s.Authenticated })
}

func (r *Registry) AuthenticatedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.sessions {
		if s.Authenticated {
			n++
		}
	}
	return n
}

// FindByName looks up an authenticated session by exact user name.
func (r *Registry) FindByName(name string) (*core.Session, bool) {
	for _, s := range r.Authenticated() {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// FindByPrefix returns the first authenticated session whose name starts with prefix.
func (r *Registry) FindByPrefix(prefix string) (*core.Session, bool) {
	for _, s := range r.Authenticated() {
		if strings.HasPrefix(s.Name, prefix) {
			return s, true
		}
	}
	return nil, false
}

// SameHost returns the sessions whose control connection comes from addr,
// for matching a first datagram to its session.
func (r *Registry) SameHost(addr netip.Addr) []*core.Session {
	addr = addr.Unmap()
	return slices.DeleteFunc(r.All(), func(s *core.Session) bool {
		return s.RemoteAddr().Addr().Unmap() != addr
	})
}
