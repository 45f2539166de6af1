package core

import (
	"slices"
	"sync"

	"github.com/dkeye/voipcore/internal/domain"
)

// ListenerRegistry records which sessions hear a channel without being in it.
// Both indexes change under one write lock, so readers never see half a pair.
type ListenerRegistry struct {
	mu        sync.RWMutex
	byChannel map[domain.ChannelID]map[domain.SessionID]struct{}
	bySession map[domain.SessionID]map[domain.ChannelID]struct{}
}

func NewListenerRegistry() *ListenerRegistry {
	return &ListenerRegistry{
		byChannel: make(map[domain.ChannelID]map[domain.SessionID]struct{}),
		bySession: make(map[domain.SessionID]map[domain.ChannelID]struct{}),
	}
}

// Add reports whether the pair was new.
func (r *ListenerRegistry) Add(sid domain.SessionID, ch domain.ChannelID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySession[sid][ch]; ok {
		return false
	}
	if r.byChannel[ch] == nil {
		r.byChannel[ch] = make(map[domain.SessionID]struct{})
	}
	if r.bySession[sid] == nil {
		r.bySession[sid] = make(map[domain.ChannelID]struct{})
	}
	r.byChannel[ch][sid] = struct{}{}
	r.bySession[sid][ch] = struct{}{}
	return true
}

// Remove reports whether the pair existed.
func (r *ListenerRegistry) Remove(sid domain.SessionID, ch domain.ChannelID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(sid, ch)
}

func (r *ListenerRegistry) removeLocked(sid domain.SessionID, ch domain.ChannelID) bool {
	if _, ok := r.bySession[sid][ch]; !ok {
		return false
	}
	delete(r.bySession[sid], ch)
	if len(r.bySession[sid]) == 0 {
		delete(r.bySession, sid)
	}
	delete(r.byChannel[ch], sid)
	if len(r.byChannel[ch]) == 0 {
		delete(r.byChannel, ch)
	}
	return true
}

func (r *ListenerRegistry) IsListening(sid domain.SessionID, ch domain.ChannelID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bySession[sid][ch]
	return ok
}

// ListenersOf returns the listening sessions in ascending order.
func (r *ListenerRegistry) ListenersOf(ch domain.ChannelID) []domain.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.SessionID, 0, len(r.byChannel[ch]))
	for sid := range r.byChannel[ch] {
		out = append(out, sid)
	}
	slices.Sort(out)
	return out
}

// ChannelsListenedBy returns channel ids in ascending order.
func (r *ListenerRegistry) ChannelsListenedBy(sid domain.SessionID) []domain.ChannelID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ChannelID, 0, len(r.bySession[sid]))
	for ch := range r.bySession[sid] {
		out = append(out, ch)
	}
	slices.Sort(out)
	return out
}

// RemoveSession drops every pair of sid.
func (r *ListenerRegistry) RemoveSession(sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.bySession[sid] {
		r.removeLocked(sid, ch)
	}
}

// RemoveChannel drops every pair of ch and returns the affected sessions.
func (r *ListenerRegistry) RemoveChannel(ch domain.ChannelID) []domain.SessionID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SessionID
	for sid := range r.byChannel[ch] {
		out = append(out, sid)
		r.removeLocked(sid, ch)
	}
	slices.Sort(out)
	return out
}

func (r *ListenerRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byChannel = make(map[domain.ChannelID]map[domain.SessionID]struct{})
	r.bySession = make(map[domain.SessionID]map[domain.ChannelID]struct{})
}
