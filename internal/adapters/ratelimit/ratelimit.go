// Package ratelimit throttles new connections per source address.
package ratelimit

import (
	"net/netip"
	"sync"
	"time"
)

// Limiter is a sliding window counter keyed by host address.
type Limiter struct {
	mu       sync.Mutex
	history  map[netip.Addr][]time.Time
	limit    int
	interval time.Duration

	Now func() time.Time
}

func New(limit int, interval time.Duration) *Limiter {
	return &Limiter{
		history:  make(map[netip.Addr][]time.Time),
		limit:    limit,
		interval: interval,
		Now:      time.Now,
	}
}

// Allow records an attempt from addr and reports whether it is within the
// limit. A limit of zero or less allows everything.
func (rl *Limiter) Allow(addr netip.Addr) bool {
	if rl.limit <= 0 {
		return true
	}
	addr = addr.Unmap()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[addr]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[addr] = fresh
		return false
	}
	rl.history[addr] = append(fresh, now)
	return true
}

// Sweep forgets addresses with no attempt inside the window.
func (rl *Limiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	windowStart := rl.Now().Add(-rl.interval)
	n := 0
	for addr, attempts := range rl.history {
		if len(attempts) == 0 || !attempts[len(attempts)-1].After(windowStart) {
			delete(rl.history, addr)
			n++
		}
	}
	return n
}

func (rl *Limiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.history)
}
