// Package ban decides who may not connect. Persistence is up to the Store
// implementation.
package ban

import (
	"net/netip"
	"strings"
	"time"
)

//go:generate mockgen -source=ban.go -destination=mock_store.go -package=ban

// Identity is what a connecting client is checked by.
type Identity struct {
	Name string
	// Hash is the hex SHA1 of the client certificate, if it sent one.
	Hash string
	Addr netip.Addr
}

// Entry is one ban. A zero Duration never expires.
type Entry struct {
	Prefix   netip.Prefix  `json:"prefix"`
	Name     string        `json:"name,omitempty"`
	Hash     string        `json:"hash,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
}

func (e Entry) Expired(now time.Time) bool {
	return e.Duration > 0 && !now.Before(e.Start.Add(e.Duration))
}

// Matches reports whether the entry covers id by name, certificate hash or
// address.
func (e Entry) Matches(id Identity) bool {
	if e.Name != "" && id.Name != "" && e.Name == id.Name {
		return true
	}
	if e.Hash != "" && id.Hash != "" && strings.EqualFold(e.Hash, id.Hash) {
		return true
	}
	return e.Prefix.IsValid() && id.Addr.IsValid() && e.Prefix.Contains(id.Addr.Unmap())
}

// Store is the ban list collaborator of the server.
type Store interface {
	IsBanned(id Identity) bool
	RecordBan(id Identity, reason string, duration time.Duration) error
	Entries() ([]Entry, error)
	SetEntries(entries []Entry) error
	// Prune drops expired entries and returns how many were dropped.
	Prune(now time.Time) (int, error)
}

// HostPrefix is the single-address prefix used when banning a connected client.
func HostPrefix(addr netip.Addr) netip.Prefix {
	if !addr.IsValid() {
		return netip.Prefix{}
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen())
}
