package ratelimit

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_SlidingWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := New(2, 10*time.Second)
	rl.Now = func() time.Time { return now }
	a := netip.MustParseAddr("192.0.2.1")
	b := netip.MustParseAddr("192.0.2.2")

	assert.True(t, rl.Allow(a))
	assert.True(t, rl.Allow(a))
	assert.False(t, rl.Allow(a))
	assert.True(t, rl.Allow(b))

	now = now.Add(11 * time.Second)
	assert.True(t, rl.Allow(a))
}

func TestLimiter_MappedAddressSharesBucket(t *testing.T) {
	rl := New(1, time.Minute)
	assert.True(t, rl.Allow(netip.MustParseAddr("192.0.2.1")))
	assert.False(t, rl.Allow(netip.MustParseAddr("::ffff:192.0.2.1")))
}

func TestLimiter_Sweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := New(5, time.Second)
	rl.Now = func() time.Time { return now }
	rl.Allow(netip.MustParseAddr("192.0.2.1"))
	assert.Equal(t, 1, rl.Len())

	now = now.Add(2 * time.Second)
	assert.Equal(t, 1, rl.Sweep())
	assert.Zero(t, rl.Len())
}

func TestLimiter_Disabled(t *testing.T) {
	rl := New(0, time.Second)
	for range 10 {
		assert.True(t, rl.Allow(netip.MustParseAddr("192.0.2.1")))
	}
}
