package core

import (
	"sync"
	"testing"

	"github.com/dkeye/voipcore/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestListenerRegistry_AddIsIdempotent(t *testing.T) {
	r := NewListenerRegistry()
	assert.True(t, r.Add(2, 1))
	assert.False(t, r.Add(2, 1))

	assert.True(t, r.IsListening(2, 1))
	assert.Equal(t, []domain.SessionID{2}, r.ListenersOf(1))
	assert.Equal(t, []domain.ChannelID{1}, r.ChannelsListenedBy(2))
}

func TestListenerRegistry_RemoveMissingIsNoop(t *testing.T) {
	r := NewListenerRegistry()
	assert.False(t, r.Remove(2, 1))

	r.Add(2, 1)
	assert.True(t, r.Remove(2, 1))
	assert.False(t, r.IsListening(2, 1))
	assert.Empty(t, r.ListenersOf(1))
	assert.Empty(t, r.ChannelsListenedBy(2))
}

func TestListenerRegistry_RemoveSessionAndChannel(t *testing.T) {
	r := NewListenerRegistry()
	r.Add(1, 10)
	r.Add(1, 11)
	r.Add(2, 10)
	r.Add(3, 11)

	r.RemoveSession(1)
	assert.Equal(t, []domain.SessionID{2}, r.ListenersOf(10))
	assert.Equal(t, []domain.SessionID{3}, r.ListenersOf(11))

	assert.Equal(t, []domain.SessionID{3}, r.RemoveChannel(11))
	assert.Empty(t, r.ChannelsListenedBy(3))

	r.Clear()
	assert.Empty(t, r.ListenersOf(10))
}

func TestListenerRegistry_ConcurrentReaders(t *testing.T) {
	r := NewListenerRegistry()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(sid domain.SessionID) {
			defer wg.Done()
			for j := range 100 {
				ch := domain.ChannelID(j % 4)
				r.Add(sid, ch)
				// a pair is visible from both sides at once
				if r.IsListening(sid, ch) {
					assert.Contains(t, r.ChannelsListenedBy(sid), ch)
				}
				r.Remove(sid, ch)
			}
		}(domain.SessionID(i + 1))
	}
	wg.Wait()
	assert.Empty(t, r.ListenersOf(0))
}
