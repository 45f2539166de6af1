package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutbox_TunnelLimit(t *testing.T) {
	o := NewOutbox()
	for range TunnelQueueLimit + 1 {
		require.NoError(t, o.Push(Frame{1}, true))
	}
	assert.ErrorIs(t, o.Push(Frame{1}, true), ErrQueueFull)
	assert.NoError(t, o.Push(Frame{2}, false))
}

func TestOutbox_HardLimit(t *testing.T) {
	o := NewOutbox()
	for range QueueLimit + 1 {
		require.NoError(t, o.Push(Frame{1}, false))
	}
	assert.ErrorIs(t, o.Push(Frame{1}, false), ErrQueueFull)
	assert.Equal(t, QueueLimit+1, o.Len())
}

func TestOutbox_CloseKeepsQueuedFrames(t *testing.T) {
	o := NewOutbox()
	require.NoError(t, o.Push(Frame{7}, false))
	o.Close()
	o.Close()

	assert.True(t, o.Closed())
	assert.ErrorIs(t, o.Push(Frame{8}, false), ErrOutboxClosed)

	f, ok := <-o.C()
	require.True(t, ok)
	assert.Equal(t, Frame{7}, f)
	_, ok = <-o.C()
	assert.False(t, ok)
}

func TestOutbox_Discard(t *testing.T) {
	o := NewOutbox()
	for range 3 {
		require.NoError(t, o.Push(Frame{1}, false))
	}
	assert.Equal(t, 3, o.Discard())
	assert.Zero(t, o.Len())
}
