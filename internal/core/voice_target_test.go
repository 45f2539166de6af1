package core

import (
	"testing"

	"github.com/dkeye/voipcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetTable_RejectsInvalidIDs(t *testing.T) {
	tt := NewTargetTable()
	assert.ErrorIs(t, tt.SetTarget(0, nil, nil), ErrInvalidTarget)
	assert.ErrorIs(t, tt.SetTarget(31, nil, nil), ErrInvalidTarget)
	assert.ErrorIs(t, tt.AddSession(0x1F, 1), ErrInvalidTarget)
	assert.NoError(t, tt.SetTarget(MaxTargetID, nil, nil))
}

func TestTargetTable_CapacityIsSilent(t *testing.T) {
	tt := NewTargetTable()
	var chans []ChannelTarget
	for i := range MaxTargetChannels + 4 {
		chans = append(chans, ChannelTarget{Channel: domain.ChannelID(i)})
	}
	var sessions []domain.SessionID
	for i := range MaxTargetSessions + 4 {
		sessions = append(sessions, domain.SessionID(i+1))
	}
	require.NoError(t, tt.SetTarget(3, chans, sessions))

	vt, ok := tt.Get(3)
	require.True(t, ok)
	assert.Len(t, vt.Channels, MaxTargetChannels)
	assert.Len(t, vt.Sessions, MaxTargetSessions)

	require.NoError(t, tt.AddSession(3, 99))
	assert.NotContains(t, vt.Sessions, domain.SessionID(99))
}

func TestTargetTable_SetReplaces(t *testing.T) {
	tt := NewTargetTable()
	require.NoError(t, tt.SetTarget(1, []ChannelTarget{{Channel: 4, Children: true}}, nil))
	require.NoError(t, tt.SetTarget(1, nil, []domain.SessionID{5}))

	vt, ok := tt.Get(1)
	require.True(t, ok)
	assert.Empty(t, vt.Channels)
	assert.Equal(t, []domain.SessionID{5}, vt.Sessions)

	tt.Clear(1)
	_, ok = tt.Get(1)
	assert.False(t, ok)

	require.NoError(t, tt.AddChannel(2, ChannelTarget{Channel: 1}))
	tt.ClearAll()
	assert.Zero(t, tt.Len())
}
