package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	assert.ErrorIs(t, ValidateUsername(""), ErrUsernameEmpty)
	assert.ErrorIs(t, ValidateUsername(strings.Repeat("a", MaxUsernameLen)), ErrUsernameTooLong)
	assert.NoError(t, ValidateUsername(strings.Repeat("a", MaxUsernameLen-1)))
	assert.NoError(t, ValidateUsername("alice"))
}

func TestPlayerID(t *testing.T) {
	id, ok := PlayerID("[42]alice")
	require.True(t, ok)
	assert.Equal(t, 42, id)

	for _, name := range []string{"alice", "[]alice", "[x1]alice", "[12alice"} {
		_, ok := PlayerID(name)
		assert.False(t, ok, name)
	}
}

func TestTokenSet(t *testing.T) {
	var ts TokenSet
	require.NoError(t, ts.Add("Secret", "other"))
	assert.True(t, ts.Match("secret"))
	assert.False(t, ts.Match("missing"))

	assert.ErrorIs(t, ts.Add(strings.Repeat("x", MaxTokenLen+1)), ErrTokenTooLong)
	assert.Equal(t, 2, ts.Len())

	many := make([]string, MaxTokens-2)
	for i := range many {
		many[i] = "t"
	}
	assert.ErrorIs(t, ts.Add(many...), ErrTooManyTokens)
	assert.Equal(t, 2, ts.Len())

	ts.Clear()
	assert.Zero(t, ts.Len())
	assert.False(t, ts.Match("secret"))
}

func TestVoiceStateCoupling(t *testing.T) {
	yes, no := true, false

	var v VoiceState
	out := v.Apply(StateChange{Deaf: &yes})
	assert.True(t, v.Deaf)
	assert.True(t, v.Mute)
	require.NotNil(t, out.Mute)
	assert.True(t, *out.Mute)

	out = v.Apply(StateChange{Mute: &no})
	assert.False(t, v.Mute)
	assert.False(t, v.Deaf)
	require.NotNil(t, out.Deaf)
	assert.False(t, *out.Deaf)

	v.Apply(StateChange{SelfDeaf: &yes})
	assert.True(t, v.SelfMute)
	assert.True(t, v.Deafened())
	assert.True(t, v.Silenced())

	v.Apply(StateChange{SelfMute: &no})
	assert.False(t, v.SelfDeaf)
	assert.False(t, v.Deafened())
}
