package core

import (
	"slices"
	"testing"

	"github.com/dkeye/voipcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTree(t *testing.T) (*ChannelTree, *Channel, *Channel, *Channel) {
	t.Helper()
	tree := NewChannelTree("Root")
	lobby := tree.CreateChannel("Lobby", "")
	tree.AddChannel(tree.Root(), lobby)
	quiet := tree.CreateChannel("Quiet", "")
	tree.AddChannel(tree.Root(), quiet)
	sub := tree.CreateChannel("Sub", "")
	tree.AddChannel(lobby, sub)
	require.Equal(t, domain.ChannelID(1), lobby.ID)
	require.Equal(t, domain.ChannelID(2), quiet.ID)
	return tree, lobby, quiet, sub
}

func ids(chs []*Channel) []domain.ChannelID {
	out := make([]domain.ChannelID, 0, len(chs))
	for _, c := range chs {
		out = append(out, c.ID)
	}
	return out
}

func TestChannelTree_IterateIsPreorderAndRestartable(t *testing.T) {
	tree, _, _, _ := newTree(t)

	first := ids(slices.Collect(tree.Iterate()))
	second := ids(slices.Collect(tree.Iterate()))
	assert.Equal(t, []domain.ChannelID{0, 1, 3, 2}, first)
	assert.Equal(t, first, second)

	siblings := ids(slices.Collect(tree.IterateSiblings(tree.Root())))
	assert.Equal(t, []domain.ChannelID{1, 2}, siblings)
}

func TestChannelTree_Descendants(t *testing.T) {
	tree, lobby, _, sub := newTree(t)
	deep := tree.CreateChannel("Deep", "")
	tree.AddChannel(sub, deep)

	assert.Equal(t, []domain.ChannelID{lobby.ID, sub.ID, deep.ID}, ids(tree.BuildDescendantList(lobby)))
	assert.Equal(t, []domain.ChannelID{deep.ID}, ids(tree.BuildDescendantList(deep)))
}

func TestChannelTree_CreateReusesSmallestID(t *testing.T) {
	tree, _, quiet, _ := newTree(t)
	tree.RemoveChannel(quiet)
	_, ok := tree.Get(quiet.ID)
	assert.False(t, ok)

	again := tree.CreateChannel("Again", "")
	assert.Equal(t, quiet.ID, again.ID)
}

func TestChannelTree_TemporaryChannelRemovedWhenEmpty(t *testing.T) {
	tree, lobby, _, _ := newTree(t)
	tmp := tree.CreateChannel("tmp", "")
	tmp.Temporary = true
	tree.AddChannel(lobby, tmp)

	assert.Equal(t, domain.NoChannel, tree.Join(tmp, 1))
	assert.Equal(t, domain.NoChannel, tree.Join(tmp, 2))
	assert.Equal(t, domain.NoChannel, tree.Join(lobby, 1))

	removed := tree.Join(lobby, 2)
	assert.Equal(t, tmp.ID, removed)
	_, ok := tree.Get(tmp.ID)
	assert.False(t, ok)
	assert.NotContains(t, ids(slices.Collect(tree.Iterate())), tmp.ID)
}

func TestChannelTree_PersistentChannelKept(t *testing.T) {
	tree, lobby, quiet, _ := newTree(t)
	tree.Join(lobby, 1)
	assert.Equal(t, domain.NoChannel, tree.Join(quiet, 1))
	assert.Equal(t, domain.NoChannel, tree.Leave(1))

	_, ok := tree.Get(lobby.ID)
	assert.True(t, ok)
	assert.Zero(t, quiet.MemberCount())
}

func TestChannelTree_JoinSameChannelIsNoop(t *testing.T) {
	tree, lobby, _, _ := newTree(t)
	tree.Join(lobby, 7)
	tree.Join(lobby, 7)
	assert.Equal(t, []domain.SessionID{7}, lobby.Members())

	ch, ok := tree.ChannelOf(7)
	require.True(t, ok)
	assert.Same(t, lobby, ch)
}

func TestChannelTree_TestJoin(t *testing.T) {
	tree, lobby, quiet, _ := newTree(t)
	lobby.Password = "secret"
	quiet.NoEnter = true
	quiet.Silent = true

	var tokens domain.TokenSet
	assert.Equal(t, JoinResult{NotFound: true}, tree.TestJoin(42, &tokens))
	assert.Equal(t, JoinResult{WrongPassword: true}, tree.TestJoin(lobby.ID, &tokens))
	assert.Equal(t, JoinResult{NoEnter: true, Silent: true}, tree.TestJoin(quiet.ID, &tokens))

	require.NoError(t, tokens.Add("SECRET"))
	assert.Equal(t, JoinResult{}, tree.TestJoin(lobby.ID, &tokens))
	assert.Empty(t, lobby.Members())
}

func TestChannelTree_Links(t *testing.T) {
	tree, lobby, quiet, _ := newTree(t)
	tree.Link(lobby, quiet)
	tree.Link(lobby, quiet)
	tree.Link(lobby, lobby)
	assert.Equal(t, []domain.ChannelID{quiet.ID}, lobby.Links())

	tree.RemoveChannel(quiet)
	assert.Empty(t, lobby.Links())
}
