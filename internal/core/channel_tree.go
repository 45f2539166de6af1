package core

import (
	"iter"
	"slices"

	"github.com/dkeye/voipcore/internal/domain"
	"github.com/rs/zerolog/log"
)

// Channel is a node of the channel tree. Members and links are stored by id;
// sessions hold no pointer back to the channel.
type Channel struct {
	domain.Channel

	parent   *Channel
	children []*Channel
	members  []domain.SessionID
	links    []domain.ChannelID
}

func (c *Channel) Parent() *Channel { return c.parent }

func (c *Channel) Members() []domain.SessionID { return slices.Clone(c.members) }

func (c *Channel) MemberCount() int { return len(c.members) }

func (c *Channel) HasMember(sid domain.SessionID) bool { return slices.Contains(c.members, sid) }

func (c *Channel) Links() []domain.ChannelID { return slices.Clone(c.links) }

// JoinResult is the outcome of a join test. Several flags may be set at once.
type JoinResult struct {
	NotFound      bool
	NoEnter       bool
	WrongPassword bool
	Silent        bool
}

// TokenMatcher is satisfied by domain.TokenSet.
type TokenMatcher interface {
	Match(s string) bool
}

// ChannelTree is not safe for concurrent use; the orchestrator serializes access.
type ChannelTree struct {
	root     *Channel
	channels map[domain.ChannelID]*Channel
	memberOf map[domain.SessionID]*Channel
}

func NewChannelTree(rootName string) *ChannelTree {
	root := &Channel{Channel: domain.Channel{ID: domain.RootChannel, Name: rootName}}
	return &ChannelTree{
		root:     root,
		channels: map[domain.ChannelID]*Channel{domain.RootChannel: root},
		memberOf: make(map[domain.SessionID]*Channel),
	}
}

func (t *ChannelTree) Root() *Channel { return t.root }

func (t *ChannelTree) Len() int { return len(t.channels) }

func (t *ChannelTree) Get(id domain.ChannelID) (*Channel, bool) {
	ch, ok := t.channels[id]
	return ch, ok
}

// CreateChannel allocates the smallest unused id. The channel is not
// reachable from the root until AddChannel.
func (t *ChannelTree) CreateChannel(name, description string) *Channel {
	id := domain.RootChannel + 1
	for {
		if _, used := t.channels[id]; !used {
			break
		}
		id++
	}
	ch := &Channel{Channel: domain.Channel{ID: id, Name: name, Description: description}}
	t.channels[id] = ch
	return ch
}

func (t *ChannelTree) AddChannel(parent, child *Channel) {
	child.parent = parent
	parent.children = append(parent.children, child)
}

// RemoveChannel detaches ch from its parent and frees its id. Children are
// not removed recursively. Links pointing at ch are dropped.
func (t *ChannelTree) RemoveChannel(ch *Channel) {
	if ch == t.root {
		return
	}
	if p := ch.parent; p != nil {
		p.children = slices.DeleteFunc(p.children, func(c *Channel) bool { return c == ch })
		ch.parent = nil
	}
	delete(t.channels, ch.ID)
	for _, other := range t.channels {
		other.links = slices.DeleteFunc(other.links, func(id domain.ChannelID) bool { return id == ch.ID })
	}
	log.Info().Str("module", "core.channels").Int("channel", int(ch.ID)).Str("name", ch.Name).Msg("channel removed")
}

// Iterate walks the tree depth-first, parents before children.
func (t *ChannelTree) Iterate() iter.Seq[*Channel] {
	return func(yield func(*Channel) bool) {
		preorder(t.root, yield)
	}
}

// IterateSiblings yields the direct children of parent.
func (t *ChannelTree) IterateSiblings(parent *Channel) iter.Seq[*Channel] {
	return func(yield func(*Channel) bool) {
		for _, c := range parent.children {
			if !yield(c) {
				return
			}
		}
	}
}

// BuildDescendantList returns ch and all of its descendants in pre-order.
func (t *ChannelTree) BuildDescendantList(ch *Channel) []*Channel {
	var out []*Channel
	preorder(ch, func(c *Channel) bool {
		out = append(out, c)
		return true
	})
	return out
}

func preorder(c *Channel, yield func(*Channel) bool) bool {
	if !yield(c) {
		return false
	}
	for _, child := range c.children {
		if !preorder(child, yield) {
			return false
		}
	}
	return true
}

// TestJoin checks whether a session holding tokens may enter id. It does not
// change any state.
func (t *ChannelTree) TestJoin(id domain.ChannelID, tokens TokenMatcher) JoinResult {
	ch, ok := t.channels[id]
	if !ok {
		return JoinResult{NotFound: true}
	}
	var res JoinResult
	if ch.NoEnter {
		res.NoEnter = true
	}
	if ch.Password != "" && (tokens == nil || !tokens.Match(ch.Password)) {
		res.WrongPassword = true
	}
	if ch.Silent {
		res.Silent = true
	}
	return res
}

// Join moves sid into ch. It returns the id of the temporary channel that
// was removed because sid was its last member, or domain.NoChannel.
func (t *ChannelTree) Join(ch *Channel, sid domain.SessionID) domain.ChannelID {
	if cur, ok := t.memberOf[sid]; ok && cur == ch {
		return domain.NoChannel
	}
	removed := t.Leave(sid)
	ch.members = append(ch.members, sid)
	t.memberOf[sid] = ch
	log.Debug().Str("module", "core.channels").Uint32("session", uint32(sid)).Int("channel", int(ch.ID)).Msg("joined")
	return removed
}

// Leave takes sid out of its channel with the same temporary-channel rule as Join.
func (t *ChannelTree) Leave(sid domain.SessionID) domain.ChannelID {
	cur, ok := t.memberOf[sid]
	if !ok {
		return domain.NoChannel
	}
	delete(t.memberOf, sid)
	cur.members = slices.DeleteFunc(cur.members, func(m domain.SessionID) bool { return m == sid })
	if cur.Temporary && len(cur.members) == 0 {
		t.RemoveChannel(cur)
		return cur.ID
	}
	return domain.NoChannel
}

func (t *ChannelTree) ChannelOf(sid domain.SessionID) (*Channel, bool) {
	ch, ok := t.memberOf[sid]
	return ch, ok
}

// Link adds a one-directional link from -> to.
func (t *ChannelTree) Link(from, to *Channel) {
	if from == to || slices.Contains(from.links, to.ID) {
		return
	}
	from.links = append(from.links, to.ID)
}

func (t *ChannelTree) Unlink(from, to *Channel) {
	from.links = slices.DeleteFunc(from.links, func(id domain.ChannelID) bool { return id == to.ID })
}
