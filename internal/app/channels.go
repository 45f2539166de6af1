package app

import (
	"errors"
	"fmt"

	"github.com/dkeye/voipcore/internal/config"
	"github.com/dkeye/voipcore/internal/core"
	"github.com/rs/zerolog/log"
)

const DefaultRootName = "Root"

var (
	ErrUnknownParent  = errors.New("unknown parent channel")
	ErrDuplicateName  = errors.New("duplicate channel name")
	ErrUnknownChannel = errors.New("unknown channel")
)

// BuildChannelTree creates the persistent channels from config and returns
// the tree and the channel new sessions join. Parents must be listed before
// their children.
func BuildChannelTree(channels []config.Channel, links []config.ChannelLink, defaultName string) (*core.ChannelTree, *core.Channel, error) {
	rootName := DefaultRootName
	rest := channels
	if len(channels) > 0 && channels[0].Parent == "" {
		rootName = channels[0].Name
		rest = channels[1:]
	}
	tree := newTree(rootName, channels)

	byName := map[string]*core.Channel{rootName: tree.Root()}
	for _, c := range rest {
		if _, dup := byName[c.Name]; dup {
			return nil, nil, fmt.Errorf("%w: %q", ErrDuplicateName, c.Name)
		}
		parent, ok := byName[c.Parent]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q for %q", ErrUnknownParent, c.Parent, c.Name)
		}
		ch := tree.CreateChannel(c.Name, c.Description)
		ch.Password = c.Password
		ch.Position = c.Position
		ch.NoEnter = c.NoEnter
		ch.Silent = c.Silent
		tree.AddChannel(parent, ch)
		byName[c.Name] = ch
		log.Debug().Str("module", "app.channels").Str("name", c.Name).Int("id", int(ch.ID)).Str("parent", parent.Name).Msg("channel created")
	}

	for _, l := range links {
		src, ok := byName[l.Source]
		if !ok {
			return nil, nil, fmt.Errorf("%w: link source %q", ErrUnknownChannel, l.Source)
		}
		dst, ok := byName[l.Destination]
		if !ok {
			return nil, nil, fmt.Errorf("%w: link destination %q", ErrUnknownChannel, l.Destination)
		}
		tree.Link(src, dst)
	}

	def := tree.Root()
	if defaultName != "" {
		ch, ok := byName[defaultName]
		if !ok {
			return nil, nil, fmt.Errorf("%w: default channel %q", ErrUnknownChannel, defaultName)
		}
		def = ch
	}
	log.Info().Str("module", "app.channels").Int("channels", tree.Len()).Str("default", def.Name).Msg("channel tree ready")
	return tree, def, nil
}

// newTree creates the tree and copies the root's settings when the
// first configured channel is the root.
func newTree(rootName string, channels []config.Channel) *core.ChannelTree {
	tree := core.NewChannelTree(rootName)
	if len(channels) > 0 && channels[0].Parent == "" {
		root := tree.Root()
		root.Description = channels[0].Description
		root.Password = channels[0].Password
		root.NoEnter = channels[0].NoEnter
		root.Silent = channels[0].Silent
	}
	return tree
}
