package domain

import (
	"errors"
	"strings"
)

const (
	MaxTokens   = 32
	MaxTokenLen = 63
)

var (
	ErrTooManyTokens = errors.New("too many tokens")
	ErrTokenTooLong  = errors.New("too long token")
)

// TokenSet holds the access tokens a client presented. Channel passwords and
// the admin password are matched against it.
type TokenSet struct {
	tokens []string
}

// Add appends tokens as one batch. The batch is rejected whole when it would
// reach the limit or when any single token is too long.
func (t *TokenSet) Add(tokens ...string) error {
	if len(t.tokens)+len(tokens) >= MaxTokens {
		return ErrTooManyTokens
	}
	for _, tok := range tokens {
		if len(tok) > MaxTokenLen {
			return ErrTokenTooLong
		}
	}
	t.tokens = append(t.tokens, tokens...)
	return nil
}

func (t *TokenSet) Clear() { t.tokens = nil }

func (t *TokenSet) Len() int { return len(t.tokens) }

// Match compares case-insensitively.
func (t *TokenSet) Match(s string) bool {
	for _, tok := range t.tokens {
		if strings.EqualFold(tok, s) {
			return true
		}
	}
	return false
}

func (t *TokenSet) List() []string {
	out := make([]string, len(t.tokens))
	copy(out, t.tokens)
	return out
}
