package app

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Password is a configured secret, either plain text or a bcrypt hash.
type Password string

func (p Password) Set() bool { return p != "" }

func (p Password) hashed() bool {
	s := string(p)
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// Check compares a client supplied secret against p.
func (p Password) Check(candidate string) bool {
	if !p.Set() {
		return false
	}
	if p.hashed() {
		return bcrypt.CompareHashAndPassword([]byte(p), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(p), []byte(candidate)) == 1
}

// MatchAny reports whether any of the candidates matches.
func (p Password) MatchAny(candidates []string) bool {
	for _, c := range candidates {
		if p.Check(c) {
			return true
		}
	}
	return false
}
