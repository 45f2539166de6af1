// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strconv"
	"strings"
)

// MaxUsernameLen is exclusive: a name of this length is already rejected.
const MaxUsernameLen = 128

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUsernameTaken   = errors.New("username already in use")
)

type SessionID uint32

type User struct {
	Session  SessionID `json:"session"`
	Username string    `json:"username"`
	IsAdmin  bool      `json:"is_admin"`
}

// ValidateUsername applies the handshake name rules.
func ValidateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) >= MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}

// PlayerID extracts the host player id from names shaped like "[12]nick".
func PlayerID(username string) (int, bool) {
	if !strings.HasPrefix(username, "[") {
		return -1, false
	}
	end := strings.IndexByte(username, ']')
	if end < 2 {
		return -1, false
	}
	id, err := strconv.Atoi(username[1:end])
	if err != nil {
		return -1, false
	}
	return id, true
}
