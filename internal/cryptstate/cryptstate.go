// Package cryptstate implements the OCB2-AES128 transport used for voice
// datagrams: a 4 byte header (low IV byte plus a 3 byte truncated tag)
// followed by the ciphertext.
package cryptstate

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"
)

const (
	KeySize = aes.BlockSize
	// Overhead is the number of header bytes Encrypt prepends.
	Overhead = 4

	resyncInterval = 5 * time.Second
)

var (
	ErrNotInitialized = errors.New("cryptstate: key not set")
	ErrShortPacket    = errors.New("cryptstate: packet too short")
	ErrBadKeySize     = errors.New("cryptstate: key or nonce must be 16 bytes")
	ErrOutOfWindow    = errors.New("cryptstate: iv outside reorder window")
	ErrReplay         = errors.New("cryptstate: replayed packet")
	ErrAuthFailed     = errors.New("cryptstate: tag mismatch")
)

// Stats are the health counters of one direction. Lost may go negative when
// late packets correct an earlier gap estimate.
type Stats struct {
	Good   uint32 `json:"good"`
	Late   uint32 `json:"late"`
	Lost   int32  `json:"lost"`
	Resync uint32 `json:"resync"`
}

type CryptState struct {
	key       [KeySize]byte
	encryptIV [KeySize]byte
	decryptIV [KeySize]byte
	history   [256]byte
	cipher    cipher.Block

	// Local counts what this side decrypted; Remote is what the peer reports.
	Local  Stats
	Remote Stats

	LastGood    time.Time
	LastRequest time.Time

	Now func() time.Time
}

func New() *CryptState {
	return &CryptState{Now: time.Now}
}

func (cs *CryptState) now() time.Time {
	if cs.Now == nil {
		return time.Now()
	}
	return cs.Now()
}

// GenerateKey installs a fresh random key and IV pair.
func (cs *CryptState) GenerateKey() error {
	var buf [3 * KeySize]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Errorf("cryptstate: generate key: %w", err)
	}
	return cs.SetKey(buf[:KeySize], buf[KeySize:2*KeySize], buf[2*KeySize:])
}

func (cs *CryptState) SetKey(key, encryptIV, decryptIV []byte) error {
	if len(key) != KeySize || len(encryptIV) != KeySize || len(decryptIV) != KeySize {
		return ErrBadKeySize
	}
	c, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("cryptstate: %w", err)
	}
	cs.cipher = c
	copy(cs.key[:], key)
	copy(cs.encryptIV[:], encryptIV)
	copy(cs.decryptIV[:], decryptIV)
	cs.history = [256]byte{}
	now := cs.now()
	cs.LastGood = now
	cs.LastRequest = now
	return nil
}

func (cs *CryptState) IsValid() bool { return cs.cipher != nil }

func (cs *CryptState) Key() []byte       { return clone(cs.key[:]) }
func (cs *CryptState) EncryptIV() []byte { return clone(cs.encryptIV[:]) }
func (cs *CryptState) DecryptIV() []byte { return clone(cs.decryptIV[:]) }

// SetDecryptIV installs the nonce a peer sent during resync.
func (cs *CryptState) SetDecryptIV(iv []byte) error {
	if len(iv) != KeySize {
		return ErrBadKeySize
	}
	copy(cs.decryptIV[:], iv)
	return nil
}

// Encrypt advances the encrypt IV and seals plain.
func (cs *CryptState) Encrypt(plain []byte) ([]byte, error) {
	if cs.cipher == nil {
		return nil, ErrNotInitialized
	}
	increment(cs.encryptIV[:])

	out := make([]byte, len(plain)+Overhead)
	var tag block
	cs.ocbEncrypt(out[Overhead:], plain, cs.encryptIV[:], &tag)
	out[0] = cs.encryptIV[0]
	copy(out[1:Overhead], tag[:Overhead-1])
	return out, nil
}

// Decrypt opens a datagram. On any failure the decrypt IV is left as it was.
func (cs *CryptState) Decrypt(src []byte) ([]byte, error) {
	if cs.cipher == nil {
		return nil, ErrNotInitialized
	}
	if len(src) < Overhead {
		return nil, ErrShortPacket
	}

	saved := cs.decryptIV
	ivbyte := src[0]
	restore := false
	var late uint32
	var lost int32

	if cs.decryptIV[0]+1 == ivbyte {
		// In order.
		if ivbyte > cs.decryptIV[0] {
			cs.decryptIV[0] = ivbyte
		} else {
			cs.decryptIV[0] = ivbyte
			increment(cs.decryptIV[1:])
		}
	} else {
		diff := int(ivbyte) - int(cs.decryptIV[0])
		if diff > 128 {
			diff -= 256
		} else if diff < -128 {
			diff += 256
		}

		cur := cs.decryptIV[0]
		switch {
		case diff == 0:
			return nil, ErrReplay
		case ivbyte < cur && diff > -30 && diff < 0:
			late, lost, restore = 1, -1, true
			cs.decryptIV[0] = ivbyte
		case ivbyte > cur && diff > -30 && diff < 0:
			late, lost, restore = 1, -1, true
			cs.decryptIV[0] = ivbyte
			decrement(cs.decryptIV[1:])
		case ivbyte > cur && diff > 0:
			lost = int32(ivbyte) - int32(cur) - 1
			cs.decryptIV[0] = ivbyte
		case ivbyte < cur && diff > 0:
			lost = int32(256 - int(cur) + int(ivbyte) - 1)
			cs.decryptIV[0] = ivbyte
			increment(cs.decryptIV[1:])
		default:
			return nil, ErrOutOfWindow
		}

		if cs.history[cs.decryptIV[0]] == cs.decryptIV[1] {
			cs.decryptIV = saved
			return nil, ErrReplay
		}
	}

	plain := make([]byte, len(src)-Overhead)
	var tag block
	ok := cs.ocbDecrypt(plain, src[Overhead:], cs.decryptIV[:], &tag)
	if !ok || subtle.ConstantTimeCompare(tag[:Overhead-1], src[1:Overhead]) != 1 {
		cs.decryptIV = saved
		return nil, ErrAuthFailed
	}

	cs.history[cs.decryptIV[0]] = cs.decryptIV[1]
	if restore {
		cs.decryptIV = saved
	}
	cs.Local.Good++
	cs.Local.Late += late
	cs.Local.Lost += lost
	cs.LastGood = cs.now()
	return plain, nil
}

// ShouldRequestResync reports whether a resync request is due. It arms the
// request timer when it returns true.
func (cs *CryptState) ShouldRequestResync() bool {
	now := cs.now()
	if now.Sub(cs.LastGood) <= resyncInterval || now.Sub(cs.LastRequest) <= resyncInterval {
		return false
	}
	cs.LastRequest = now
	return true
}

func increment(b []byte) {
	for i := range b {
		b[i]++
		if b[i] != 0 {
			return
		}
	}
}

func decrement(b []byte) {
	for i := range b {
		b[i]--
		if b[i] != 0xFF {
			return
		}
	}
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
