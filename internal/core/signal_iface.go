package core

import (
	"net/netip"

	"github.com/google/uuid"
)

// Frame is an encoded control frame (header included).
type Frame []byte

// ConnID names one transport connection. Session ids are reused after a
// disconnect, connection ids never are.
type ConnID string

func NewConnID() ConnID { return ConnID(uuid.NewString()) }

// Conn abstracts the control-stream transport.
// Owned by the adapter; the adapter closes it once the outbox drains.
type Conn interface {
	ID() ConnID
	RemoteAddr() netip.AddrPort
	Close() error
}

// DatagramSender writes encrypted voice datagrams.
type DatagramSender interface {
	SendTo(b []byte, addr netip.AddrPort) error
}
