// Package udp serves the voice datagram socket.
package udp

import (
	"context"
	"errors"
	"net"
	"net/netip"

	"github.com/dkeye/voipcore/internal/core"
	"github.com/dkeye/voipcore/internal/mumbleproto"
	"github.com/rs/zerolog/log"
)

// Handler receives every datagram read from the socket.
type Handler interface {
	OnDatagram(b []byte, from netip.AddrPort)
}

// Socket is both the read loop and the orchestrator's DatagramSender.
type Socket struct {
	conn *net.UDPConn
}

var _ core.DatagramSender = (*Socket)(nil)

func Listen(addr string) (*Socket, error) {
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", ua)
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "adapters.udp").Str("addr", conn.LocalAddr().String()).Msg("voice socket open")
	return &Socket{conn: conn}, nil
}

func (s *Socket) LocalAddr() netip.AddrPort {
	return s.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

func (s *Socket) SendTo(b []byte, addr netip.AddrPort) error {
	_, err := s.conn.WriteToUDPAddrPort(b, addr)
	return err
}

// Serve reads until ctx is done. The buffer is reused, handlers must copy
// what they keep.
func (s *Socket) Serve(ctx context.Context, h Handler) error {
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	buf := make([]byte, mumbleproto.MaxDatagramSize+1)
	for {
		n, from, err := s.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info().Str("module", "adapters.udp").Msg("voice socket closed")
				return nil
			}
			log.Error().Err(err).Str("module", "adapters.udp").Msg("read")
			continue
		}
		from = netip.AddrPortFrom(from.Addr().Unmap(), from.Port())
		h.OnDatagram(buf[:n], from)
	}
}

func (s *Socket) Close() error { return s.conn.Close() }
