// Package tcp serves the TLS control stream.
package tcp

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/dkeye/voipcore/internal/adapters/ratelimit"
	"github.com/dkeye/voipcore/internal/core"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

const (
	readBufferSize   = 4096
	writeTimeout     = 5 * time.Second
	handshakeTimeout = 10 * time.Second
)

// Handler is the orchestrator side of a control connection.
type Handler interface {
	Connect(conn core.Conn) *core.Session
	OnBytesReceived(id core.ConnID, b []byte) error
	OnConnectionClosed(id core.ConnID)
}

type Server struct {
	Handler Handler
	TLS     *tls.Config
	// Limiter may be nil.
	Limiter *ratelimit.Limiter
}

// conn is a control connection as the orchestrator sees it.
type conn struct {
	id   core.ConnID
	nc   net.Conn
	addr netip.AddrPort
	once sync.Once
}

func newConn(nc net.Conn) *conn {
	c := &conn{id: core.NewConnID(), nc: nc}
	if ap, err := netip.ParseAddrPort(nc.RemoteAddr().String()); err == nil {
		c.addr = netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
	}
	return c
}

func (c *conn) ID() core.ConnID            { return c.id }
func (c *conn) RemoteAddr() netip.AddrPort { return c.addr }

func (c *conn) Close() error {
	var err error
	c.once.Do(func() { err = c.nc.Close() })
	return err
}

// ListenAndServe accepts until ctx is done, then waits for every
// connection to finish.
func (srv *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Info().Str("module", "adapters.tcp").Str("addr", ln.Addr().String()).Msg("control listener started")
	return srv.Serve(ctx, ln)
}

func (srv *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var wg conc.WaitGroup
	defer wg.Wait()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info().Str("module", "adapters.tcp").Msg("control listener stopped")
				return nil
			}
			log.Error().Err(err).Str("module", "adapters.tcp").Msg("accept")
			continue
		}
		if srv.Limiter != nil {
			if ap, err := netip.ParseAddrPort(nc.RemoteAddr().String()); err == nil && !srv.Limiter.Allow(ap.Addr()) {
				log.Warn().Str("module", "adapters.tcp").Str("addr", nc.RemoteAddr().String()).Msg("connection rate exceeded")
				_ = nc.Close()
				continue
			}
		}
		wg.Go(func() { srv.serve(ctx, nc) })
	}
}

func (srv *Server) serve(ctx context.Context, nc net.Conn) {
	if srv.TLS != nil {
		tc := tls.Server(nc, srv.TLS)
		_ = tc.SetDeadline(time.Now().Add(handshakeTimeout))
		if err := tc.HandshakeContext(ctx); err != nil {
			log.Debug().Err(err).Str("module", "adapters.tcp").Str("addr", nc.RemoteAddr().String()).Msg("tls handshake failed")
			_ = nc.Close()
			return
		}
		_ = tc.SetDeadline(time.Time{})
		nc = tc
	}

	c := newConn(nc)
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	s := srv.Handler.Connect(c)
	log.Info().Str("module", "adapters.tcp").Str("conn", string(c.id)).Uint32("session", uint32(s.ID)).Str("addr", c.addr.String()).Msg("connection accepted")

	done := make(chan struct{})
	go func() {
		defer close(done)
		writePump(c, s.Outbox)
	}()

	readPump(srv.Handler, c)
	s.Outbox.Close()
	<-done
	_ = c.Close()
	srv.Handler.OnConnectionClosed(c.id)
}

// writePump drains the outbox until it is closed, then closes the
// connection so the read side returns too.
func writePump(c *conn, out *core.Outbox) {
	defer c.Close()
	for f := range out.C() {
		if err := c.nc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			log.Error().Err(err).Str("module", "adapters.tcp").Msg("writePump set deadline")
			return
		}
		if _, err := c.nc.Write(f); err != nil {
			log.Debug().Err(err).Str("module", "adapters.tcp").Str("conn", string(c.id)).Msg("writePump write error")
			return
		}
	}
}

func readPump(h Handler, c *conn) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := c.nc.Read(buf)
		if n > 0 {
			if herr := h.OnBytesReceived(c.id, buf[:n]); herr != nil {
				log.Info().Err(herr).Str("module", "adapters.tcp").Str("conn", string(c.id)).Msg("closing on protocol error")
				return
			}
		}
		if err != nil {
			log.Debug().Err(err).Str("module", "adapters.tcp").Str("conn", string(c.id)).Msg("readPump closing")
			return
		}
	}
}
