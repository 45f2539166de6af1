// Package signal bridges browser clients to the control stream over a
// websocket. Each binary message carries control frames verbatim.
package signal

import (
	"context"
	"net/http"
	"net/netip"
	"sync"

	"github.com/dkeye/voipcore/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Handler is the orchestrator side of a control connection.
type Handler interface {
	Connect(conn core.Conn) *core.Session
	OnBytesReceived(id core.ConnID, b []byte) error
	OnConnectionClosed(id core.ConnID)
}

type VoiceWSController struct {
	Handler Handler
	// MaxMessage bounds a single websocket message.
	MaxMessage int64
}

func NewVoiceWSController(h Handler, maxMessage int) *VoiceWSController {
	return &VoiceWSController{Handler: h, MaxMessage: int64(maxMessage)}
}

type WsVoiceConn struct {
	id   core.ConnID
	conn *websocket.Conn
	addr netip.AddrPort

	once sync.Once
}

func (c *WsVoiceConn) ID() core.ConnID            { return c.id }
func (c *WsVoiceConn) RemoteAddr() netip.AddrPort { return c.addr }

func (c *WsVoiceConn) Close() error {
	var err error
	c.once.Do(func() { err = c.conn.Close() })
	return err
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// remoteAddr prefers the proxied client ip gin resolved, keeping the
// socket port.
func remoteAddr(c *gin.Context) netip.AddrPort {
	ap, _ := netip.ParseAddrPort(c.Request.RemoteAddr)
	if ip, err := netip.ParseAddr(c.ClientIP()); err == nil {
		return netip.AddrPortFrom(ip.Unmap(), ap.Port())
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}

func (ctl *VoiceWSController) HandleVoice(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.MaxMessage > 0 {
		ws.SetReadLimit(ctl.MaxMessage)
	}

	conn := &WsVoiceConn{
		id:   core.NewConnID(),
		conn: ws,
		addr: remoteAddr(c),
	}
	s := ctl.Handler.Connect(conn)
	log.Info().Str("module", "signal").Str("conn", string(conn.id)).Uint32("session", uint32(s.ID)).Str("addr", conn.addr.String()).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctl.writePump(conn, s.Outbox)
	}()
	go func() {
		defer stop()
		defer cancel()
		ctl.readPump(conn)
		s.Outbox.Close()
		<-done
		_ = conn.Close()
		ctl.Handler.OnConnectionClosed(conn.id)
	}()
}
