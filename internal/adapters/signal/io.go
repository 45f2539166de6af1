package signal

import (
	"time"

	"github.com/dkeye/voipcore/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeTimeout = 5 * time.Second

func (ctl *VoiceWSController) writePump(c *WsVoiceConn, out *core.Outbox) {
	defer c.Close()
	for f := range out.C() {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
			return
		}
		if err := c.conn.WriteMessage(websocket.BinaryMessage, f); err != nil {
			log.Debug().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump write error")
			return
		}
	}
	log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump outbox closed")
}

func (ctl *VoiceWSController) readPump(c *WsVoiceConn) {
	defer log.Info().Str("module", "signal").Str("conn", string(c.id)).Msg("readPump closing")

	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("readPump read error")
			}
			return
		}
		if typ != websocket.BinaryMessage {
			log.Warn().Str("module", "signal").Str("conn", string(c.id)).Int("type", typ).Msg("non-binary message dropped")
			continue
		}
		if err := ctl.Handler.OnBytesReceived(c.id, data); err != nil {
			log.Info().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("closing on protocol error")
			return
		}
	}
}
