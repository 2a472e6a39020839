package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/domain"
)

const writeDeadline = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, connID domain.ConnectionID, c *wsConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				log.Error().Err(err).Str("module", "ws.io").Str("conn", string(connID)).Msg("set write deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Error().Err(err).Str("module", "ws.io").Str("conn", string(connID)).Msg("write error")
				return
			}
		}
	}
}

// readPump drains inbound frames until the peer goes away, then runs
// the disconnect path. Inbound traffic carries no routing commands;
// all deliveries originate from the queue or the HTTP surface.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, connID domain.ConnectionID, c *wsConn) {
	defer func() {
		cancel()
		ctl.Hub.remove(connID)
		c.close()
		dcCtx, dcCancel := context.WithTimeout(context.WithoutCancel(ctx), ctl.CallTimeout)
		defer dcCancel()
		if err := ctl.Relay.OnDisconnect(dcCtx, connID); err != nil {
			log.Error().Err(err).Str("module", "ws.io").Str("conn", string(connID)).Msg("disconnect handling failed")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if _, _, err := c.conn.ReadMessage(); err != nil {
				log.Info().Str("module", "ws.io").Str("conn", string(connID)).Msg("peer closed")
				return
			}
		}
	}
}
