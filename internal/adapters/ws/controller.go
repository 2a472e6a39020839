package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/core"
	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controller upgrades HTTP requests into hub connections and invokes
// the relay's connect/disconnect hooks. Token verification happens
// upstream; the authenticated user id arrives on the request.
type Controller struct {
	Hub         *Hub
	Relay       core.Relay
	ReadLimit   int64
	CallTimeout time.Duration
}

func NewController(hub *Hub, relay core.Relay, readLimit int64, callTimeout time.Duration) *Controller {
	return &Controller{Hub: hub, Relay: relay, ReadLimit: readLimit, CallTimeout: callTimeout}
}

func (ctl *Controller) HandleConnect(ctx context.Context, c *gin.Context) {
	userID := domain.UserID(c.GetString("user_id"))
	if userID == "" {
		userID = domain.UserID(c.Query("userId"))
	}
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user id"})
		return
	}

	socket, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Str("module", "ws.controller").Err(err).Msg("ws upgrade")
		return
	}

	connID := domain.ConnectionID(uuid.NewString())
	conn := newWSConn(socket)
	if ctl.ReadLimit > 0 {
		socket.SetReadLimit(ctl.ReadLimit)
	}
	ctl.Hub.add(connID, conn)

	connectCtx, connectCancel := context.WithTimeout(ctx, ctl.CallTimeout)
	err = ctl.Relay.OnConnect(connectCtx, connID, userID)
	connectCancel()
	if err != nil {
		log.Error().Str("module", "ws.controller").
			Str("conn", string(connID)).Str("user", string(userID)).Err(err).
			Msg("connect handling failed")
		ctl.Hub.remove(connID)
		conn.close()
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, connID, conn)
	go ctl.readPump(ctx, cancel, connID, conn)
}
