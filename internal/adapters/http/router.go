// Package http exposes the room-management surface: thin gin handlers
// over the room directory, notifying the relay after membership writes.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/adapters/ws"
	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/config"
	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/core"
	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/domain"
)

type RoomHandlers struct {
	Directory   core.RoomDirectory
	Relay       core.Relay
	CallTimeout time.Duration
}

func SetupRouter(ctx context.Context, cfg *config.Config, h *RoomHandlers, wsCtl *ws.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/ws", func(c *gin.Context) {
		wsCtl.HandleConnect(ctx, c)
	})

	api.POST("/rooms", h.createRoom)
	api.POST("/rooms/private", h.createPrivateRoom)
	api.POST("/rooms/:id/members", h.addMember)
	api.DELETE("/rooms/:id/members/:userId", h.removeMember)
	api.GET("/rooms/:id/members", h.listMembers)
	api.GET("/users/:id/rooms", h.listRooms)

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

func (h *RoomHandlers) reqCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.CallTimeout)
}

type createRoomReq struct {
	Type     domain.RoomType   `json:"type" binding:"required"`
	ID       domain.RoomID     `json:"id" binding:"required"`
	Metadata map[string]string `json:"metadata"`
}

func (h *RoomHandlers) createRoom(c *gin.Context) {
	var req createRoomReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx, cancel := h.reqCtx(c)
	defer cancel()

	room, err := h.Directory.CreateRoom(ctx, req.Type, req.ID, req.Metadata)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, room)
}

type createPrivateRoomReq struct {
	UserA    domain.UserID     `json:"userA" binding:"required"`
	UserB    domain.UserID     `json:"userB" binding:"required"`
	Metadata map[string]string `json:"metadata"`
}

func (h *RoomHandlers) createPrivateRoom(c *gin.Context) {
	var req createPrivateRoomReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx, cancel := h.reqCtx(c)
	defer cancel()

	room, err := h.Directory.CreatePrivateRoom(ctx, req.UserA, req.UserB, req.Metadata)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	for _, u := range []domain.UserID{req.UserA, req.UserB} {
		if err := h.Directory.AddMember(ctx, room.ID, u); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := h.Relay.AddUserToRoomLive(ctx, room.ID, u); err != nil {
			c.JSON(h.routeStatus(err), gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusCreated, room)
}

type addMemberReq struct {
	UserID domain.UserID `json:"userId" binding:"required"`
}

func (h *RoomHandlers) addMember(c *gin.Context) {
	var req addMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	roomID := domain.RoomID(c.Param("id"))
	ctx, cancel := h.reqCtx(c)
	defer cancel()

	exists, err := h.Directory.RoomExists(ctx, roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrRoomNotFound.Error()})
		return
	}
	if err := h.Directory.AddMember(ctx, roomID, req.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.Relay.AddUserToRoomLive(ctx, roomID, req.UserID); err != nil {
		c.JSON(h.routeStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RoomHandlers) removeMember(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))
	userID := domain.UserID(c.Param("userId"))
	ctx, cancel := h.reqCtx(c)
	defer cancel()

	if err := h.Directory.RemoveMember(ctx, roomID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RoomHandlers) listMembers(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))
	ctx, cancel := h.reqCtx(c)
	defer cancel()

	members, err := h.Directory.MembersOf(ctx, roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"roomId": roomID, "members": members})
}

func (h *RoomHandlers) listRooms(c *gin.Context) {
	userID := domain.UserID(c.Param("id"))
	ctx, cancel := h.reqCtx(c)
	defer cancel()

	rooms, err := h.Directory.RoomsOf(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID, "rooms": rooms})
}

func (h *RoomHandlers) routeStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrDestinationNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUserUnreachable):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
