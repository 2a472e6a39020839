package core

import (
	"context"

	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/domain"
)

// ConnectionRegistry tracks user/connection/process bindings in the
// shared store. A connection id is bound to exactly one user at a time;
// rebinding revokes the prior owner as part of the same operation.
type ConnectionRegistry interface {
	Register(ctx context.Context, userID domain.UserID, connID domain.ConnectionID, owner domain.ProcessID) error
	Unregister(ctx context.Context, userID domain.UserID, connID domain.ConnectionID) error
	ResolveUser(ctx context.Context, connID domain.ConnectionID) (domain.UserID, bool, error)
	ListConnections(ctx context.Context, userID domain.UserID) ([]domain.Connection, error)
	ResolveActiveConnection(ctx context.Context, userID domain.UserID) (domain.ConnectionID, bool, error)
	Exists(ctx context.Context, userID domain.UserID) (bool, error)
}

// RoomDirectory owns room records and membership. Membership is durable
// and independent of connection liveness.
type RoomDirectory interface {
	CreateRoom(ctx context.Context, roomType domain.RoomType, roomID domain.RoomID, metadata map[string]string) (domain.Room, error)
	CreatePrivateRoom(ctx context.Context, a, b domain.UserID, metadata map[string]string) (domain.Room, error)
	GetRoom(ctx context.Context, roomID domain.RoomID) (domain.Room, bool, error)
	RoomExists(ctx context.Context, roomID domain.RoomID) (bool, error)
	AddMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error
	RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error
	MembersOf(ctx context.Context, roomID domain.RoomID) ([]domain.UserID, error)
	RoomsOf(ctx context.Context, userID domain.UserID) ([]domain.RoomID, error)
}

// Relay is the routing surface the transport and queue adapters call into.
type Relay interface {
	OnConnect(ctx context.Context, connID domain.ConnectionID, userID domain.UserID) error
	OnDisconnect(ctx context.Context, connID domain.ConnectionID) error
	BroadcastToRoom(ctx context.Context, roomID domain.RoomID, channel string, payload []byte) error
	AddUserToRoomLive(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error
	SendTo(ctx context.Context, dest domain.Destination, channel string, payload []byte) error
}
