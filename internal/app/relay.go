package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/core"
	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/domain"
)

// MessageRelay bridges durable presence and membership state to the
// live transport layer and owns the routing decision: room fan-out or
// direct unicast to the target user's most recent connection.
type MessageRelay struct {
	registry  core.ConnectionRegistry
	directory core.RoomDirectory
	transport core.Transport
	processID domain.ProcessID
}

var _ core.Relay = (*MessageRelay)(nil)

func NewMessageRelay(registry core.ConnectionRegistry, directory core.RoomDirectory, transport core.Transport, processID domain.ProcessID) *MessageRelay {
	return &MessageRelay{
		registry:  registry,
		directory: directory,
		transport: transport,
		processID: processID,
	}
}

// OnConnect registers the connection and replays the user's existing
// room memberships onto it. Joins are independent: a stale membership
// must never prevent the user from connecting, so failures are logged
// and skipped.
func (r *MessageRelay) OnConnect(ctx context.Context, connID domain.ConnectionID, userID domain.UserID) error {
	if err := r.registry.Register(ctx, userID, connID, r.processID); err != nil {
		return fmt.Errorf("on connect %s: %w", connID, err)
	}

	rooms, err := r.directory.RoomsOf(ctx, userID)
	if err != nil {
		return fmt.Errorf("on connect %s: %w", connID, err)
	}
	for _, roomID := range rooms {
		if err := r.transport.Join(ctx, connID, core.Group(roomID)); err != nil {
			log.Warn().Str("module", "app.relay").
				Str("conn", string(connID)).Str("room", string(roomID)).Err(err).
				Msg("rejoin failed, skipping")
			continue
		}
	}
	log.Info().Str("module", "app.relay").
		Str("user", string(userID)).Str("conn", string(connID)).Int("rooms", len(rooms)).
		Msg("connection established")
	return nil
}

// OnDisconnect unregisters the connection. An already-unknown
// connection is a no-op: disconnect and cleanup sweeps may race.
func (r *MessageRelay) OnDisconnect(ctx context.Context, connID domain.ConnectionID) error {
	userID, found, err := r.registry.ResolveUser(ctx, connID)
	if err != nil {
		return fmt.Errorf("on disconnect %s: %w", connID, err)
	}
	if !found {
		log.Debug().Str("module", "app.relay").Str("conn", string(connID)).Msg("disconnect for unknown connection")
		return nil
	}
	if err := r.registry.Unregister(ctx, userID, connID); err != nil {
		return fmt.Errorf("on disconnect %s: %w", connID, err)
	}
	return nil
}

func (r *MessageRelay) BroadcastToRoom(ctx context.Context, roomID domain.RoomID, channel string, payload []byte) error {
	exists, err := r.directory.RoomExists(ctx, roomID)
	if err != nil {
		return fmt.Errorf("broadcast to %s: %w", roomID, err)
	}
	if !exists {
		return fmt.Errorf("broadcast to %s: %w", roomID, domain.ErrRoomNotFound)
	}
	if err := r.transport.EmitToGroup(ctx, core.Group(roomID), channel, payload); err != nil {
		return fmt.Errorf("broadcast to %s: %w", roomID, err)
	}
	log.Debug().Str("module", "app.relay").Str("room", string(roomID)).Str("channel", channel).Msg("room broadcast")
	return nil
}

// AddUserToRoomLive joins the user's active connection to the room's
// transport group. A user with no live connection is a logged no-op;
// their durable membership is unaffected.
func (r *MessageRelay) AddUserToRoomLive(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	exists, err := r.directory.RoomExists(ctx, roomID)
	if err != nil {
		return fmt.Errorf("live join %s: %w", roomID, err)
	}
	if !exists {
		return fmt.Errorf("live join %s: %w", roomID, domain.ErrRoomNotFound)
	}

	connID, found, err := r.registry.ResolveActiveConnection(ctx, userID)
	if err != nil {
		return fmt.Errorf("live join %s: %w", roomID, err)
	}
	if !found {
		log.Info().Str("module", "app.relay").
			Str("room", string(roomID)).Str("user", string(userID)).
			Msg("user offline, live join skipped")
		return nil
	}
	if err := r.transport.Join(ctx, connID, core.Group(roomID)); err != nil {
		return fmt.Errorf("live join %s: %w", roomID, err)
	}
	return nil
}

// SendTo routes a payload to an explicitly tagged destination. Room
// destinations fan out; user destinations unicast to the most recently
// established connection.
func (r *MessageRelay) SendTo(ctx context.Context, dest domain.Destination, channel string, payload []byte) error {
	if dest.Kind == domain.DestRoom {
		return r.BroadcastToRoom(ctx, domain.RoomID(dest.ID), channel, payload)
	}

	userID := domain.UserID(dest.ID)
	known, err := r.registry.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("send to %s: %w", userID, err)
	}
	if !known {
		return fmt.Errorf("send to %s: %w", userID, domain.ErrDestinationNotFound)
	}

	connID, found, err := r.registry.ResolveActiveConnection(ctx, userID)
	if err != nil {
		return fmt.Errorf("send to %s: %w", userID, err)
	}
	if !found {
		return fmt.Errorf("send to %s: %w", userID, domain.ErrUserUnreachable)
	}
	if err := r.transport.Emit(ctx, connID, channel, payload); err != nil {
		return fmt.Errorf("send to %s: %w", userID, err)
	}
	log.Debug().Str("module", "app.relay").
		Str("user", string(userID)).Str("conn", string(connID)).Str("channel", channel).
		Msg("direct send")
	return nil
}
