package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/core"
	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/domain"
	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/store"
)

// RedisRoomDirectory implements core.RoomDirectory. Rooms are never
// deleted; creation is idempotent and keeps the first writer's metadata.
type RedisRoomDirectory struct {
	rdb *redis.Client
}

var _ core.RoomDirectory = (*RedisRoomDirectory)(nil)

func NewRoomDirectory(rdb *redis.Client) *RedisRoomDirectory {
	return &RedisRoomDirectory{rdb: rdb}
}

func (d *RedisRoomDirectory) CreateRoom(ctx context.Context, roomType domain.RoomType, roomID domain.RoomID, metadata map[string]string) (domain.Room, error) {
	room := domain.Room{ID: roomID, Type: roomType, Metadata: metadata}
	raw, err := json.Marshal(room)
	if err != nil {
		return domain.Room{}, fmt.Errorf("marshal room: %w", err)
	}

	created, err := d.rdb.SetNX(ctx, store.RoomKey(roomID), raw, 0).Result()
	if err != nil {
		return domain.Room{}, fmt.Errorf("create room %s: %w", roomID, err)
	}
	if created {
		log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("type", string(roomType)).Msg("room created")
		return room, nil
	}

	// Lost the race or the room pre-existed: the stored record wins.
	existing, _, err := d.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Room{}, err
	}
	return existing, nil
}

func (d *RedisRoomDirectory) CreatePrivateRoom(ctx context.Context, a, b domain.UserID, metadata map[string]string) (domain.Room, error) {
	return d.CreateRoom(ctx, domain.RoomTypePrivate, domain.PrivateRoomID(a, b), metadata)
}

func (d *RedisRoomDirectory) GetRoom(ctx context.Context, roomID domain.RoomID) (domain.Room, bool, error) {
	raw, err := d.rdb.Get(ctx, store.RoomKey(roomID)).Result()
	if err == redis.Nil {
		return domain.Room{}, false, nil
	}
	if err != nil {
		return domain.Room{}, false, fmt.Errorf("get room %s: %w", roomID, err)
	}
	var room domain.Room
	if err := json.Unmarshal([]byte(raw), &room); err != nil {
		return domain.Room{}, false, fmt.Errorf("decode room %s: %w", roomID, err)
	}
	return room, true, nil
}

func (d *RedisRoomDirectory) RoomExists(ctx context.Context, roomID domain.RoomID) (bool, error) {
	n, err := d.rdb.Exists(ctx, store.RoomKey(roomID)).Result()
	if err != nil {
		return false, fmt.Errorf("check room %s: %w", roomID, err)
	}
	return n > 0, nil
}

func (d *RedisRoomDirectory) AddMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	_, err := d.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, store.RoomUsersKey(roomID), string(userID))
		pipe.SAdd(ctx, store.UserRoomsKey(userID), string(roomID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("add member %s to %s: %w", userID, roomID, err)
	}
	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("user", string(userID)).Msg("member added")
	return nil
}

func (d *RedisRoomDirectory) RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	_, err := d.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, store.RoomUsersKey(roomID), string(userID))
		pipe.SRem(ctx, store.UserRoomsKey(userID), string(roomID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove member %s from %s: %w", userID, roomID, err)
	}
	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("user", string(userID)).Msg("member removed")
	return nil
}

func (d *RedisRoomDirectory) MembersOf(ctx context.Context, roomID domain.RoomID) ([]domain.UserID, error) {
	members, err := d.rdb.SMembers(ctx, store.RoomUsersKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("members of %s: %w", roomID, err)
	}
	out := make([]domain.UserID, 0, len(members))
	for _, m := range members {
		out = append(out, domain.UserID(m))
	}
	return out, nil
}

func (d *RedisRoomDirectory) RoomsOf(ctx context.Context, userID domain.UserID) ([]domain.RoomID, error) {
	rooms, err := d.rdb.SMembers(ctx, store.UserRoomsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("rooms of %s: %w", userID, err)
	}
	out := make([]domain.RoomID, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, domain.RoomID(r))
	}
	return out, nil
}
