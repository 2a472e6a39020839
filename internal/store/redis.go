// Package store holds the Redis client setup and the persisted key
// layout shared by the registry and the room directory.
package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/domain"
)

type Options struct {
	Addr     string
	Password string
	DB       int
}

func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return client, nil
}

// Key layout. Treated as the on-disk contract: other processes read and
// write the same patterns.

func UserConnectionsKey(u domain.UserID) string { return "user:" + string(u) + ":connections" }

func SocketUserKey(c domain.ConnectionID) string { return "socket:" + string(c) + ":user" }

func RoomKey(r domain.RoomID) string { return "room:" + string(r) }

func RoomUsersKey(r domain.RoomID) string { return "room:" + string(r) + ":users" }

func UserRoomsKey(u domain.UserID) string { return "user:" + string(u) + ":rooms" }
