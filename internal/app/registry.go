package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/core"
	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/domain"
	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/store"
)

// registerScript rebinds a connection id in one atomic step: the prior
// owner's serialized entry is removed, the reverse index is overwritten
// and the fresh Connection is added to the new owner's set. Scripts run
// atomically in Redis, so no interleaving register of the same
// connection id can observe both bindings.
//
// KEYS[1] = socket:{connId}:user
// KEYS[2] = user:{userId}:connections
// ARGV[1] = connId, ARGV[2] = userId, ARGV[3] = serialized Connection
var registerScript = redis.NewScript(`
local prior = redis.call('GET', KEYS[1])
if prior and prior ~= ARGV[2] then
  local priorKey = 'user:' .. prior .. ':connections'
  for _, m in ipairs(redis.call('SMEMBERS', priorKey)) do
    local ok, conn = pcall(cjson.decode, m)
    if ok and conn['connectionId'] == ARGV[1] then
      redis.call('SREM', priorKey, m)
    end
  end
end
for _, m in ipairs(redis.call('SMEMBERS', KEYS[2])) do
  local ok, conn = pcall(cjson.decode, m)
  if ok and conn['connectionId'] == ARGV[1] then
    redis.call('SREM', KEYS[2], m)
  end
end
redis.call('SET', KEYS[1], ARGV[2])
redis.call('SADD', KEYS[2], ARGV[3])
return 1
`)

// unregisterScript removes the serialized entry and clears the reverse
// index when it still names this user.
//
// KEYS[1] = socket:{connId}:user
// KEYS[2] = user:{userId}:connections
// ARGV[1] = connId, ARGV[2] = userId
var unregisterScript = redis.NewScript(`
for _, m in ipairs(redis.call('SMEMBERS', KEYS[2])) do
  local ok, conn = pcall(cjson.decode, m)
  if ok and conn['connectionId'] == ARGV[1] then
    redis.call('SREM', KEYS[2], m)
  end
end
if redis.call('GET', KEYS[1]) == ARGV[2] then
  redis.call('DEL', KEYS[1])
end
return 1
`)

// RedisConnectionRegistry implements core.ConnectionRegistry on the
// shared Redis instance.
type RedisConnectionRegistry struct {
	rdb *redis.Client
	now func() time.Time
}

var _ core.ConnectionRegistry = (*RedisConnectionRegistry)(nil)

func NewConnectionRegistry(rdb *redis.Client) *RedisConnectionRegistry {
	return &RedisConnectionRegistry{rdb: rdb, now: time.Now}
}

func (r *RedisConnectionRegistry) Register(ctx context.Context, userID domain.UserID, connID domain.ConnectionID, owner domain.ProcessID) error {
	conn := domain.Connection{
		UserID:         userID,
		ConnectionID:   connID,
		OwnerProcessID: owner,
		EstablishedAt:  r.now().UTC(),
	}
	raw, err := json.Marshal(conn)
	if err != nil {
		return fmt.Errorf("marshal connection: %w", err)
	}
	keys := []string{store.SocketUserKey(connID), store.UserConnectionsKey(userID)}
	if err := registerScript.Run(ctx, r.rdb, keys, string(connID), string(userID), raw).Err(); err != nil {
		return fmt.Errorf("register connection %s: %w", connID, err)
	}
	log.Info().Str("module", "app.registry").
		Str("user", string(userID)).Str("conn", string(connID)).Str("owner", string(owner)).
		Msg("connection registered")
	return nil
}

func (r *RedisConnectionRegistry) Unregister(ctx context.Context, userID domain.UserID, connID domain.ConnectionID) error {
	keys := []string{store.SocketUserKey(connID), store.UserConnectionsKey(userID)}
	if err := unregisterScript.Run(ctx, r.rdb, keys, string(connID), string(userID)).Err(); err != nil {
		return fmt.Errorf("unregister connection %s: %w", connID, err)
	}
	log.Info().Str("module", "app.registry").
		Str("user", string(userID)).Str("conn", string(connID)).
		Msg("connection unregistered")
	return nil
}

func (r *RedisConnectionRegistry) ResolveUser(ctx context.Context, connID domain.ConnectionID) (domain.UserID, bool, error) {
	val, err := r.rdb.Get(ctx, store.SocketUserKey(connID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve user of %s: %w", connID, err)
	}
	return domain.UserID(val), true, nil
}

func (r *RedisConnectionRegistry) ListConnections(ctx context.Context, userID domain.UserID) ([]domain.Connection, error) {
	members, err := r.rdb.SMembers(ctx, store.UserConnectionsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list connections of %s: %w", userID, err)
	}
	conns := make([]domain.Connection, 0, len(members))
	for _, m := range members {
		var c domain.Connection
		if err := json.Unmarshal([]byte(m), &c); err != nil {
			log.Warn().Str("module", "app.registry").Str("user", string(userID)).Err(err).
				Msg("skipping undecodable connection entry")
			continue
		}
		conns = append(conns, c)
	}
	return conns, nil
}

func (r *RedisConnectionRegistry) ResolveActiveConnection(ctx context.Context, userID domain.UserID) (domain.ConnectionID, bool, error) {
	conns, err := r.ListConnections(ctx, userID)
	if err != nil {
		return "", false, err
	}
	if len(conns) == 0 {
		return "", false, nil
	}
	latest := conns[0]
	for _, c := range conns[1:] {
		if c.EstablishedAt.After(latest.EstablishedAt) {
			latest = c
		}
	}
	return latest.ConnectionID, true, nil
}

func (r *RedisConnectionRegistry) Exists(ctx context.Context, userID domain.UserID) (bool, error) {
	n, err := r.rdb.SCard(ctx, store.UserConnectionsKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("count connections of %s: %w", userID, err)
	}
	return n > 0, nil
}
