// Package ws is the gorilla/websocket implementation of the transport
// boundary: per-process connection ownership, group membership and the
// emit primitives the relay fans out through.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/core"
	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/domain"
)

// event is the wire shape of one emitted frame.
type event struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// Hub holds this process's live connections and their group
// subscriptions. It implements core.Transport.
type Hub struct {
	mu       sync.RWMutex
	conns    map[domain.ConnectionID]*wsConn
	groups   map[core.Group]map[domain.ConnectionID]struct{}
	joinedTo map[domain.ConnectionID]map[core.Group]struct{}
}

var _ core.Transport = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		conns:    make(map[domain.ConnectionID]*wsConn),
		groups:   make(map[core.Group]map[domain.ConnectionID]struct{}),
		joinedTo: make(map[domain.ConnectionID]map[core.Group]struct{}),
	}
}

func (h *Hub) add(connID domain.ConnectionID, c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[connID] = c
	log.Info().Str("module", "ws.hub").Str("conn", string(connID)).Msg("connection attached")
}

func (h *Hub) remove(connID domain.ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for g := range h.joinedTo[connID] {
		delete(h.groups[g], connID)
		if len(h.groups[g]) == 0 {
			delete(h.groups, g)
		}
	}
	delete(h.joinedTo, connID)
	delete(h.conns, connID)
	log.Info().Str("module", "ws.hub").Str("conn", string(connID)).Msg("connection detached")
}

func (h *Hub) Join(ctx context.Context, connID domain.ConnectionID, group core.Group) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[connID]; !ok {
		return fmt.Errorf("join %s: connection %s not held by this process", group, connID)
	}
	if h.groups[group] == nil {
		h.groups[group] = make(map[domain.ConnectionID]struct{})
	}
	h.groups[group][connID] = struct{}{}
	if h.joinedTo[connID] == nil {
		h.joinedTo[connID] = make(map[core.Group]struct{})
	}
	h.joinedTo[connID][group] = struct{}{}
	log.Debug().Str("module", "ws.hub").Str("conn", string(connID)).Str("group", string(group)).Msg("joined group")
	return nil
}

func (h *Hub) Emit(ctx context.Context, connID domain.ConnectionID, channel string, payload []byte) error {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("emit to %s: connection not held by this process", connID)
	}
	frame, err := json.Marshal(event{Channel: channel, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := c.trySend(frame); err != nil {
		return fmt.Errorf("emit to %s: %w", connID, err)
	}
	return nil
}

// EmitToGroup fans out to every connection joined to the group. Slow or
// closed members are dropped from this emission and logged; delivery to
// the rest proceeds.
func (h *Hub) EmitToGroup(ctx context.Context, group core.Group, channel string, payload []byte) error {
	frame, err := json.Marshal(event{Channel: channel, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	h.mu.RLock()
	members := make([]*wsConn, 0, len(h.groups[group]))
	ids := make([]domain.ConnectionID, 0, len(h.groups[group]))
	for id := range h.groups[group] {
		if c, ok := h.conns[id]; ok {
			members = append(members, c)
			ids = append(ids, id)
		}
	}
	h.mu.RUnlock()

	sent := 0
	for i, c := range members {
		if err := c.trySend(frame); err != nil {
			log.Warn().Str("module", "ws.hub").Str("group", string(group)).Str("conn", string(ids[i])).Err(err).
				Msg("group emit dropped member")
			continue
		}
		sent++
	}
	log.Debug().Str("module", "ws.hub").Str("group", string(group)).Str("channel", channel).Int("sent_to", sent).
		Msg("group emit")
	return nil
}

// GroupSize reports how many live connections are joined to a group.
func (h *Hub) GroupSize(group core.Group) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
