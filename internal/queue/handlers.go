package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/core"
	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/domain"
)

// Transport channels the relay emits on.
const (
	ChannelNewMessage      = "new-message"
	ChannelNewNotification = "new-notification"
)

// EnvelopeRouter turns queue envelopes into relay calls. Routing errors
// propagate to the dispatcher, which nacks the delivery; they never
// crash the bridge.
type EnvelopeRouter struct {
	relay core.Relay
}

func NewEnvelopeRouter(relay core.Relay) *EnvelopeRouter {
	return &EnvelopeRouter{relay: relay}
}

// HandleChatMessage routes one chat envelope: room fan-out when a room
// id is present, otherwise unicast to the destination.
func (r *EnvelopeRouter) HandleChatMessage(ctx context.Context, env domain.Envelope) error {
	return r.route(ctx, env, ChannelNewMessage)
}

// HandleNotification routes one notification envelope.
func (r *EnvelopeRouter) HandleNotification(ctx context.Context, env domain.Envelope) error {
	return r.route(ctx, env, ChannelNewNotification)
}

func (r *EnvelopeRouter) route(ctx context.Context, env domain.Envelope, channel string) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope %s: %w", env.ID, err)
	}

	switch {
	case env.RoomID != "":
		return r.relay.BroadcastToRoom(ctx, env.RoomID, channel, payload)
	case env.DestID != "":
		// Producers still encode rooms by id prefix on destId; resolve
		// the tag here, at the boundary, and nowhere else.
		return r.relay.SendTo(ctx, domain.ParseDest(env.DestID), channel, payload)
	}
	return fmt.Errorf("envelope %s: no destination", env.ID)
}
