package core

import (
	"context"

	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/domain"
)

// Group is a transport-level broadcast group. Room ids are used as
// group names directly.
type Group string

// Transport is the live delivery layer the relay fans out through.
// Owned by the adapter; the relay never manages connection lifecycle.
type Transport interface {
	// Join subscribes a live connection to a group. Fails when the
	// connection is not held by this process's transport.
	Join(ctx context.Context, connID domain.ConnectionID, group Group) error

	// Emit delivers payload on channel to one connection.
	Emit(ctx context.Context, connID domain.ConnectionID, channel string, payload []byte) error

	// EmitToGroup delivers payload on channel to every connection
	// currently joined to the group.
	EmitToGroup(ctx context.Context, group Group, channel string, payload []byte) error
}
