package domain

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrDestinationNotFound = errors.New("destination not found")
	ErrUserUnreachable     = errors.New("user has no live connection")
	ErrBridgeUnavailable   = errors.New("queue bridge unavailable")
)
