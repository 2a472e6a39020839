package domain

import "strings"

type (
	RoomID   string
	RoomType string
)

const (
	RoomTypePrivate RoomType = "PRIVATE"
	RoomTypeEvent   RoomType = "EVENT"
	RoomTypeJam     RoomType = "JAM"
)

const (
	PrivateRoomPrefix = "private-room_"
	EventRoomPrefix   = "event-room_"
	JamRoomPrefix     = "jam-room_"
)

type Room struct {
	ID       RoomID            `json:"id"`
	Type     RoomType          `json:"type"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Prefix returns the id namespace for the room type.
func (t RoomType) Prefix() string {
	switch t {
	case RoomTypePrivate:
		return PrivateRoomPrefix
	case RoomTypeEvent:
		return EventRoomPrefix
	case RoomTypeJam:
		return JamRoomPrefix
	}
	return ""
}

// PrivateRoomID derives the deterministic id of the private room shared
// by two users. Symmetric: the pair is sorted before concatenation, so
// PrivateRoomID(a, b) == PrivateRoomID(b, a).
func PrivateRoomID(a, b UserID) RoomID {
	first, second := string(a), string(b)
	if first > second {
		first, second = second, first
	}
	return RoomID(PrivateRoomPrefix + first + "_" + second)
}

// RoomTypeOf reports the type encoded in a room id's prefix.
func RoomTypeOf(id RoomID) (RoomType, bool) {
	switch {
	case strings.HasPrefix(string(id), PrivateRoomPrefix):
		return RoomTypePrivate, true
	case strings.HasPrefix(string(id), EventRoomPrefix):
		return RoomTypeEvent, true
	case strings.HasPrefix(string(id), JamRoomPrefix):
		return RoomTypeJam, true
	}
	return "", false
}
