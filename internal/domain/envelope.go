package domain

import "time"

type EnvelopeKind string

const (
	KindChatMessage  EnvelopeKind = "chat-message"
	KindNotification EnvelopeKind = "notification"
)

// Envelope is a queue-delivered payload awaiting routing. Chat messages
// and notifications share one wire shape; notifications additionally
// carry a title.
type Envelope struct {
	ID        string            `json:"id"`
	SenderID  UserID            `json:"senderId,omitempty"`
	Title     string            `json:"title,omitempty"`
	Content   string            `json:"content"`
	DestID    string            `json:"destId,omitempty"`
	RoomID    RoomID            `json:"roomId,omitempty"`
	Timestamp time.Time         `json:"timestamp,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
