// Package domain contains entity without logic, just meta-data
package domain

import "time"

const MaxUserIDLen = 36

type (
	UserID       string
	ConnectionID string
	ProcessID    string
)

// Connection is one live transport session bound to a user.
// Serialized as-is into the user's connection set.
type Connection struct {
	UserID         UserID       `json:"userId"`
	ConnectionID   ConnectionID `json:"connectionId"`
	OwnerProcessID ProcessID    `json:"ownerProcessId"`
	EstablishedAt  time.Time    `json:"establishedAt"`
}
