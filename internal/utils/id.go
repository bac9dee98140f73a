package utils

import "github.com/google/uuid"

// NewSessionID returns a random identifier used to correlate log lines of one connection.
// It is not the client id, which is an accept-ordered integer.
func NewSessionID() string {
	return uuid.NewString()
}
