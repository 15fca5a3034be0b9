package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new time-ordered identifier for bids, history entries and events.
// Identifiers created later sort after earlier ones.
func GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
