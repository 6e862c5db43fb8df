// Package journal models the audit events emitted around backtest runs.
package journal

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a journaled event.
type Event struct {
	ID          string         `json:"id"`
	Time        time.Time      `json:"time"`
	Type        string         `json:"type"` // e.g., "backtest", "fetch", "error"
	Description string         `json:"description"`
	Data        map[string]any `json:"data"`
}

// NewEvent creates an event stamped with a fresh ID and the current time.
func NewEvent(eventType, description string, data map[string]any) Event {
	return Event{
		ID:          uuid.NewString(),
		Time:        time.Now().UTC(),
		Type:        eventType,
		Description: description,
		Data:        data,
	}
}
