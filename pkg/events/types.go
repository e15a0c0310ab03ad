// Package events announces entity mutations so other console processes can
// drop cached reads, and lets them subscribe to those announcements.
package events

import (
	"strings"
	"time"
)

// Action names what happened to an entity.
type Action string

const (
	ActionSaved   Action = "saved"
	ActionDeleted Action = "deleted"
)

// EntityChanged is emitted after a successful save or delete.
type EntityChanged struct {
	Entity string `json:"entity"`
	// Endpoint is the collection path whose cached reads are stale, e.g. /Brand.
	Endpoint  string    `json:"endpoint"`
	Action    Action    `json:"action"`
	ID        int64     `json:"id,omitempty"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEntityChanged builds an event for endpoint stamped now. Entity is the
// endpoint without its leading slash.
func NewEntityChanged(endpoint string, action Action, id int64) *EntityChanged {
	return &EntityChanged{
		Entity:    strings.Trim(endpoint, "/"),
		Endpoint:  endpoint,
		Action:    action,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}
