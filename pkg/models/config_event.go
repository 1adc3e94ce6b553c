package models

import "time"

// ConfigUpdateEvent announces a change to destination configuration.
type ConfigUpdateEvent struct {
	EventType     string    `json:"event_type"` // "destination_updated"
	DestinationID string    `json:"destination_id,omitempty"`
	FeedID        string    `json:"feed_id,omitempty"`
	Action        string    `json:"action"` // "create", "update", "delete", "toggle", "reload"
	Timestamp     time.Time `json:"timestamp"`
	ChangedBy     string    `json:"changed_by,omitempty"`
}

const (
	EventTypeDestinationUpdated = "destination_updated"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionToggle = "toggle"
	ActionReload = "reload"
)
