// Package sse streams registry events to connected clients over
// Server-Sent Events.
package sse

import (
	"time"

	"github.com/tagreturn/tagreturn-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	EventItemRegistered          EventType = "item.registered"
	EventItemStatusChanged       EventType = "item.status_changed"
	EventItemImageChanged        EventType = "item.image_changed"
	EventItemSubscriptionChanged EventType = "item.subscription_changed"

	// Admin only.
	EventSweepCompleted EventType = "sweep.completed"
	EventTagsImported   EventType = "tags.imported"

	EventHeartbeat EventType = "heartbeat"
)

// Event is a message delivered to clients.
// UserID scopes delivery to one user; empty means every permitted client.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
	UserID    string    `json:"-"`
}

// ItemEventData is the payload of item events.
type ItemEventData struct {
	Item *domain.Item `json:"item"`
}

// StatusChangedData is the payload of item.status_changed.
type StatusChangedData struct {
	TagID     string            `json:"tag_id"`
	OldStatus domain.ItemStatus `json:"old_status"`
	NewStatus domain.ItemStatus `json:"new_status"`
}

// SweepCompletedData is the payload of sweep.completed.
type SweepCompletedData struct {
	Scanned  int   `json:"scanned"`
	Demoted  int   `json:"demoted"`
	Failed   int   `json:"failed"`
	Duration int64 `json:"duration_ms"`
}

// TagsImportedData is the payload of tags.imported.
type TagsImportedData struct {
	Source  string `json:"source"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
}

// NewItemRegisteredEvent creates an item.registered event for the owner.
func NewItemRegisteredEvent(item *domain.Item) Event {
	return Event{
		Type:      EventItemRegistered,
		Data:      ItemEventData{Item: item},
		UserID:    item.OwnerUUID,
		Timestamp: time.Now(),
	}
}

// NewStatusChangedEvent creates an item.status_changed event for uuid.
func NewStatusChangedEvent(uuid, tagID string, from, to domain.ItemStatus) Event {
	return Event{
		Type:      EventItemStatusChanged,
		Data:      StatusChangedData{TagID: tagID, OldStatus: from, NewStatus: to},
		UserID:    uuid,
		Timestamp: time.Now(),
	}
}

// NewItemImageChangedEvent creates an item.image_changed event for the owner.
func NewItemImageChangedEvent(item *domain.Item) Event {
	return Event{
		Type:      EventItemImageChanged,
		Data:      ItemEventData{Item: item},
		UserID:    item.OwnerUUID,
		Timestamp: time.Now(),
	}
}

// NewSubscriptionChangedEvent creates an item.subscription_changed event
// for the owner.
func NewSubscriptionChangedEvent(item *domain.Item) Event {
	return Event{
		Type:      EventItemSubscriptionChanged,
		Data:      ItemEventData{Item: item},
		UserID:    item.OwnerUUID,
		Timestamp: time.Now(),
	}
}

// NewSweepCompletedEvent creates a sweep.completed event.
func NewSweepCompletedEvent(data SweepCompletedData) Event {
	return Event{Type: EventSweepCompleted, Data: data, Timestamp: time.Now()}
}

// NewTagsImportedEvent creates a tags.imported event.
func NewTagsImportedEvent(data TagsImportedData) Event {
	return Event{Type: EventTagsImported, Data: data, Timestamp: time.Now()}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return Event{Type: EventHeartbeat, Data: struct{}{}, Timestamp: time.Now()}
}

func isAdminOnly(t EventType) bool {
	return t == EventSweepCompleted || t == EventTagsImported
}
