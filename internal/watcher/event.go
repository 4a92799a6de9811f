package watcher

import "time"

// EventType represents the type of file system event.
type EventType int

const (
	// EventSettled is emitted once a created or written file stops changing.
	EventSettled EventType = iota
	// EventRemoved is emitted when a file is deleted or renamed away.
	EventRemoved
)

func (t EventType) String() string {
	switch t {
	case EventSettled:
		return "settled"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event represents a file system event.
type Event struct {
	Type    EventType
	Path    string
	Size    int64
	ModTime time.Time
}
