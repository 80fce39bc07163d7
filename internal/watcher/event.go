package watcher

import "time"

// EventType represents the type of file system event
type EventType int

const (
	// EventChanged is emitted when a watched file was created or written and
	// has settled.
	EventChanged EventType = iota
	// EventRemoved is emitted when a watched file no longer exists.
	EventRemoved
)

// String returns the string representation of the event type
func (t EventType) String() string {
	switch t {
	case EventChanged:
		return "changed"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event represents a settled change of a watched file.
type Event struct {
	Type EventType

	// Path is the watched file, even when only a companion changed.
	Path string

	Size    int64
	ModTime time.Time
}
