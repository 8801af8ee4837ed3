// Package notifications turns storage lifecycle activity — mounts,
// unmounts, stores, removes, and object lifecycle hook transitions —
// into a stream of events delivered to one or more sinks via
// github.com/docker/go-events.
package notifications

import (
	"time"

	events "github.com/docker/go-events"

	"github.com/baraverkstad/rcstorage/internal/uuid"
)

// Action names the kind of activity an Event records.
type Action string

const (
	ActionMount     Action = "mount"
	ActionUnmount   Action = "unmount"
	ActionStore     Action = "store"
	ActionRemove    Action = "remove"
	ActionActivate  Action = "activate"
	ActionPassivate Action = "passivate"
	ActionDestroy   Action = "destroy"
)

// Target identifies what an Event happened to.
type Target struct {
	// Path is the virtual path the event concerns.
	Path string `json:"path"`
	// Class is the StorableObject type name, empty for non-object events.
	Class string `json:"class,omitempty"`
	// Backend is the mounted backend's id.
	Backend string `json:"backend,omitempty"`
}

// Event is a single notification record, satisfying events.Event.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Target    Target    `json:"target"`
}

// newEvent returns a new, timestamped Event with a fresh id.
func newEvent(action Action, target Target) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Action:    action,
		Target:    target,
	}
}

// asEventsEvent adapts Event to the github.com/docker/go-events Event
// interface, which is satisfied by any value (it is an empty interface
// alias); this function exists purely for readability at call sites.
func asEventsEvent(e Event) events.Event {
	return e
}
