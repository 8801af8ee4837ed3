package notifications

import events "github.com/docker/go-events"

// Bridge turns storage activity into Events written to an underlying
// sink, optionally dropping configured actions before they reach it.
type Bridge struct {
	sink events.Sink
}

// NewBridge wraps sink in an asynchronous, metrics-instrumented queue,
// dropping any action named in ignore after the queue and before it
// reaches sink.
func NewBridge(sink events.Sink, ignore ...Action) *Bridge {
	filtered := newIgnoredActionsSink(sink, ignore...)
	return &Bridge{sink: newEventQueue(filtered, queueMetricsListener{})}
}

// Close flushes and closes the bridge's underlying sink.
func (b *Bridge) Close() error {
	if q, ok := b.sink.(*eventQueue); ok {
		return q.Close()
	}
	return b.sink.Close()
}

// Mounted records a backend being attached at a mount path.
func (b *Bridge) Mounted(path, backendID string) error {
	return b.write(ActionMount, Target{Path: path, Backend: backendID})
}

// Unmounted records a backend being detached.
func (b *Bridge) Unmounted(path, backendID string) error {
	return b.write(ActionUnmount, Target{Path: path, Backend: backendID})
}

// Stored records a successful Store at path.
func (b *Bridge) Stored(path, class string) error {
	return b.write(ActionStore, Target{Path: path, Class: class})
}

// Removed records a successful Remove at path.
func (b *Bridge) Removed(path string) error {
	return b.write(ActionRemove, Target{Path: path})
}

// Activated records a StorableObject's Activate hook firing.
func (b *Bridge) Activated(path, class string) error {
	return b.write(ActionActivate, Target{Path: path, Class: class})
}

// Passivated records a StorableObject's Passivate hook firing.
func (b *Bridge) Passivated(path, class string) error {
	return b.write(ActionPassivate, Target{Path: path, Class: class})
}

// Destroyed records a StorableObject's Destroy hook firing.
func (b *Bridge) Destroyed(path, class string) error {
	return b.write(ActionDestroy, Target{Path: path, Class: class})
}

func (b *Bridge) write(action Action, target Target) error {
	return b.sink.Write(asEventsEvent(newEvent(action, target)))
}
