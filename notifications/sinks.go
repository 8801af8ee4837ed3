package notifications

import (
	"container/list"
	"fmt"
	"sync"

	events "github.com/docker/go-events"
	"github.com/sirupsen/logrus"
)

// ErrSinkClosed is returned by eventQueue.Write after Close.
var ErrSinkClosed = fmt.Errorf("eventqueue: sink closed")

// eventQueue accepts all messages into a queue for asynchronous
// consumption by a sink. It is unbounded and thread safe but the sink
// must be reliable or events will be dropped.
type eventQueue struct {
	sink      events.Sink
	events    *list.List
	listeners []eventQueueListener
	cond      *sync.Cond
	mu        sync.Mutex
	closed    bool
}

// eventQueueListener is called when various events happen on the queue.
type eventQueueListener interface {
	ingress(event events.Event)
	egress(event events.Event)
}

// newEventQueue returns a queue in front of sink. If listeners is
// non-empty, each is called on ingress and egress, used to drive the
// pending-event gauge.
func newEventQueue(sink events.Sink, listeners ...eventQueueListener) *eventQueue {
	eq := eventQueue{
		sink:      sink,
		events:    list.New(),
		listeners: listeners,
	}

	eq.cond = sync.NewCond(&eq.mu)
	go eq.run()
	return &eq
}

// Write accepts the event into the queue, only failing if the queue has
// been closed.
func (eq *eventQueue) Write(event events.Event) error {
	eq.mu.Lock()
	defer eq.mu.Unlock()

	if eq.closed {
		return ErrSinkClosed
	}

	for _, listener := range eq.listeners {
		listener.ingress(event)
	}
	eq.events.PushBack(event)
	eq.cond.Signal() // signal waiters

	return nil
}

// Close shuts down the event queue, flushing any pending events.
func (eq *eventQueue) Close() error {
	eq.mu.Lock()
	defer eq.mu.Unlock()

	if eq.closed {
		return fmt.Errorf("eventqueue: already closed")
	}

	eq.closed = true
	eq.cond.Signal() // signal flushes queue
	eq.cond.Wait()   // wait for signal from last flush

	return eq.sink.Close()
}

// run is the main goroutine that flushes events to the target sink.
func (eq *eventQueue) run() {
	for {
		event := eq.next()
		if event == nil {
			return // nil block means the event queue is closed.
		}

		if err := eq.sink.Write(event); err != nil {
			logrus.Warnf("eventqueue: error writing event to %v, dropping: %v", eq.sink, err)
		}

		for _, listener := range eq.listeners {
			listener.egress(event)
		}
	}
}

// next encompasses the critical section of the run loop: it blocks on
// the condition while empty, and returns nil once closed and drained.
func (eq *eventQueue) next() events.Event {
	eq.mu.Lock()
	defer eq.mu.Unlock()

	for eq.events.Len() < 1 {
		if eq.closed {
			eq.cond.Broadcast()
			return nil
		}
		eq.cond.Wait()
	}

	front := eq.events.Front()
	block := front.Value.(events.Event)
	eq.events.Remove(front)

	return block
}

// ignoredActionsSink discards events whose Action is in the ignore set,
// passing the rest along.
type ignoredActionsSink struct {
	events.Sink
	ignored map[Action]bool
}

func newIgnoredActionsSink(sink events.Sink, ignore ...Action) events.Sink {
	if len(ignore) == 0 {
		return sink
	}
	m := make(map[Action]bool, len(ignore))
	for _, a := range ignore {
		m[a] = true
	}
	return &ignoredActionsSink{Sink: sink, ignored: m}
}

func (s *ignoredActionsSink) Write(event events.Event) error {
	if e, ok := event.(Event); ok && s.ignored[e.Action] {
		return nil
	}
	return s.Sink.Write(event)
}

func (s *ignoredActionsSink) Close() error {
	return s.Sink.Close()
}
