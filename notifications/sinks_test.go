package notifications

import (
	"sync"
	"testing"
	"time"

	events "github.com/docker/go-events"
)

func TestEventQueue(t *testing.T) {
	const nevents = 1000
	var ts testSink
	eq := newEventQueue(
		// delayed sync simulates a destination slower than channel comms
		&delayedSink{Sink: &ts, delay: time.Millisecond},
		queueMetricsListener{},
	)

	var wg sync.WaitGroup
	for i := 0; i < nevents; i++ {
		ev := newEvent(ActionStore, Target{Path: "/content/a.json"})
		wg.Add(1)
		go func(ev Event) {
			defer wg.Done()
			if err := eq.Write(ev); err != nil {
				t.Errorf("error writing event: %v", err)
			}
		}(ev)
	}
	wg.Wait()
	if t.Failed() {
		t.FailNow()
	}

	checkClose(t, eq)

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.count != nevents {
		t.Fatalf("events did not make it to the sink: %d != %d", ts.count, nevents)
	}
	if !ts.closed {
		t.Fatalf("sink should have been closed")
	}
}

func TestIgnoredActionsSink(t *testing.T) {
	stored := newEvent(ActionStore, Target{Path: "/content/a.json"})
	removed := newEvent(ActionRemove, Target{Path: "/content/a.json"})

	ts := &testSink{}
	s := newIgnoredActionsSink(ts, ActionRemove)

	if err := s.Write(stored); err != nil {
		t.Fatalf("error writing event: %v", err)
	}
	ts.mu.Lock()
	if ts.event != (events.Event)(stored) {
		t.Fatalf("store event should have passed through")
	}
	ts.mu.Unlock()

	if err := s.Write(removed); err != nil {
		t.Fatalf("error writing ignored event: %v", err)
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.event == (events.Event)(removed) {
		t.Fatalf("remove event should have been ignored")
	}
}

func TestBridgeWritesThroughQueue(t *testing.T) {
	ts := &testSink{}
	b := NewBridge(ts)
	defer b.Close()

	if err := b.Stored("/content/a.json", "document"); err != nil {
		t.Fatalf("Stored: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		ts.mu.Lock()
		count := ts.count
		ts.mu.Unlock()
		if count == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("event never reached the sink")
		}
		time.Sleep(time.Millisecond)
	}
}

type testSink struct {
	event  events.Event
	count  int
	mu     sync.Mutex
	closed bool
}

func (ts *testSink) Write(event events.Event) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.event = event
	ts.count++
	return nil
}

func (ts *testSink) Close() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.closed = true
	return nil
}

type delayedSink struct {
	events.Sink
	delay time.Duration
}

func (ds *delayedSink) Write(event events.Event) error {
	time.Sleep(ds.delay)
	return ds.Sink.Write(event)
}

func checkClose(t *testing.T, sink events.Sink) {
	t.Helper()
	if err := sink.Close(); err != nil {
		t.Fatalf("unexpected error closing: %v", err)
	}
	if err := sink.Close(); err == nil {
		t.Fatalf("no error on double close")
	}
	if err := sink.Write(Event{}); err == nil {
		t.Fatalf("write after closed did not have an error")
	} else if err != ErrSinkClosed {
		t.Fatalf("error should be ErrSinkClosed, got %v", err)
	}
}
