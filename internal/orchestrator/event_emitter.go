package orchestrator

import (
	"log"
	"sync"
	"sync/atomic"
)

// EventEmitter queues run events for one subscriber, such as a websocket
// stream or the TUI. Its Emit method is an Observer and never blocks the
// run: when the queue is full the oldest queued event is evicted, so a
// slow subscriber still ends up with the latest status.
type EventEmitter struct {
	mu      sync.Mutex
	queue   chan Event
	closed  bool
	evicted atomic.Uint64
}

// NewEventEmitter returns an emitter holding up to size undelivered events.
func NewEventEmitter(size int) *EventEmitter {
	if size < 1 {
		size = 1
	}
	return &EventEmitter{queue: make(chan Event, size)}
}

// Emit queues ev. Events emitted after Close are ignored.
func (e *EventEmitter) Emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	for {
		select {
		case e.queue <- ev:
			return
		default:
		}
		// Full. The subscriber may drain concurrently, so the eviction
		// can find the queue already empty.
		select {
		case old := <-e.queue:
			if n := e.evicted.Add(1); n == 1 {
				log.Printf("[orchestrator] run %s: subscriber is behind, evicting queued events starting with %s", old.RunID, old.Status)
			}
		default:
		}
	}
}

// DroppedCount reports how many queued events were evicted unread.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.evicted.Load()
}

// Events is drained by the subscriber until it is closed.
func (e *EventEmitter) Events() <-chan Event {
	return e.queue
}

// Close ends the event stream. It is safe to call more than once.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
}
