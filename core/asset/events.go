package asset

import "sync"

// EventKind classifies a lifecycle event.
type EventKind int

const (
	// EventAdded: a value was inserted under a new ID.
	EventAdded EventKind = iota
	// EventModified: the value under an existing ID was replaced (hot
	// reload or explicit Set). Version carries the new counter.
	EventModified
	// EventRemoved: the ID's value was removed from its store.
	EventRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is one lifecycle notification, keyed by asset ID.
type Event struct {
	Kind    EventKind `json:"kind"`
	ID      ID        `json:"id"`
	Path    Path      `json:"path"`
	Version uint32    `json:"version"`
}

// EventQueue buffers lifecycle events until a consumer drains them.
// Stores of every asset type share one queue so consumers observe a
// single ordered stream.
type EventQueue struct {
	mu     sync.Mutex
	events []Event
}

func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

// Push appends an event to the queue.
func (q *EventQueue) Push(e Event) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()
}

// Drain returns all buffered events in arrival order and empties the
// queue.
func (q *EventQueue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}

// Len returns the number of buffered events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
