package node

import (
	"sync"
	"time"
)

// EventType is the discriminator for node events.
type EventType string

const (
	EventBurst EventType = "burst"
	EventFrame EventType = "frame"
	EventRole  EventType = "role"
)

// Event is one timestamped node event. Text is the same line handed to the
// display collaborator.
type Event struct {
	Time time.Time
	Type EventType
	Text string
}

// Broadcaster fans out events to multiple subscribers. Slow consumers are
// skipped (non-blocking send) so the node loop never waits on a viewer.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[uint64]chan Event
	nextID    uint64
}

// NewBroadcaster creates a ready-to-use Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		listeners: make(map[uint64]chan Event),
	}
}

// Subscribe registers a new listener. Returns (id, channel). bufSize controls
// the channel buffer depth.
func (b *Broadcaster) Subscribe(bufSize int) (uint64, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, bufSize)
	b.listeners[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a listener by ID.
func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.listeners[id]; ok {
		close(ch)
		delete(b.listeners, id)
	}
}

// Send broadcasts the event to every listener. Non-blocking: a listener with
// a full channel misses the event.
func (b *Broadcaster) Send(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.listeners {
		select {
		case ch <- e:
		default:
		}
	}
}
