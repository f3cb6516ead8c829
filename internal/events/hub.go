// Package events is an in-memory pub/sub for workspace lifecycle
// transitions, with a small ring buffer for late clients.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Transition is one workspace lifecycle notification: an operation phase
// change or an extracted resource event.
type Transition struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"` // e.g. "workspace.save", "workspace.resource"
	Workspace string    `json:"workspace"`
	State     string    `json:"state,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

type Hub struct {
	nextID atomic.Int64

	mu    sync.Mutex
	ring  []Transition
	start int
	size  int

	subs      map[int]chan Transition
	nextSubID int
}

func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 100
	}
	return &Hub{
		ring: make([]Transition, capacity),
		subs: make(map[int]chan Transition),
	}
}

func (h *Hub) Publish(eventType, workspace, state, detail string) {
	tr := Transition{
		ID:        h.nextID.Add(1),
		Type:      eventType,
		Workspace: workspace,
		State:     state,
		Detail:    detail,
		At:        time.Now().UTC(),
	}

	h.mu.Lock()
	h.pushLocked(tr)
	for _, ch := range h.subs {
		// Don't let slow clients block producers.
		select {
		case ch <- tr:
		default:
		}
	}
	h.mu.Unlock()
}

func (h *Hub) Subscribe() (<-chan Transition, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSubID
	h.nextSubID++
	ch := make(chan Transition, 128)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
		h.mu.Unlock()
	}

	return ch, cancel
}

// SnapshotSince returns buffered transitions with ID > lastID, oldest-first.
// If lastID is 0, the full ring buffer snapshot is returned.
func (h *Hub) SnapshotSince(lastID int64) []Transition {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Transition, 0, h.size)
	for i := 0; i < h.size; i++ {
		tr := h.ring[(h.start+i)%len(h.ring)]
		if lastID == 0 || tr.ID > lastID {
			out = append(out, tr)
		}
	}
	return out
}

func (h *Hub) pushLocked(tr Transition) {
	capacity := len(h.ring)
	if capacity == 0 {
		return
	}

	if h.size < capacity {
		idx := (h.start + h.size) % capacity
		h.ring[idx] = tr
		h.size++
		return
	}

	// Overwrite oldest.
	h.ring[h.start] = tr
	h.start = (h.start + 1) % capacity
}
