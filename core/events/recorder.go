package events

import (
	"strings"
	"sync"

	"pactd/core/types"
)

// payloadEvent is implemented by emitted events that carry a structured
// attribute payload worth recording.
type payloadEvent interface {
	Event() *types.Event
}

// Recorded pairs an event payload with the sequence number assigned at
// emission time. Sequence numbers start at 1 and never repeat.
type Recorded struct {
	Sequence uint64
	Event    types.Event
}

// Recorder is an Emitter that keeps a bounded in-memory history of emitted
// events for later inspection over RPC. Once the capacity is reached the
// oldest entries are dropped; sequence numbers keep advancing.
type Recorder struct {
	mu      sync.RWMutex
	next    uint64
	entries []Recorded
	cap     int
}

// NewRecorder creates a recorder retaining up to capacity events. A
// non-positive capacity falls back to 1024.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Recorder{cap: capacity}
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	carrier, ok := evt.(payloadEvent)
	if !ok {
		return
	}
	payload := carrier.Event()
	if payload == nil {
		return
	}
	clone := types.Event{Type: payload.Type, Attributes: make(map[string]string, len(payload.Attributes))}
	for k, v := range payload.Attributes {
		clone.Attributes[k] = v
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.entries = append(r.entries, Recorded{Sequence: r.next, Event: clone})
	if len(r.entries) > r.cap {
		r.entries = r.entries[len(r.entries)-r.cap:]
	}
}

// List returns up to limit retained events whose type starts with prefix, in
// emission order. An empty prefix matches everything; a non-positive limit
// returns all matches.
func (r *Recorder) List(prefix string, limit int) []Recorded {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Recorded, 0, len(r.entries))
	for _, entry := range r.entries {
		if prefix != "" && !strings.HasPrefix(entry.Event.Type, prefix) {
			continue
		}
		out = append(out, entry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
