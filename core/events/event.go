package events

import (
	"sync"

	"github.com/mars-protocol/contracts-sub007/core/types"
)

// Event represents a structured state change emitted by a module.
type Event interface {
	EventType() string
}

// Renderable events expose their attribute form for downstream consumers.
type Renderable interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. the turn result).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer collects events for the duration of a turn. The dispatcher only
// publishes the buffer when the turn commits.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

func NewBuffer() *Buffer { return &Buffer{} }

func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.mu.Lock()
	b.events = append(b.events, evt)
	b.mu.Unlock()
}

// Events returns the buffered events in emission order.
func (b *Buffer) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Rendered converts buffered events into their attribute form. Events that do
// not implement Renderable are reported by type only.
func (b *Buffer) Rendered() []types.Event {
	evts := b.Events()
	out := make([]types.Event, 0, len(evts))
	for _, evt := range evts {
		if r, ok := evt.(Renderable); ok {
			if rendered := r.Event(); rendered != nil {
				out = append(out, *rendered)
				continue
			}
		}
		out = append(out, types.Event{Type: evt.EventType(), Attributes: map[string]string{}})
	}
	return out
}

func (b *Buffer) Reset() {
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}
