package events

import "corndex/core/types"

// Event represents a structured state change emitted by a venue component.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. HTTP, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

// Emit implements the Emitter interface.
func (f EmitterFunc) Emit(e Event) { f(e) }

// Buffer holds events emitted during a unit of work until the unit either
// commits (Flush) or reverts (Truncate).
type Buffer struct {
	pending []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(e Event) {
	if e == nil {
		return
	}
	b.pending = append(b.pending, e)
}

// Mark returns the current buffer position for a later Truncate.
func (b *Buffer) Mark() int { return len(b.pending) }

// Truncate drops every event emitted after mark.
func (b *Buffer) Truncate(mark int) {
	if mark < 0 {
		mark = 0
	}
	if mark < len(b.pending) {
		b.pending = b.pending[:mark]
	}
}

// Flush hands all buffered events to out in emission order and empties the
// buffer.
func (b *Buffer) Flush(out Emitter) []Event {
	flushed := b.pending
	b.pending = nil
	if out != nil {
		for _, e := range flushed {
			out.Emit(e)
		}
	}
	return flushed
}

// Len reports the number of buffered events.
func (b *Buffer) Len() int { return len(b.pending) }

// Recorder keeps every emitted event. Tests use it to assert on emissions.
type Recorder struct {
	Events []Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(e Event) { r.Events = append(r.Events, e) }

// Types returns the event types in emission order.
func (r *Recorder) Types() []string {
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.EventType())
	}
	return out
}

// Last returns the most recent event of the given type, if any.
func (r *Recorder) Last(eventType string) *types.Event {
	for i := len(r.Events) - 1; i >= 0; i-- {
		if r.Events[i].EventType() == eventType {
			return r.Events[i].Event()
		}
	}
	return nil
}
