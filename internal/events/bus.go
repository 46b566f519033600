package events

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/google/uuid"
)

// Sink consumes posted events in order.
type Sink interface {
	Post(event Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(event Event)

// Post implements Sink.
func (f SinkFunc) Post(event Event) { f(event) }

// Bus is the in-process build event stream for one invocation. Posting is
// serialized, so every sink observes all events in a single total order; the
// per-unit ordering guarantee follows from the coordinator posting each
// unit's terminal event exactly once.
type Bus struct {
	invocationID string

	mu    sync.Mutex
	sinks []Sink
	log   []Event
}

// NewBus creates a bus with a fresh invocation identifier.
func NewBus() *Bus {
	return &Bus{invocationID: uuid.NewString()}
}

// InvocationID returns the identifier of the build invocation this bus
// belongs to.
func (b *Bus) InvocationID() string {
	return b.invocationID
}

// Subscribe registers a sink for all subsequently posted events.
func (b *Bus) Subscribe(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

// Post delivers an event to every sink, in posting order.
func (b *Bus) Post(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = append(b.log, event)
	for _, sink := range b.sinks {
		sink.Post(event)
	}
}

// Events returns a snapshot of all posted events in order.
func (b *Bus) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.log...)
}

// JSONSink writes each event as one JSON line, wrapped in an envelope naming
// the event type and invocation.
type JSONSink struct {
	invocationID string

	mu sync.Mutex
	w  io.Writer
}

// NewJSONSink creates a sink writing JSON lines to w.
func NewJSONSink(w io.Writer, invocationID string) *JSONSink {
	return &JSONSink{w: w, invocationID: invocationID}
}

type jsonEnvelope struct {
	InvocationID string `json:"invocation_id"`
	Type         string `json:"type"`
	Payload      Event  `json:"payload"`
}

// Post implements Sink. Encoding errors are swallowed: the event stream is a
// reporting surface and must not fail the build.
func (s *JSONSink) Post(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	envelope := jsonEnvelope{InvocationID: s.invocationID, Payload: event}
	switch event.(type) {
	case *CompletionEvent:
		envelope.Type = "completion"
	case *ProgressEvent:
		envelope.Type = "progress"
	default:
		envelope.Type = "unknown"
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = s.w.Write(data)
}
