package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Event is one session lifecycle record. It never carries token values or passwords.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    int64             `json:"user_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives events from the dispatcher goroutine.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(ctx context.Context, event Event)

func (f SinkFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// MultiSink forwards each event to every non-nil sink, in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, event Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, event)
		}
	}
}

// ChannelSink hands events to a reader through a buffered channel. Emit waits for
// room until ctx ends; events abandoned that way are counted by Missed.
type ChannelSink struct {
	events chan Event
	missed atomic.Uint64
}

// NewChannelSink returns a ChannelSink holding up to buffer events (at least one).
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
		s.missed.Add(1)
	}
}

// Events is the receive side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// Missed counts events dropped because ctx ended before the reader made room.
func (s *ChannelSink) Missed() uint64 {
	return s.missed.Load()
}

// JSONWriterSink writes one JSON object per line. Each event reaches the writer in a
// single Write call, so lines never interleave. Failed writes are counted, not returned.
type JSONWriterSink struct {
	mu       sync.Mutex
	w        io.Writer
	buf      bytes.Buffer
	enc      *json.Encoder
	failures atomic.Uint64
}

// NewJSONWriterSink returns a sink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	s := &JSONWriterSink{w: w}
	s.enc = json.NewEncoder(&s.buf)
	return s
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.w == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.Reset()
	if err := s.enc.Encode(event); err != nil {
		s.failures.Add(1)
		return
	}
	if _, err := s.w.Write(s.buf.Bytes()); err != nil {
		s.failures.Add(1)
	}
}

// Failures counts events that could not be encoded or written.
func (s *JSONWriterSink) Failures() uint64 {
	if s == nil {
		return 0
	}
	return s.failures.Load()
}
