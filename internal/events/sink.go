package events

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// Event is one progress notification, emitted at pipeline stage boundaries
// and once per synthesis attempt.
type Event struct {
	SessionID string                 `json:"session_id"`
	Stage     string                 `json:"stage"`
	Status    Status                 `json:"status"`
	Kind      string                 `json:"kind,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Sink receives progress events. Publish is best-effort and must be safe to
// call from any goroutine; a sink never blocks or fails the pipeline.
type Sink interface {
	Publish(event Event)
}

// MultiSink fans one event out to several sinks. A panicking sink is logged
// and skipped so one bad subscriber cannot take down a turn.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Publish(event Event) {
	for _, sink := range m.sinks {
		m.publishOne(sink, event)
	}
}

func (m *MultiSink) publishOne(sink Sink, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("stage", event.Stage).Msg("Progress sink panicked, event dropped for that sink")
		}
	}()
	sink.Publish(event)
}

// ChannelSink queues events onto a buffered channel for a consumer goroutine
// to drain. When the buffer is full the event is dropped with a warning
// rather than blocking the pipeline.
type ChannelSink struct {
	ch chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelSink{ch: make(chan Event, buffer)}
}

func (s *ChannelSink) Publish(event Event) {
	select {
	case s.ch <- event:
	default:
		log.Warn().Str("stage", event.Stage).Str("session", event.SessionID).Msg("Progress event buffer full, dropping event")
	}
}

// Events exposes the drain side of the queue.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

// DrainWith consumes queued events into fn until ctx is cancelled. It is the
// consumer-goroutine counterpart of Publish; run it on its own goroutine.
func (s *ChannelSink) DrainWith(ctx context.Context, fn func(Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-s.ch:
			fn(event)
		}
	}
}
