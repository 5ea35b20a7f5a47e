package orchestrator

import (
	"fmt"
	"os"
	"time"
)

// ProgressEvent is one point along a request's progress, monotonically
// non-decreasing in Fraction.
type ProgressEvent struct {
	RequestID string
	Algorithm Algorithm
	Stage     string
	Fraction  float64
}

// ProgressSink is the capability the orchestrator holds and emits events
// to; sinks compose freely and carry no per-call injection (replacing a
// callback argument threaded through every Run call).
type ProgressSink interface {
	Emit(ProgressEvent)
}

// DiscardSink drops every event. The zero value is ready to use.
type DiscardSink struct{}

func (DiscardSink) Emit(ProgressEvent) {}

// StderrSink writes one line per event to stderr.
type StderrSink struct{}

func (StderrSink) Emit(e ProgressEvent) {
	fmt.Fprintf(os.Stderr, "[%s] %s/%s %.1f%%\n", e.RequestID, e.Algorithm, e.Stage, e.Fraction*100)
}

// ChannelSink forwards every event onto Events. Emit drops the event
// rather than blocking if the channel is full, so a slow consumer cannot
// stall the orchestrator.
type ChannelSink struct {
	Events chan ProgressEvent
}

// NewChannelSink returns a ChannelSink with a buffered channel of the
// given capacity.
func NewChannelSink(capacity int) *ChannelSink {
	return &ChannelSink{Events: make(chan ProgressEvent, capacity)}
}

func (s *ChannelSink) Emit(e ProgressEvent) {
	select {
	case s.Events <- e:
	default:
	}
}

// progressTracker throttles emission to at most one event per ~100ms,
// except it always lets through the 0%, 100%, and stage-boundary points
// regardless of how recently the last event fired.
type progressTracker struct {
	sink      ProgressSink
	requestID string
	algorithm Algorithm
	throttle  time.Duration
	lastEmit  time.Time
}

func newProgressTracker(sink ProgressSink, requestID string, algorithm Algorithm) *progressTracker {
	if sink == nil {
		sink = DiscardSink{}
	}
	return &progressTracker{sink: sink, requestID: requestID, algorithm: algorithm, throttle: 100 * time.Millisecond}
}

func (t *progressTracker) emit(stage string, fraction float64, force bool) {
	now := time.Now()
	if !force && !t.lastEmit.IsZero() && now.Sub(t.lastEmit) < t.throttle {
		return
	}
	t.lastEmit = now
	t.sink.Emit(ProgressEvent{RequestID: t.requestID, Algorithm: t.algorithm, Stage: stage, Fraction: fraction})
}
