package zstack

import "github.com/srieg/zstack-analyzer/internal/orchestrator"

// ProgressEvent is one point along a request's progress, monotonically
// non-decreasing in Fraction.
type ProgressEvent = orchestrator.ProgressEvent

// ProgressSink is the capability a Run call holds and emits events to.
type ProgressSink = orchestrator.ProgressSink

// DiscardSink drops every event. The zero value is ready to use.
type DiscardSink = orchestrator.DiscardSink

// StderrSink writes one line per event to stderr.
type StderrSink = orchestrator.StderrSink

// ChannelSink forwards every event onto a buffered channel, dropping
// events rather than blocking if the channel is full.
type ChannelSink = orchestrator.ChannelSink

// NewChannelSink returns a ChannelSink with a buffered channel of the
// given capacity.
func NewChannelSink(capacity int) *ChannelSink {
	return orchestrator.NewChannelSink(capacity)
}
