package zstack

import (
	"context"

	"github.com/srieg/zstack-analyzer/internal/loader"
	"github.com/srieg/zstack-analyzer/internal/metadata"
	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// Metadata is the normalized acquisition record every container format
// loader produces.
type Metadata = metadata.Metadata

// Volume is a loaded Z-stack: either fully materialized channel tensors or
// a lazy per-channel chunk view, never both, mirroring internal/loader's
// own materialize-or-stream split.
type Volume struct {
	Meta     Metadata
	Channels []*tensor.Tensor
	Chunked  []*loader.ChunkedView
}

// ProbeMetadata returns path's normalized Metadata without reading any
// pixel data.
func ProbeMetadata(path string) (Metadata, error) {
	return loader.Probe(path)
}

// LoadOpts configures Load's position/timepoint selection and the
// lazy-materialization threshold. There is no channel selection: Load
// returns every channel.
type LoadOpts struct {
	Position  int
	Timepoint int
	// Lazy overrides the automatic 1GiB/budget-half threshold when non-nil.
	Lazy *bool
	// MemoryBudget is the device budget consulted for the automatic lazy
	// threshold. Zero falls back to the budget reported by the detected
	// device (see Run).
	MemoryBudget int64
}

// Load reads the volume at path, returning either fully materialized
// channel tensors or a lazy ChunkedView per channel depending on its
// estimated size against the memory budget.
func Load(ctx context.Context, path string, opts LoadOpts) (*Volume, error) {
	v, err := loader.Read(ctx, path, loader.ReadOpts{
		Position:     opts.Position,
		Timepoint:    opts.Timepoint,
		Lazy:         opts.Lazy,
		MemoryBudget: opts.MemoryBudget,
	})
	if err != nil {
		return nil, err
	}
	return &Volume{Meta: v.Meta, Channels: v.Channels, Chunked: v.Chunked}, nil
}
