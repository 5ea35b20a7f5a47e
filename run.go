package zstack

import (
	"context"

	"github.com/srieg/zstack-analyzer/internal/device"
	"github.com/srieg/zstack-analyzer/internal/orchestrator"
	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// Run drives one analysis request through the orchestrator's
// INIT -> VALIDATE_PARAMS -> PLAN_TILING -> STAGE_1..N -> AGGREGATE -> DONE
// state machine against vol's channels, detecting a device and its memory
// budget automatically. requestID is echoed back in every ProgressEvent and
// is the caller's to choose (a UUID, a job queue key, anything unique to
// this request).
func Run(ctx context.Context, requestID string, vol *Volume, pipeline Pipeline, sink ProgressSink) (Result, error) {
	mgr, err := device.Detect()
	if err != nil {
		return Result{}, err
	}
	defer mgr.Close()

	channels := vol.Channels
	if channels == nil {
		channels, err = materializeAll(ctx, vol)
		if err != nil {
			return Result{}, err
		}
	}

	budget := int64(mgr.MemoryBudget())
	return orchestrator.Run(ctx, requestID, channels, vol.Meta, pipeline, sink, budget, mgr.Adapter())
}

// materializeAll fully reads every channel of a lazily chunked Volume,
// walking each ChunkedView's cursor in its deterministic row-major order
// and stitching chunks into one full-size tensor per channel. It exists so
// Run can accept either materialization mode Load returns without the
// orchestrator itself needing to know about chunked loading.
func materializeAll(ctx context.Context, vol *Volume) ([]*tensor.Tensor, error) {
	shape := [3]int{vol.Meta.SZ, vol.Meta.SY, vol.Meta.SX}
	var dtype tensor.DType
	switch {
	case vol.Meta.BitsPerSample <= 8:
		dtype = tensor.U8
	case vol.Meta.BitsPerSample <= 16:
		dtype = tensor.U16
	default:
		dtype = tensor.F32
	}

	out := make([]*tensor.Tensor, len(vol.Chunked))
	for i, chunked := range vol.Chunked {
		full, err := tensor.FromHost(make([]byte, shape[0]*shape[1]*shape[2]*dtype.Size()), shape, dtype, nil)
		if err != nil {
			return nil, err
		}

		cursor := chunked.Cursor()
		for {
			chunk, origin, ok, err := cursor.Next(ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			region, err := full.View(origin, chunk.Shape())
			if err != nil {
				return nil, err
			}
			if err := region.CopyFrom(chunk); err != nil {
				return nil, err
			}
			chunk.Release()
		}
		out[i] = full
	}
	return out, nil
}
