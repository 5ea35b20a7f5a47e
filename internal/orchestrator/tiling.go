package orchestrator

import (
	"context"
	"errors"
	"math"

	"github.com/srieg/zstack-analyzer/internal/errorsx"
	"github.com/srieg/zstack-analyzer/internal/planner"
	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// localKernel is a kernel whose output at a core voxel depends only on
// input voxels within haloRadius of it — the correctness contract §4.J
// requires of anything run through runTiledLocal (Gaussian3D,
// RollingBallBackground, Sobel3D all qualify; OtsuThreshold and
// ConnectedComponents3D do not, since both need a whole-volume reduction,
// so they always run on the assembled result rather than per tile).
type localKernel func(ctx context.Context, in *tensor.Tensor) (*tensor.Tensor, error)

// runTiledLocal runs k over vol, splitting into planner.Plan's tiles when
// the plan calls for it and stitching each tile's cropped core back into a
// full-size result; a single-pass plan just calls k directly. On a tile's
// tensor.AllocError it retries the whole pass once with the planning
// budget halved (the spec's "retry at half tile size" policy, implemented
// at the plan level since tile geometry is the planner's to decide);
// persistent failure surfaces errorsx.OutOfMemoryError.
func runTiledLocal(ctx context.Context, vol *tensor.Tensor, stage string, elemSize int, stageMultiplier float64, budget int64, haloRadius int, k localKernel, tick func(fraction float64)) (*tensor.Tensor, error) {
	shape := vol.Shape()

	plan, err := planner.Plan(shape, elemSize, stageMultiplier, budget, haloRadius)
	if err != nil {
		return nil, err
	}

	out, err := runPlan(ctx, vol, plan, k, tick)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return nil, &errorsx.CancelledError{Stage: stage}
	}
	var allocErr *tensor.AllocError
	if !errors.As(err, &allocErr) {
		return nil, err
	}

	retryPlan, planErr := planner.Plan(shape, elemSize, stageMultiplier, budget/2, haloRadius)
	if planErr != nil {
		return nil, &errorsx.OutOfMemoryError{Stage: stage, Err: err}
	}
	out, err = runPlan(ctx, vol, retryPlan, k, tick)
	if err != nil {
		return nil, &errorsx.OutOfMemoryError{Stage: stage, Err: err}
	}
	return out, nil
}

func runPlan(ctx context.Context, vol *tensor.Tensor, plan planner.Plan, k localKernel, tick func(fraction float64)) (*tensor.Tensor, error) {
	if plan.SinglePass {
		tick(1.0)
		return k(ctx, vol)
	}

	dst, err := tensor.FromHost(make([]byte, vol.ByteSize()), vol.Shape(), vol.DType(), nil)
	if err != nil {
		return nil, err
	}

	for i, tile := range plan.Tiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		padded, err := vol.View(tile.PaddedOrigin(), tile.PaddedShape())
		if err != nil {
			return nil, err
		}
		processed, err := k(ctx, padded)
		if err != nil {
			return nil, err
		}

		cropped, err := processed.View(tile.CoreOffsetInPadded(), tile.CoreShape)
		if err != nil {
			return nil, err
		}
		dstRegion, err := dst.View(tile.CoreOrigin, tile.CoreShape)
		if err != nil {
			return nil, err
		}
		if err := dstRegion.CopyFrom(cropped); err != nil {
			return nil, err
		}

		tick(float64(i+1) / float64(len(plan.Tiles)))
	}
	return dst, nil
}

// haloForSigma returns the Gaussian3D kernel half-width for sigma, matching
// gaussianKernel1D's own sizing formula.
func haloForSigma(sigma float32) int {
	if sigma <= 0 {
		return 0
	}
	return int(math.Ceil(float64(sigma) * 3))
}
