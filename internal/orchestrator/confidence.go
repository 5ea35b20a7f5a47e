package orchestrator

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// segmentationConfidence scores a segmentation_3d result: the relative
// contrast between the foreground mean (voxels with a non-zero label) and
// background mean (label 0), scaled by the fraction of labeled voxels that
// belong to the largest connected component. Both reductions are a single
// ascending pass over voxel index — never a concurrent accumulation —
// fixing the reduction order the Open Question on determinism asked for.
// An empty label set (no foreground) yields 0, matching the constant-image
// edge case.
func segmentationConfidence(ctx context.Context, source, labels *tensor.Tensor) (float64, error) {
	shape := labels.Shape()
	n := shape[0] * shape[1] * shape[2]

	labelData, err := labels.ToHost(ctx)
	if err != nil {
		return 0, err
	}
	sourceData, err := source.ToHost(ctx)
	if err != nil {
		return 0, err
	}
	dtype := source.DType()

	var maxLabel uint16
	for i := 0; i < n; i++ {
		if l := binary.LittleEndian.Uint16(labelData[i*2 : i*2+2]); l > maxLabel {
			maxLabel = l
		}
	}
	counts := make([]int, maxLabel+1)

	var fgSum, bgSum float64
	var fgCount, bgCount int
	for i := 0; i < n; i++ {
		l := binary.LittleEndian.Uint16(labelData[i*2 : i*2+2])
		v := readVoxel(sourceData, dtype, i)
		if l == 0 {
			bgSum += v
			bgCount++
			continue
		}
		counts[l]++
		fgSum += v
		fgCount++
	}
	if fgCount == 0 {
		return 0, nil
	}

	var largest int
	for _, c := range counts {
		if c > largest {
			largest = c
		}
	}

	fgMean := fgSum / float64(fgCount)
	var bgMean float64
	if bgCount > 0 {
		bgMean = bgSum / float64(bgCount)
	}

	var contrast float64
	if denom := fgMean + bgMean; denom > 0 {
		contrast = (fgMean - bgMean) / denom
	}
	contrast = clamp01(contrast)

	fraction := float64(largest) / float64(fgCount)
	return clamp01(contrast * fraction), nil
}

func readVoxel(data []byte, dtype tensor.DType, i int) float64 {
	switch dtype {
	case tensor.U8:
		return float64(data[i])
	case tensor.U16:
		return float64(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
	case tensor.F32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4])))
	default:
		return 0
	}
}

// colocalizationConfidence implements 1 - sigma(r): for |r| >= 0.1 sigma is
// 1-|r| so confidence tracks |r| directly; below that, confidence is
// additionally scaled by |r|/0.1, pushing a near-zero correlation (which
// carries no colocalization signal either way) toward 0 rather than toward
// the false reassurance sigma=1-|r| alone would give near r=0.
func colocalizationConfidence(r float64) float64 {
	absR := math.Abs(r)
	if absR < 0.1 {
		return clamp01(absR * (absR / 0.1))
	}
	return clamp01(absR)
}

// deconvolutionConfidence implements 1 - normalized-final-relative-change:
// the final iteration's relative change is normalized against 10x the
// convergence tolerance actually used, so confidence is 1 when the
// iteration has fully settled and falls to 0 once the final step was still
// an order of magnitude looser than the tolerance it was asked to reach.
func deconvolutionConfidence(finalRelChange float64, tol float64) float64 {
	if tol <= 0 {
		tol = 1e-4
	}
	normalized := finalRelChange / (10 * tol)
	return clamp01(1 - normalized)
}

// intensityConfidence is fixed at 1: intensity_analysis reports direct
// measurements (mean, percentiles, SNR) with no heuristic threshold or
// iterative estimate in the loop, so there is no natural [0,1] uncertainty
// signal to derive a lower score from.
const intensityConfidence = 1.0
