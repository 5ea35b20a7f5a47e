package analysisops

import (
	"context"

	"gonum.org/v1/gonum/stat"

	"github.com/srieg/zstack-analyzer/internal/kernel"
	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// Colocalization holds the standard pairwise colocalization measures
// between two channels, optionally restricted to mask.
type Colocalization struct {
	PearsonR float64
	M1       float64 // fraction of chA signal overlapping chB's threshold
	M2       float64 // fraction of chB signal overlapping chA's threshold
}

// ColocalizationThresholds supplies or requests the per-channel thresholds
// Manders' M1/M2 are computed against. A zero ThresholdA/ThresholdB
// triggers an Otsu threshold on the corresponding channel.
type ColocalizationThresholds struct {
	ThresholdA float32
	ThresholdB float32
}

// ComputeColocalization computes Pearson's r over chA/chB (restricted to
// mask when non-nil) via gonum/stat.Correlation, and Manders' M1/M2 over
// the supplied or Otsu-derived per-channel thresholds.
func ComputeColocalization(ctx context.Context, chA, chB, mask *tensor.Tensor, thresholds ColocalizationThresholds) (Colocalization, error) {
	a, _, err := toFloat64Grid(ctx, chA)
	if err != nil {
		return Colocalization{}, err
	}
	b, _, err := toFloat64Grid(ctx, chB)
	if err != nil {
		return Colocalization{}, err
	}

	var maskData []bool
	if mask != nil {
		maskData, err = toBoolGrid(ctx, mask)
		if err != nil {
			return Colocalization{}, err
		}
	}

	var xs, ys []float64
	for i := range a {
		if maskData != nil && !maskData[i] {
			continue
		}
		xs = append(xs, a[i])
		ys = append(ys, b[i])
	}

	var r float64
	if len(xs) > 1 {
		r = stat.Correlation(xs, ys, nil)
	}

	thA := thresholds.ThresholdA
	thB := thresholds.ThresholdB
	if thA == 0 {
		t, err := kernel.OtsuThreshold(ctx, chA, 256)
		if err != nil {
			return Colocalization{}, err
		}
		thA = t
	}
	if thB == 0 {
		t, err := kernel.OtsuThreshold(ctx, chB, 256)
		if err != nil {
			return Colocalization{}, err
		}
		thB = t
	}

	var sumA, sumB, overlapA, overlapB float64
	for i := range a {
		if maskData != nil && !maskData[i] {
			continue
		}
		aboveA := a[i] > float64(thA)
		aboveB := b[i] > float64(thB)
		if aboveA {
			sumA += a[i]
			if aboveB {
				overlapA += a[i]
			}
		}
		if aboveB {
			sumB += b[i]
			if aboveA {
				overlapB += b[i]
			}
		}
	}

	var m1, m2 float64
	if sumA > 0 {
		m1 = overlapA / sumA
	}
	if sumB > 0 {
		m2 = overlapB / sumB
	}

	return Colocalization{PearsonR: r, M1: m1, M2: m2}, nil
}
