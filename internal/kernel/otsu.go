package kernel

import (
	"context"
	"runtime"

	"gonum.org/v1/gonum/floats"

	"github.com/srieg/zstack-analyzer/internal/parallel"
	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// OtsuThreshold computes the intensity threshold maximizing inter-class
// variance over a bins-bucket histogram of t, built as worker-pool partial
// histograms reduced by summation (the same chunked-reduce shape the
// worker pool package uses for pixel tiles, generalized to voxel chunks).
// Returns the threshold as a value in t's own intensity range. An empty
// volume returns ErrEmptyVolume; a constant volume returns that constant.
func OtsuThreshold(ctx context.Context, t *tensor.Tensor, bins int) (float32, error) {
	grid, _, err := toFloat32Grid(ctx, t)
	if err != nil {
		return 0, err
	}
	if len(grid) == 0 {
		return 0, ErrEmptyVolume
	}
	if bins < 2 {
		bins = 256
	}

	lo, hi := grid[0], grid[0]
	for _, v := range grid[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return lo, nil
	}
	scale := float32(bins-1) / (hi - lo)

	hist := reducedHistogram(grid, bins, lo, scale)
	return lo + otsuBinToValue(hist, bins)/scale, nil
}

// reducedHistogram builds a bins-length histogram of grid by splitting it
// into per-worker chunks, accumulating a partial histogram per chunk, and
// summing the partials, mirroring internal/parallel.WorkerPool's
// ExecuteAll fan-out/fan-in shape.
func reducedHistogram(grid []float32, bins int, lo, scale float32) []float64 {
	workers := runtime.GOMAXPROCS(0)
	chunkSize := (len(grid) + workers - 1) / workers
	if chunkSize < 1 {
		chunkSize = 1
	}

	partials := make([][]float64, 0, workers)
	work := make([]func(), 0, workers)

	for start := 0; start < len(grid); start += chunkSize {
		end := min(start+chunkSize, len(grid))
		partial := make([]float64, bins)
		partials = append(partials, partial)

		chunk := grid[start:end]
		work = append(work, func() {
			for _, v := range chunk {
				b := int((v - lo) * scale)
				if b < 0 {
					b = 0
				} else if b >= bins {
					b = bins - 1
				}
				partial[b]++
			}
		})
	}

	pool := parallel.NewWorkerPool(workers)
	defer pool.Close()
	pool.ExecuteAll(work)

	hist := make([]float64, bins)
	for _, p := range partials {
		floats.Add(hist, p)
	}
	return hist
}

// otsuBinToValue scans all bins-1 possible thresholds in one pass over
// cumulative sums, returning the bin index maximizing between-class
// variance (scaled to the 0..bins-1 range the caller maps back to
// intensity).
func otsuBinToValue(hist []float64, bins int) float32 {
	total := floats.Sum(hist)
	if total == 0 {
		return 0
	}

	var sumAll float64
	for i, h := range hist {
		sumAll += float64(i) * h
	}

	var wB, sumB float64
	var bestVar float64
	bestBin := 0

	for i := 0; i < bins; i++ {
		wB += hist[i]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * hist[i]
		mB := sumB / wB
		mF := (sumAll - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			bestBin = i
		}
	}
	return float32(bestBin)
}
