package analysisops

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/srieg/zstack-analyzer/internal/kernel"
	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// intensityPercentiles are the fixed percentile points every channel's
// report includes.
var intensityPercentiles = []float64{1, 5, 50, 95, 99}

// ChannelIntensity is one channel's intensity report.
type ChannelIntensity struct {
	Mean        float64
	StdDev      float64
	Percentiles map[float64]float64
	SNR         float64
}

// IntensityAnalysis computes, for every channel, its mean/stddev,
// percentiles {1,5,50,95,99} via gonum/stat.Quantile, and a
// signal-to-noise estimate: mean over stddev of the lowest-gradient decile
// region, with gradient magnitude from kernel.Sobel3D. Channels are
// independent (each reads its own tensor and allocates its own scratch
// grids), so they run concurrently via errgroup; the first channel's
// error cancels the rest.
func IntensityAnalysis(ctx context.Context, channels []*tensor.Tensor) ([]ChannelIntensity, error) {
	out := make([]ChannelIntensity, len(channels))
	g, gctx := errgroup.WithContext(ctx)
	for i, ch := range channels {
		i, ch := i, ch
		g.Go(func() error {
			grid, _, err := toFloat64Grid(gctx, ch)
			if err != nil {
				return err
			}

			sorted := append([]float64(nil), grid...)
			sort.Float64s(sorted)

			mean := stat.Mean(sorted, nil)
			std := stat.StdDev(sorted, nil)

			percentiles := make(map[float64]float64, len(intensityPercentiles))
			for _, p := range intensityPercentiles {
				percentiles[p] = stat.Quantile(p/100, stat.Empirical, sorted, nil)
			}

			snr, err := lowGradientSNR(gctx, ch, grid)
			if err != nil {
				return err
			}

			out[i] = ChannelIntensity{Mean: mean, StdDev: std, Percentiles: percentiles, SNR: snr}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// lowGradientSNR computes mean/stddev of intensity restricted to the
// lowest-gradient decile of the volume (the region likeliest to be flat
// background, used as a noise-floor proxy).
func lowGradientSNR(ctx context.Context, ch *tensor.Tensor, intensity []float64) (float64, error) {
	grad, err := kernel.Sobel3D(ctx, ch)
	if err != nil {
		return 0, err
	}
	gradGrid, _, err := toFloat64Grid(ctx, grad)
	grad.Release()
	if err != nil {
		return 0, err
	}

	sortedGrad := append([]float64(nil), gradGrid...)
	sort.Float64s(sortedGrad)
	if len(sortedGrad) == 0 {
		return 0, nil
	}
	decileCutoff := sortedGrad[len(sortedGrad)/10]

	var region []float64
	for i, g := range gradGrid {
		if g <= decileCutoff {
			region = append(region, intensity[i])
		}
	}
	if len(region) == 0 {
		return 0, nil
	}
	mean := stat.Mean(region, nil)
	std := stat.StdDev(region, nil)
	if std == 0 {
		if mean == 0 {
			return 0, nil
		}
		return math.Inf(1), nil
	}
	return mean / std, nil
}
