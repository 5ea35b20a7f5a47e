package analysisops

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// RegionStat holds the accumulated measurements for a single label.
type RegionStat struct {
	Label     uint16
	Count     int
	CentroidZ float64
	CentroidY float64
	CentroidX float64
	Sum       float64
	Mean      float64
	Variance  float64
	Min       float64
	Max       float64
}

// RegionStats computes per-label statistics in a single flat pass over
// labels and intensity, accumulating count/centroid/sum/sumSq/min/max in
// one scalar sweep (the same single-pass-over-a-flat-buffer shape the
// blend package's BlendBatch uses for per-pixel composition, generalized
// from RGBA-per-pixel work to one label bucket per voxel) and finalizing
// mean/variance only after the sweep completes.
func RegionStats(ctx context.Context, labels, intensity *tensor.Tensor) ([]RegionStat, error) {
	shape := labels.Shape()
	n := shape[0] * shape[1] * shape[2]

	labelData, err := labels.ToHost(ctx)
	if err != nil {
		return nil, err
	}
	intensityData, err := intensity.ToHost(ctx)
	if err != nil {
		return nil, err
	}
	intensityDType := intensity.DType()

	var maxLabel uint16
	for i := 0; i < n; i++ {
		l := binary.LittleEndian.Uint16(labelData[i*2 : i*2+2])
		if l > maxLabel {
			maxLabel = l
		}
	}

	type acc struct {
		count            int
		sumZ, sumY, sumX float64
		sum, sumSq       float64
		min, max         float64
		seen             bool
	}
	accs := make([]acc, maxLabel+1)

	for z := 0; z < shape[0]; z++ {
		for y := 0; y < shape[1]; y++ {
			for x := 0; x < shape[2]; x++ {
				i := (z*shape[1]+y)*shape[2] + x
				l := binary.LittleEndian.Uint16(labelData[i*2 : i*2+2])
				if l == 0 {
					continue
				}
				v := readIntensity(intensityData, intensityDType, i)
				a := &accs[l]
				if !a.seen {
					a.seen = true
					a.min, a.max = v, v
				} else {
					if v < a.min {
						a.min = v
					}
					if v > a.max {
						a.max = v
					}
				}
				a.count++
				a.sumZ += float64(z)
				a.sumY += float64(y)
				a.sumX += float64(x)
				a.sum += v
				a.sumSq += v * v
			}
		}
	}

	var out []RegionStat
	for l := uint16(1); l <= maxLabel; l++ {
		a := accs[l]
		if a.count == 0 {
			continue
		}
		mean := a.sum / float64(a.count)
		variance := a.sumSq/float64(a.count) - mean*mean
		if variance < 0 {
			variance = 0
		}
		out = append(out, RegionStat{
			Label:     l,
			Count:     a.count,
			CentroidZ: a.sumZ / float64(a.count),
			CentroidY: a.sumY / float64(a.count),
			CentroidX: a.sumX / float64(a.count),
			Sum:       a.sum,
			Mean:      mean,
			Variance:  variance,
			Min:       a.min,
			Max:       a.max,
		})
	}
	return out, nil
}

func readIntensity(data []byte, dtype tensor.DType, i int) float64 {
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
