package segmentation

import (
	"context"
	"encoding/binary"

	"github.com/srieg/zstack-analyzer/internal/kernel"
	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// FilterSmallObjects drops every labeled component with fewer than
// minVoxels voxels and renumbers the survivors 1..N in their original
// label order.
func FilterSmallObjects(ctx context.Context, labels *tensor.Tensor, numObjects, minVoxels int) (*tensor.Tensor, int, error) {
	if minVoxels <= 1 {
		return labels, numObjects, nil
	}
	shape := labels.Shape()
	data, err := labels.ToHost(ctx)
	if err != nil {
		return nil, 0, err
	}
	n := shape[0] * shape[1] * shape[2]

	counts := make([]int, numObjects+1)
	for i := 0; i < n; i++ {
		l := binary.LittleEndian.Uint16(data[i*2 : i*2+2])
		counts[l]++
	}

	remap := make([]uint16, numObjects+1)
	var next uint16
	for l := 1; l <= numObjects; l++ {
		if counts[l] >= minVoxels {
			next++
			remap[l] = next
		}
	}

	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		l := binary.LittleEndian.Uint16(data[i*2 : i*2+2])
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], remap[l])
	}

	labels.Release()
	result, err := tensor.FromHost(out, shape, tensor.U16, nil)
	return result, int(next), err
}

// Blob is a detected scale-space extremum: its position, the Gaussian
// scale (sigma) at which it was detected, and the DoG response magnitude.
type Blob struct {
	Z, Y, X int
	Scale   float32
	Response float32
}

// DetectBlobsLoG approximates Laplacian-of-Gaussian blob detection with a
// difference-of-Gaussians scale-space: Gaussian3D is evaluated at each
// scale in scales, adjacent scales are subtracted, and each DoG volume is
// non-max-suppressed within its own 3x3x3 neighborhood and against the
// scale immediately above and below.
func DetectBlobsLoG(ctx context.Context, vol *tensor.Tensor, scales []float32) ([]Blob, error) {
	if len(scales) < 2 {
		return nil, nil
	}

	smoothed := make([][]float32, len(scales))
	shape := vol.Shape()
	for i, s := range scales {
		g, err := kernel.Gaussian3D(ctx, vol, [3]float32{s, s, s})
		if err != nil {
			return nil, err
		}
		data, err := g.ToHost(ctx)
		g.Release()
		if err != nil {
			return nil, err
		}
		smoothed[i] = decodeToFloat32(data, vol.DType(), shape[0]*shape[1]*shape[2])
	}

	dog := make([][]float32, len(scales)-1)
	for i := 0; i < len(scales)-1; i++ {
		d := make([]float32, len(smoothed[i]))
		for j := range d {
			d[j] = smoothed[i+1][j] - smoothed[i][j]
		}
		dog[i] = d
	}

	var blobs []Blob
	for s := 0; s < len(dog); s++ {
		for z := 0; z < shape[0]; z++ {
			for y := 0; y < shape[1]; y++ {
				for x := 0; x < shape[2]; x++ {
					idx := (z*shape[1]+y)*shape[2] + x
					v := dog[s][idx]
					if isLocalExtremum(dog, shape, s, z, y, x, v) {
						blobs = append(blobs, Blob{Z: z, Y: y, X: x, Scale: scales[s], Response: v})
					}
				}
			}
		}
	}
	return blobs, nil
}

// isLocalExtremum reports whether v is the maximum-magnitude response in
// its 3x3x3xscale neighborhood across the DoG stack dog, checking the
// current scale plus the scale immediately above and below when present.
func isLocalExtremum(dog [][]float32, shape [3]int, scale, z, y, x int, v float32) bool {
	mag := absf32(v)
	for ds := -1; ds <= 1; ds++ {
		s := scale + ds
		if s < 0 || s >= len(dog) {
			continue
		}
		for dz := -1; dz <= 1; dz++ {
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if ds == 0 && dz == 0 && dy == 0 && dx == 0 {
						continue
					}
					nz, ny, nx := z+dz, y+dy, x+dx
					if nz < 0 || ny < 0 || nx < 0 || nz >= shape[0] || ny >= shape[1] || nx >= shape[2] {
						continue
					}
					nIdx := (nz*shape[1]+ny)*shape[2] + nx
					if absf32(dog[s][nIdx]) >= mag {
						return false
					}
				}
			}
		}
	}
	return true
}

func absf32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
