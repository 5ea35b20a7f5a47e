package kernel

import (
	"context"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// watershedBins is the number of intensity buckets used to quantize the
// priority-flood order. Coarser than a full per-intensity-level sort, but
// keeps the flood a single FIFO-per-bucket sweep instead of a heap.
const watershedBins = 256

// Watershed3D grows markers outward across image, confined to mask, via
// hierarchical priority-flood: voxels are queued by quantized intensity
// bucket (lowest first), and within a bucket processed FIFO, the same
// bucket-queue structure a heap-based watershed degrades to when priorities
// are pre-quantized. Returns a label tensor the same shape as image, with
// every mask voxel assigned its nearest marker's label (0 where mask is
// false or unreached).
func Watershed3D(ctx context.Context, image, markers, mask *tensor.Tensor) (*tensor.Tensor, error) {
	shape := image.Shape()
	n := shape[0] * shape[1] * shape[2]
	if n == 0 {
		return nil, ErrEmptyVolume
	}

	img, _, err := toFloat32Grid(ctx, image)
	if err != nil {
		return nil, err
	}
	mk, _, err := toFloat32Grid(ctx, markers)
	if err != nil {
		return nil, err
	}
	mask01, _, err := toFloat32Grid(ctx, mask)
	if err != nil {
		return nil, err
	}

	lo, hi := img[0], img[0]
	for _, v := range img[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	scale := float32(0)
	if hi > lo {
		scale = float32(watershedBins-1) / (hi - lo)
	}

	labels := make([]float32, n)
	visited := make([]bool, n)
	buckets := make([][]int, watershedBins)

	bucketOf := func(i int) int {
		if scale == 0 {
			return 0
		}
		b := int((img[i] - lo) * scale)
		if b < 0 {
			b = 0
		} else if b >= watershedBins {
			b = watershedBins - 1
		}
		return b
	}

	for i := 0; i < n; i++ {
		if mask01[i] != 0 && mk[i] != 0 {
			labels[i] = mk[i]
			visited[i] = true
			buckets[bucketOf(i)] = append(buckets[bucketOf(i)], i)
		}
	}

	offsets := fullNeighbors26
	for b := 0; b < watershedBins; b++ {
		queue := buckets[b]
		for head := 0; head < len(queue); head++ {
			i := queue[head]
			z, y, x := i/(shape[1]*shape[2]), (i/shape[2])%shape[1], i%shape[2]
			for _, off := range offsets {
				nz, ny, nx := z+off[0], y+off[1], x+off[2]
				if nz < 0 || ny < 0 || nx < 0 || nz >= shape[0] || ny >= shape[1] || nx >= shape[2] {
					continue
				}
				ni := idx3(shape, nz, ny, nx)
				if visited[ni] || mask01[ni] == 0 {
					continue
				}
				visited[ni] = true
				labels[ni] = labels[i]
				nb := bucketOf(ni)
				if nb < b {
					nb = b
				}
				buckets[nb] = append(buckets[nb], ni)
			}
		}
	}

	return fromFloat32Grid(labels, shape, tensor.U16)
}
