package kernel

import (
	"context"
	"math"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// RollingBallBackground estimates and removes the local background by a
// separable grayscale morphological opening: a flat 1-D erosion (min) pass
// followed by a flat 1-D dilation (max) pass along each axis, radius
// rounded up per axis, then subtract-and-clamp against the original.
func RollingBallBackground(ctx context.Context, t *tensor.Tensor, radius float32) (*tensor.Tensor, error) {
	shape := t.Shape()
	if shape[0]*shape[1]*shape[2] == 0 {
		return nil, ErrEmptyVolume
	}
	grid, _, err := toFloat32Grid(ctx, t)
	if err != nil {
		return nil, err
	}
	r := int(math.Ceil(float64(radius)))
	if r < 1 {
		r = 1
	}

	background := grid
	for axis := 0; axis < 3; axis++ {
		background = separableMinMax(background, shape, axis, r, false)
	}
	for axis := 0; axis < 3; axis++ {
		background = separableMinMax(background, shape, axis, r, true)
	}

	out := make([]float32, len(grid))
	for i := range grid {
		v := grid[i] - background[i]
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return fromFloat32Grid(out, shape, t.DType())
}

// separableMinMax applies a flat structuring element of radius r along
// axis: erosion (min) when dilate is false, dilation (max) when true.
// Boundary samples use reflect101, matching every other separable pass.
func separableMinMax(grid []float32, shape [3]int, axis, r int, dilate bool) []float32 {
	out := make([]float32, len(grid))
	n := shape[axis]

	for z := 0; z < shape[0]; z++ {
		for y := 0; y < shape[1]; y++ {
			for x := 0; x < shape[2]; x++ {
				best := grid[idx3(shape, z, y, x)]
				for d := -r; d <= r; d++ {
					if d == 0 {
						continue
					}
					var sz, sy, sx int
					switch axis {
					case 0:
						sz, sy, sx = reflect101(z+d, n), y, x
					case 1:
						sz, sy, sx = z, reflect101(y+d, n), x
					default:
						sz, sy, sx = z, y, reflect101(x+d, n)
					}
					v := grid[idx3(shape, sz, sy, sx)]
					if dilate && v > best {
						best = v
					}
					if !dilate && v < best {
						best = v
					}
				}
				out[idx3(shape, z, y, x)] = best
			}
		}
	}
	return out
}
