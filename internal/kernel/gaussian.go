package kernel

import (
	"context"
	"math"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// gaussianKernel1D generates a normalized 1-D Gaussian kernel for sigma,
// sized 2*ceil(3*sigma)+1 to cover three standard deviations, the same
// formula and sizing convention the 2D blur filter uses.
func gaussianKernel1D(sigma float32) []float32 {
	if sigma <= 0 {
		return []float32{1.0}
	}
	halfSize := int(math.Ceil(float64(sigma) * 3))
	size := halfSize*2 + 1
	k := make([]float32, size)

	twoSigmaSq := 2 * float64(sigma) * float64(sigma)
	sum := 0.0
	for i := 0; i < size; i++ {
		x := float64(i - halfSize)
		v := math.Exp(-(x * x) / twoSigmaSq)
		k[i] = float32(v)
		sum += v
	}
	if sum > 0 {
		inv := float32(1.0 / sum)
		for i := range k {
			k[i] *= inv
		}
	}
	return k
}

// Gaussian3D applies separable Gaussian smoothing along Z, then Y, then X,
// returning a new tensor of the same dtype and shape as t. Each pass
// mirrors the 2D blur filter's blurHorizontal/blurVertical structure,
// generalized to a third axis and to single-channel (not RGBA) samples,
// with reflect-101 boundary handling and float32 accumulation throughout.
func Gaussian3D(ctx context.Context, t *tensor.Tensor, sigma [3]float32) (*tensor.Tensor, error) {
	shape := t.Shape()
	if shape[0]*shape[1]*shape[2] == 0 {
		return nil, ErrEmptyVolume
	}
	grid, _, err := toFloat32Grid(ctx, t)
	if err != nil {
		return nil, err
	}

	grid = separablePass(grid, shape, 0, cachedGaussianKernel1D(sigma[0]))
	grid = separablePass(grid, shape, 1, cachedGaussianKernel1D(sigma[1]))
	grid = separablePass(grid, shape, 2, cachedGaussianKernel1D(sigma[2]))

	return fromFloat32Grid(grid, shape, t.DType())
}

// separablePass convolves grid (row-major Z,Y,X, shape) along axis (0=Z,
// 1=Y, 2=X) with the given 1-D kernel, using reflect-101 boundary
// sampling, and returns a new grid.
func separablePass(grid []float32, shape [3]int, axis int, k []float32) []float32 {
	half := len(k) / 2
	out := make([]float32, len(grid))
	n := shape[axis]

	for z := 0; z < shape[0]; z++ {
		for y := 0; y < shape[1]; y++ {
			for x := 0; x < shape[2]; x++ {
				var acc float32
				for ki, w := range k {
					d := ki - half
					var sz, sy, sx int
					switch axis {
					case 0:
						sz, sy, sx = reflect101(z+d, n), y, x
					case 1:
						sz, sy, sx = z, reflect101(y+d, n), x
					default:
						sz, sy, sx = z, y, reflect101(x+d, n)
					}
					acc += grid[idx3(shape, sz, sy, sx)] * w
				}
				out[idx3(shape, z, y, x)] = acc
			}
		}
	}
	return out
}
