package kernel

import (
	"context"
	"math"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// sobelSmooth and sobelDeriv are the separable 1-D stencils of the 3x3x3
// Sobel operator: a (1,2,1) smoothing pass on the two axes orthogonal to
// the gradient direction, and a (-1,0,1) derivative pass along it.
var sobelSmooth = []float32{1, 2, 1}
var sobelDeriv = []float32{-1, 0, 1}

// Sobel3D computes gradient magnitude via the separable 3-D Sobel operator:
// for each axis, a derivative pass along that axis and smoothing passes
// along the other two, summed in quadrature. Returns an F32 tensor
// regardless of the input dtype, since gradient magnitude commonly exceeds
// the input's range.
func Sobel3D(ctx context.Context, t *tensor.Tensor) (*tensor.Tensor, error) {
	shape := t.Shape()
	if shape[0]*shape[1]*shape[2] == 0 {
		return nil, ErrEmptyVolume
	}
	grid, _, err := toFloat32Grid(ctx, t)
	if err != nil {
		return nil, err
	}

	gz := axisGradient(grid, shape, 0)
	gy := axisGradient(grid, shape, 1)
	gx := axisGradient(grid, shape, 2)

	mag := make([]float32, len(grid))
	for i := range mag {
		mag[i] = float32(math.Sqrt(float64(gz[i])*float64(gz[i]) +
			float64(gy[i])*float64(gy[i]) +
			float64(gx[i])*float64(gx[i])))
	}

	return fromFloat32Grid(mag, shape, tensor.F32)
}

// axisGradient applies the derivative stencil along axis and the
// smoothing stencil along the other two.
func axisGradient(grid []float32, shape [3]int, axis int) []float32 {
	out := grid
	for a := 0; a < 3; a++ {
		if a == axis {
			out = separablePass(out, shape, a, sobelDeriv)
		} else {
			out = separablePass(out, shape, a, sobelSmooth)
		}
	}
	return out
}
