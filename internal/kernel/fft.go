package kernel

import (
	"context"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/srieg/zstack-analyzer/internal/cache"
	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// fftAllowedSizes lists the factor base FFT3/IFFT3 pad shapes to: gonum's
// FFT works at any length, but zero-padding to a product of small primes
// keeps the per-axis transforms fast.
var fftAllowedSizes = []int{2, 3, 5, 7}

// nextSmoothSize returns the smallest n' >= n whose only prime factors are
// in fftAllowedSizes.
func nextSmoothSize(n int) int {
	if n <= 1 {
		return 1
	}
	for candidate := n; ; candidate++ {
		rem := candidate
		for _, p := range fftAllowedSizes {
			for rem%p == 0 {
				rem /= p
			}
		}
		if rem == 1 {
			return candidate
		}
	}
}

// fftPlanKey identifies a cached set of per-axis FFT plans by the padded
// shape they operate over.
type fftPlanKey struct {
	z, y, x int
}

type fftPlan struct {
	fz, fy, fx *fourier.CmplxFFT
}

var fftPlanCache = cache.New[fftPlanKey, *fftPlan](32)

func planFor(shape [3]int) *fftPlan {
	key := fftPlanKey{shape[0], shape[1], shape[2]}
	return fftPlanCache.GetOrCreate(key, func() *fftPlan {
		return &fftPlan{
			fz: fourier.NewCmplxFFT(shape[0]),
			fy: fourier.NewCmplxFFT(shape[1]),
			fx: fourier.NewCmplxFFT(shape[2]),
		}
	})
}

// FFT3 computes the forward 3-D discrete Fourier transform of real,
// zero-padded to the next shape whose extents are all products of
// {2,3,5,7}, via row-column-column 1-D passes (X, then Y, then Z) using
// gonum's complex FFT. Per-shape plans are cached write-once in the same
// structure the kernel-compilation cache uses.
func FFT3(ctx context.Context, real *tensor.Tensor) ([]complex128, [3]int, error) {
	shape := real.Shape()
	if shape[0]*shape[1]*shape[2] == 0 {
		return nil, shape, ErrEmptyVolume
	}
	grid, _, err := toFloat32Grid(ctx, real)
	if err != nil {
		return nil, shape, err
	}

	padded := [3]int{nextSmoothSize(shape[0]), nextSmoothSize(shape[1]), nextSmoothSize(shape[2])}
	data := make([]complex128, padded[0]*padded[1]*padded[2])
	for z := 0; z < shape[0]; z++ {
		for y := 0; y < shape[1]; y++ {
			for x := 0; x < shape[2]; x++ {
				data[idx3(padded, z, y, x)] = complex(float64(grid[idx3(shape, z, y, x)]), 0)
			}
		}
	}

	plan := planFor(padded)
	transformAxis(data, padded, 2, plan.fx.Coefficients)
	transformAxis(data, padded, 1, plan.fy.Coefficients)
	transformAxis(data, padded, 0, plan.fz.Coefficients)

	return data, padded, nil
}

// IFFT3 computes the inverse of FFT3 over freq (shaped padded) and crops
// the result back to outShape, discarding the zero-padding region.
func IFFT3(freq []complex128, padded, outShape [3]int) (*tensor.Tensor, error) {
	plan := planFor(padded)
	data := append([]complex128(nil), freq...)

	transformAxis(data, padded, 0, plan.fz.Sequence)
	transformAxis(data, padded, 1, plan.fy.Sequence)
	transformAxis(data, padded, 2, plan.fx.Sequence)

	scale := 1.0 / float64(padded[0]*padded[1]*padded[2])
	out := make([]float32, outShape[0]*outShape[1]*outShape[2])
	for z := 0; z < outShape[0]; z++ {
		for y := 0; y < outShape[1]; y++ {
			for x := 0; x < outShape[2]; x++ {
				v := data[idx3(padded, z, y, x)] * complex(scale, 0)
				out[idx3(outShape, z, y, x)] = float32(real(v))
			}
		}
	}
	return fromFloat32Grid(out, outShape, tensor.F32)
}

// transformAxis applies a 1-D complex transform (forward Coefficients or
// inverse Sequence) along axis to every line of data in shape, in place.
func transformAxis(data []complex128, shape [3]int, axis int, transform func(dst, src []complex128) []complex128) {
	n := shape[axis]
	line := make([]complex128, n)
	out := make([]complex128, n)

	iterate3(shape, axis, func(base, stride int) {
		for i := 0; i < n; i++ {
			line[i] = data[base+i*stride]
		}
		transform(out, line)
		for i := 0; i < n; i++ {
			data[base+i*stride] = out[i]
		}
	})
}

// iterate3 calls fn once per 1-D line running along axis, with base the
// flat index of that line's first element and stride the flat-index step
// between consecutive elements along axis.
func iterate3(shape [3]int, axis int, fn func(base, stride int)) {
	switch axis {
	case 0: // Z varies, Y and X fixed
		stride := shape[1] * shape[2]
		for y := 0; y < shape[1]; y++ {
			for x := 0; x < shape[2]; x++ {
				fn(y*shape[2]+x, stride)
			}
		}
	case 1: // Y varies
		stride := shape[2]
		for z := 0; z < shape[0]; z++ {
			for x := 0; x < shape[2]; x++ {
				fn(z*shape[1]*shape[2]+x, stride)
			}
		}
	default: // X varies
		for z := 0; z < shape[0]; z++ {
			for y := 0; y < shape[1]; y++ {
				fn(z*shape[1]*shape[2]+y*shape[2], 1)
			}
		}
	}
}
