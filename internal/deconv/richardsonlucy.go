package deconv

import (
	"context"
	"math"

	"github.com/srieg/zstack-analyzer/internal/kernel"
	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// RLParams configures Richardson-Lucy deconvolution.
type RLParams struct {
	Iterations int
	// Reg is the additive floor in the blurred-estimate denominator that
	// keeps division stable where the estimate is near zero.
	Reg float64
	// LambdaTV, when > 0, adds one isotropic total-variation gradient-descent
	// sub-step to every iteration (Dey et al.'s RL-TV regularization).
	LambdaTV float64
	// Tol stops iteration early once the relative change in the estimate
	// falls below it. Zero or negative selects the default of 1e-4.
	Tol float64
}

// withDefaults fills unset fields the way segmentation.Params does.
func (p RLParams) withDefaults() RLParams {
	if p.Iterations <= 0 {
		p.Iterations = 20
	}
	if p.Reg <= 0 {
		p.Reg = 1e-6
	}
	if p.Tol <= 0 {
		p.Tol = 1e-4
	}
	return p
}

// RichardsonLucy deconvolves image against psf via the classic multiplicative
// update, evaluated in the frequency domain: psf is normalized to unit sum
// and embedded into image's shape (fftshift-centered) once, then every
// iteration is two forward FFTs, a pointwise ratio, and two inverse FFTs.
// The second return value is the final iteration's relative change
// (sqrt(sum((next-prev)^2)/sum(prev^2))), the raw input to the orchestrator's
// deconvolution confidence score.
func RichardsonLucy(ctx context.Context, image, psf *tensor.Tensor, params RLParams) (*tensor.Tensor, float64, error) {
	params = params.withDefaults()

	imageShape := image.Shape()
	imageGrid, _, err := toFloat32Grid(ctx, image)
	if err != nil {
		return nil, 0, err
	}

	psfShape := psf.Shape()
	psfGrid, _, err := toFloat32Grid(ctx, psf)
	if err != nil {
		return nil, 0, err
	}
	normalizeSum(psfGrid)
	embeddedPSF := embedKernel(psfGrid, psfShape, imageShape)

	psfTensor, err := fromFloat32Grid(embeddedPSF, imageShape)
	if err != nil {
		return nil, 0, err
	}
	psfFreq, padded, err := kernel.FFT3(ctx, psfTensor)
	psfTensor.Release()
	if err != nil {
		return nil, 0, err
	}
	psfFreqConj := make([]complex128, len(psfFreq))
	for i, v := range psfFreq {
		psfFreqConj[i] = complex(real(v), -imag(v))
	}

	estimate := append([]float32(nil), imageGrid...)
	var finalRelChange float64

	for iter := 0; iter < params.Iterations; iter++ {
		estTensor, err := fromFloat32Grid(estimate, imageShape)
		if err != nil {
			return nil, 0, err
		}
		estFreq, _, err := kernel.FFT3(ctx, estTensor)
		estTensor.Release()
		if err != nil {
			return nil, 0, err
		}

		convFreq := make([]complex128, len(estFreq))
		for i := range convFreq {
			convFreq[i] = estFreq[i] * psfFreq[i]
		}
		convTensor, err := kernel.IFFT3(convFreq, padded, imageShape)
		if err != nil {
			return nil, 0, err
		}
		convGrid, _, err := toFloat32Grid(ctx, convTensor)
		convTensor.Release()
		if err != nil {
			return nil, 0, err
		}

		ratio := make([]float32, len(convGrid))
		for i := range ratio {
			ratio[i] = imageGrid[i] / (convGrid[i] + float32(params.Reg))
		}
		ratioTensor, err := fromFloat32Grid(ratio, imageShape)
		if err != nil {
			return nil, 0, err
		}
		ratioFreq, _, err := kernel.FFT3(ctx, ratioTensor)
		ratioTensor.Release()
		if err != nil {
			return nil, 0, err
		}

		corrFreq := make([]complex128, len(ratioFreq))
		for i := range corrFreq {
			corrFreq[i] = ratioFreq[i] * psfFreqConj[i]
		}
		corrTensor, err := kernel.IFFT3(corrFreq, padded, imageShape)
		if err != nil {
			return nil, 0, err
		}
		corrGrid, _, err := toFloat32Grid(ctx, corrTensor)
		corrTensor.Release()
		if err != nil {
			return nil, 0, err
		}

		next := make([]float32, len(estimate))
		var changeSq, normSq float64
		for i := range next {
			v := estimate[i] * corrGrid[i]
			if v < 0 {
				v = 0
			}
			next[i] = v
			d := float64(v - estimate[i])
			changeSq += d * d
			normSq += float64(estimate[i]) * float64(estimate[i])
		}

		if params.LambdaTV > 0 {
			applyTVStep(next, imageShape, params.LambdaTV)
		}

		estimate = next

		if normSq > 0 {
			finalRelChange = math.Sqrt(changeSq / normSq)
		} else {
			finalRelChange = 0
		}
		if params.Tol > 0 && normSq > 0 && finalRelChange < params.Tol {
			break
		}
	}

	out, err := fromFloat32Grid(estimate, imageShape)
	if err != nil {
		return nil, 0, err
	}
	return out, finalRelChange, nil
}

func normalizeSum(grid []float32) {
	var sum float64
	for _, v := range grid {
		sum += float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / sum)
	for i := range grid {
		grid[i] *= inv
	}
}

// applyTVStep subtracts one isotropic total-variation gradient-descent step
// from grid in place: div(grad(v)/|grad(v)|) approximated with forward
// differences and a small epsilon to keep the normalization stable near
// flat regions.
func applyTVStep(grid []float32, shape [3]int, lambda float64) {
	const eps = 1e-8
	n := len(grid)
	div := make([]float32, n)

	idx := func(z, y, x int) int { return (z*shape[1]+y)*shape[2] + x }
	at := func(z, y, x int) float32 {
		z = clampIdx(z, shape[0])
		y = clampIdx(y, shape[1])
		x = clampIdx(x, shape[2])
		return grid[idx(z, y, x)]
	}

	for z := 0; z < shape[0]; z++ {
		for y := 0; y < shape[1]; y++ {
			for x := 0; x < shape[2]; x++ {
				v := at(z, y, x)
				gz := at(z+1, y, x) - v
				gy := at(z, y+1, x) - v
				gx := at(z, y, x+1) - v
				mag := float32(math.Sqrt(float64(gz*gz+gy*gy+gx*gx)) + eps)
				div[idx(z, y, x)] = (gz + gy + gx) / mag
			}
		}
	}

	for i := range grid {
		v := grid[i] - float32(lambda)*div[i]
		if v < 0 {
			v = 0
		}
		grid[i] = v
	}
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
