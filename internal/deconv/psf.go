package deconv

import (
	"math"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// SynthesizePSF builds a Gaussian approximation of a diffraction-limited
// point spread function: lateral and axial sigmas are derived from the
// standard resolution formulas (Abbe lateral, axial depth-of-field), then
// a separable 3-D Gaussian is sampled directly into a unit-sum-normalized
// F32 tensor of shape, the same unit-sum normalization style the 2D kernel
// helper applies to its blur kernels.
func SynthesizePSF(na float64, wavelengthNM float64, voxelSizeNM [3]float64, shape [3]int) (*tensor.Tensor, error) {
	wavelengthUM := wavelengthNM / 1000
	lateralFWHM := 0.61 * wavelengthUM / na
	axialFWHM := 2 * wavelengthUM / (na * na)

	sigmaLateralUM := lateralFWHM / 2.3548 // FWHM = 2*sqrt(2*ln2)*sigma
	sigmaAxialUM := axialFWHM / 2.3548

	voxelUM := [3]float64{voxelSizeNM[0] / 1000, voxelSizeNM[1] / 1000, voxelSizeNM[2] / 1000}
	sigmaVoxels := [3]float64{
		sigmaAxialUM / voxelUM[0],
		sigmaLateralUM / voxelUM[1],
		sigmaLateralUM / voxelUM[2],
	}

	n := shape[0] * shape[1] * shape[2]
	data := make([]float32, n)
	center := [3]float64{float64(shape[0]-1) / 2, float64(shape[1]-1) / 2, float64(shape[2]-1) / 2}

	var sum float64
	for z := 0; z < shape[0]; z++ {
		dz := (float64(z) - center[0]) / sigmaVoxels[0]
		for y := 0; y < shape[1]; y++ {
			dy := (float64(y) - center[1]) / sigmaVoxels[1]
			for x := 0; x < shape[2]; x++ {
				dx := (float64(x) - center[2]) / sigmaVoxels[2]
				v := math.Exp(-0.5 * (dz*dz + dy*dy + dx*dx))
				idx := (z*shape[1]+y)*shape[2] + x
				data[idx] = float32(v)
				sum += v
			}
		}
	}

	if sum > 0 {
		inv := float32(1 / sum)
		for i := range data {
			data[i] *= inv
		}
	}

	return fromFloat32Grid(data, shape)
}
