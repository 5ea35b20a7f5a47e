package deconv

import (
	"context"

	"github.com/srieg/zstack-analyzer/internal/kernel"
	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// Wiener deconvolves image against psf in a single FFT-domain pass:
// G(f) = conj(H(f)) / (|H(f)|^2 + noisePower), output = IFFT(G(f) * F(f)).
// psf is normalized to unit sum and fftshift-embedded into image's shape
// the same way RichardsonLucy prepares it.
func Wiener(ctx context.Context, image, psf *tensor.Tensor, noisePower float64) (*tensor.Tensor, error) {
	imageShape := image.Shape()

	psfShape := psf.Shape()
	psfGrid, _, err := toFloat32Grid(ctx, psf)
	if err != nil {
		return nil, err
	}
	normalizeSum(psfGrid)
	embeddedPSF := embedKernel(psfGrid, psfShape, imageShape)
	psfTensor, err := fromFloat32Grid(embeddedPSF, imageShape)
	if err != nil {
		return nil, err
	}
	psfFreq, padded, err := kernel.FFT3(ctx, psfTensor)
	psfTensor.Release()
	if err != nil {
		return nil, err
	}

	imageFreq, _, err := kernel.FFT3(ctx, image)
	if err != nil {
		return nil, err
	}

	outFreq := make([]complex128, len(imageFreq))
	k := complex(noisePower, 0)
	for i, h := range psfFreq {
		denom := h*complex(real(h), -imag(h)) + k
		if denom == 0 {
			continue
		}
		g := complex(real(h), -imag(h)) / denom
		outFreq[i] = g * imageFreq[i]
	}

	return kernel.IFFT3(outFreq, padded, imageShape)
}
