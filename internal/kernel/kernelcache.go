package kernel

import (
	"github.com/srieg/zstack-analyzer/devicecore"
	"github.com/srieg/zstack-analyzer/internal/cache"
)

// gaussianCache holds write-once 1-D Gaussian kernels keyed by quantized
// sigma, the same quantize-to-avoid-float-key approach as the teacher's
// filter.kernelCache, generalized onto the shared generic internal/cache.Cache
// so the same structure also backs the compiled-shader cache below and the
// FFT-plan cache in fft.go.
var gaussianCache = cache.New[int64, []float32](128)

// sigmaKey quantizes sigma to one part in a thousand so near-identical
// sigmas sharing floating point noise hit the same cache entry.
func sigmaKey(sigma float32) int64 {
	return int64(sigma * 1000)
}

// cachedGaussianKernel1D returns the 1-D Gaussian kernel for sigma, computing
// and caching it on first use.
func cachedGaussianKernel1D(sigma float32) []float32 {
	return gaussianCache.GetOrCreate(sigmaKey(sigma), func() []float32 {
		return gaussianKernel1D(sigma)
	})
}

// shaderCache is a cache for compiled GPU shader modules keyed by their WGSL
// source. No dispatch path consults it: the Otsu histogram dispatch compiles
// its shader module on every call and destroys it afterwards.
var shaderCache = cache.New[string, devicecore.ShaderModuleID](64)
