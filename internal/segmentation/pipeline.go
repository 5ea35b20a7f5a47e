package segmentation

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/srieg/zstack-analyzer/internal/kernel"
	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// Params configures Run. Zero-value fields fall back to the defaults
// documented on the corresponding field.
type Params struct {
	// Sigma is the Gaussian3D smoothing sigma applied before background
	// subtraction. Defaults to 1.0 when zero.
	Sigma float32
	// RollingBallRadius is the radius passed to RollingBallBackground.
	// Defaults to 25 when zero.
	RollingBallRadius float32
	// MinObjectVoxels discards connected components smaller than this
	// many voxels. Defaults to 64 when zero.
	MinObjectVoxels int
	// Connectivity is 6 or 26. Defaults to 26 when zero.
	Connectivity int
}

func (p Params) withDefaults() Params {
	if p.Sigma == 0 {
		p.Sigma = 1.0
	}
	if p.RollingBallRadius == 0 {
		p.RollingBallRadius = 25
	}
	if p.MinObjectVoxels == 0 {
		p.MinObjectVoxels = 64
	}
	if p.Connectivity == 0 {
		p.Connectivity = 26
	}
	return p
}

// Result is the outcome of Run: a dense U16 label volume and the number of
// surviving components after the minimum-size filter.
type Result struct {
	Labels     *tensor.Tensor
	NumObjects int
}

// Run executes the fixed staged pipeline: Gaussian3D smoothing,
// RollingBallBackground subtraction, OtsuThreshold binarization, then
// ConnectedComponents3D with small objects dropped, mirroring the
// teacher's HybridPipeline staged-dispatch shape (each stage consumes the
// previous stage's tensor output and hands off to the next).
func Run(ctx context.Context, vol *tensor.Tensor, params Params) (Result, error) {
	p := params.withDefaults()

	smoothed, err := kernel.Gaussian3D(ctx, vol, [3]float32{p.Sigma, p.Sigma, p.Sigma})
	if err != nil {
		return Result{}, err
	}
	defer smoothed.Release()

	flattened, err := kernel.RollingBallBackground(ctx, smoothed, p.RollingBallRadius)
	if err != nil {
		return Result{}, err
	}
	defer flattened.Release()

	threshold, err := kernel.OtsuThreshold(ctx, flattened, 256)
	if err != nil {
		return Result{}, err
	}

	binary, err := Binarize(flattened, threshold)
	if err != nil {
		return Result{}, err
	}
	defer binary.Release()

	labels, numObjects, err := kernel.ConnectedComponents3D(ctx, binary, p.Connectivity)
	if err != nil {
		return Result{}, err
	}

	labels, numObjects, err = FilterSmallObjects(ctx, labels, numObjects, p.MinObjectVoxels)
	if err != nil {
		return Result{}, err
	}

	return Result{Labels: labels, NumObjects: numObjects}, nil
}

// Binarize returns a U8 tensor with 1 where vol exceeds threshold and 0
// elsewhere.
func Binarize(vol *tensor.Tensor, threshold float32) (*tensor.Tensor, error) {
	shape := vol.Shape()
	data, err := vol.ToHost(context.Background())
	if err != nil {
		return nil, err
	}
	out := make([]byte, shape[0]*shape[1]*shape[2])
	decoded := decodeToFloat32(data, vol.DType(), len(out))
	for i, v := range decoded {
		if v > threshold {
			out[i] = 1
		}
	}
	return tensor.FromHost(out, shape, tensor.U8, nil)
}

// decodeToFloat32 is a small local decoder mirroring internal/kernel's
// internal grid decode, kept package-private since segmentation only needs
// it for the binarize threshold comparison.
func decodeToFloat32(data []byte, dtype tensor.DType, n int) []float32 {
	out := make([]float32, n)
	switch dtype {
	case tensor.U8:
		for i := 0; i < n; i++ {
			out[i] = float32(data[i])
		}
	case tensor.U16:
		for i := 0; i < n; i++ {
			out[i] = float32(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
		}
	case tensor.F32:
		for i := 0; i < n; i++ {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
		}
	}
	return out
}
