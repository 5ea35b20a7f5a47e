package analysisops

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// toFloat64Grid decodes t's voxels into a flat float64 slice in (Z, Y, X)
// row-major order, for statistics code that wants double precision
// throughout rather than the float32 accumulation internal/kernel uses for
// its separable passes.
func toFloat64Grid(ctx context.Context, t *tensor.Tensor) ([]float64, [3]int, error) {
	shape := t.Shape()
	data, err := t.ToHost(ctx)
	if err != nil {
		return nil, shape, err
	}
	n := shape[0] * shape[1] * shape[2]
	out := make([]float64, n)
	switch t.DType() {
	case tensor.U8:
		for i := 0; i < n; i++ {
			out[i] = float64(data[i])
		}
	case tensor.U16:
		for i := 0; i < n; i++ {
			out[i] = float64(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
		}
	case tensor.F32:
		for i := 0; i < n; i++ {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4])))
		}
	}
	return out, shape, nil
}

// toBoolGrid decodes a mask tensor into a flat []bool, true where the
// voxel is nonzero.
func toBoolGrid(ctx context.Context, t *tensor.Tensor) ([]bool, error) {
	grid, _, err := toFloat64Grid(ctx, t)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(grid))
	for i, v := range grid {
		out[i] = v != 0
	}
	return out, nil
}
