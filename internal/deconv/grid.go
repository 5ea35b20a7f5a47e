package deconv

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// toFloat32Grid and fromFloat32Grid mirror internal/kernel's decode
// helpers; each package that walks tensor bytes directly keeps its own
// small copy rather than exporting the detail across package boundaries.
func toFloat32Grid(ctx context.Context, t *tensor.Tensor) ([]float32, [3]int, error) {
	shape := t.Shape()
	data, err := t.ToHost(ctx)
	if err != nil {
		return nil, shape, err
	}
	n := shape[0] * shape[1] * shape[2]
	out := make([]float32, n)
	switch t.DType() {
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
	return out, shape, nil
}

func putFloat32Grid(dst []byte, grid []float32) {
	for i, v := range grid {
		binary.LittleEndian.PutUint32(dst[i*4:i*4+4], math.Float32bits(v))
	}
}

// fromFloat32Grid packs grid into an F32 tensor of shape.
func fromFloat32Grid(grid []float32, shape [3]int) (*tensor.Tensor, error) {
	bytes := make([]byte, len(grid)*4)
	putFloat32Grid(bytes, grid)
	return tensor.FromHost(bytes, shape, tensor.F32, nil)
}
