package kernel

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// toFloat32Grid reads t's voxels into a flat, contiguous row-major (Z, Y,
// X) float32 slice so kernels can accumulate without per-dtype branching
// in their inner loop.
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
	default:
		return nil, shape, ErrUnsupportedDType
	}
	return out, shape, nil
}

// fromFloat32Grid encodes grid (row-major Z,Y,X) into a new host-resident
// tensor of dtype, rounding to nearest and saturating for integer dtypes.
func fromFloat32Grid(grid []float32, shape [3]int, dtype tensor.DType) (*tensor.Tensor, error) {
	n := shape[0] * shape[1] * shape[2]
	data := make([]byte, n*dtype.Size())
	switch dtype {
	case tensor.U8:
		for i := 0; i < n; i++ {
			data[i] = saturateU8(grid[i])
		}
	case tensor.U16:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint16(data[i*2:i*2+2], saturateU16(grid[i]))
		}
	case tensor.F32:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(data[i*4:i*4+4], math.Float32bits(grid[i]))
		}
	default:
		return nil, ErrUnsupportedDType
	}
	return tensor.FromHost(data, shape, dtype, nil)
}

func saturateU8(v float32) byte {
	r := float32(math.Round(float64(v)))
	switch {
	case r < 0:
		return 0
	case r > 255:
		return 255
	default:
		return byte(r)
	}
}

func saturateU16(v float32) uint16 {
	r := float32(math.Round(float64(v)))
	switch {
	case r < 0:
		return 0
	case r > 65535:
		return 65535
	default:
		return uint16(r)
	}
}

// idx3 returns the flat row-major index of voxel (z, y, x) in a grid of
// shape.
func idx3(shape [3]int, z, y, x int) int {
	return (z*shape[1]+y)*shape[2] + x
}

// reflect101 maps an out-of-range index to its in-range reflection without
// repeating the edge sample (OpenCV's BORDER_REFLECT_101), the boundary
// policy every separable pass in this package uses.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}
