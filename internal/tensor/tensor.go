package tensor

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/srieg/zstack-analyzer/devicecore"
)

// Tensor is a rank-3 (Z, Y, X) voxel buffer, either host-resident (backed
// by a pooled []byte) or device-resident (backed by a devicecore.BufferID
// on some adapter). Shape, Stride, and DType are plain fields: inspecting
// them never touches the device.
type Tensor struct {
	shape  [3]int
	stride [3]int // elements, row-major: stride[2]=1, stride[1]=shape[2], stride[0]=shape[1]*shape[2]
	dtype  DType

	host []byte
	pool *Pool

	adapter devicecore.Adapter
	bufID   devicecore.BufferID
}

func rowMajorStride(shape [3]int) [3]int {
	return [3]int{shape[1] * shape[2], shape[2], 1}
}

func numElements(shape [3]int) int {
	return shape[0] * shape[1] * shape[2]
}

func validShape(shape [3]int) bool {
	return shape[0] > 0 && shape[1] > 0 && shape[2] > 0
}

// FromHost copies data into a new host-resident tensor of shape and dtype,
// drawing its backing buffer from pool (or the package default pool if pool
// is nil). data must hold exactly numElements(shape)*dtype.Size() bytes.
func FromHost(data []byte, shape [3]int, dtype DType, pool *Pool) (*Tensor, error) {
	if !validShape(shape) {
		return nil, ErrInvalidShape
	}
	if pool == nil {
		pool = defaultPool
	}
	want := numElements(shape) * dtype.Size()
	if len(data) != want {
		return nil, fmt.Errorf("tensor: FromHost: expected %d bytes, got %d", want, len(data))
	}
	buf := pool.Get(want)
	copy(buf, data)
	return &Tensor{
		shape:  shape,
		stride: rowMajorStride(shape),
		dtype:  dtype,
		host:   buf,
		pool:   pool,
	}, nil
}

// ToDevice allocates a device buffer on adapter, uploads the tensor's
// current host bytes, and returns the resulting device-resident tensor.
// t itself is left unchanged.
func (t *Tensor) ToDevice(ctx context.Context, adapter devicecore.Adapter, usage devicecore.BufferUsage) (*Tensor, error) {
	data, err := t.ToHost(ctx)
	if err != nil {
		return nil, err
	}
	id, err := adapter.CreateBuffer(uint64(len(data)), usage)
	if err != nil {
		return nil, &AllocError{Shape: t.shape, DType: t.dtype, Err: err}
	}
	if err := adapter.WriteBuffer(ctx, id, 0, data); err != nil {
		adapter.DestroyBuffer(id)
		return nil, fmt.Errorf("tensor: ToDevice: write: %w", err)
	}
	return &Tensor{
		shape:   t.shape,
		stride:  t.stride,
		dtype:   t.dtype,
		adapter: adapter,
		bufID:   id,
	}, nil
}

// ToHost returns the tensor's bytes, reading them back from the device if
// t is device-resident. The returned slice is a copy; mutating it does not
// affect t.
func (t *Tensor) ToHost(ctx context.Context) ([]byte, error) {
	if t.host != nil {
		out := make([]byte, len(t.host))
		copy(out, t.host)
		return out, nil
	}
	if t.adapter == nil {
		return nil, fmt.Errorf("tensor: ToHost: tensor has no backing storage")
	}
	size := uint64(numElements(t.shape) * t.dtype.Size())
	return t.adapter.ReadBuffer(ctx, t.bufID, 0, size)
}

// Shape returns the tensor's (Z, Y, X) extents.
func (t *Tensor) Shape() [3]int { return t.shape }

// Stride returns the tensor's element strides for (Z, Y, X).
func (t *Tensor) Stride() [3]int { return t.stride }

// DType returns the tensor's element type.
func (t *Tensor) DType() DType { return t.dtype }

// IsDeviceResident reports whether the tensor's storage lives on an
// adapter rather than in host memory.
func (t *Tensor) IsDeviceResident() bool { return t.host == nil }

// BufferID returns the device buffer backing a device-resident tensor, and
// devicecore.InvalidID for a host-resident one.
func (t *Tensor) BufferID() devicecore.BufferID { return t.bufID }

// ByteSize returns the total size of the tensor's elements in bytes.
func (t *Tensor) ByteSize() int {
	return numElements(t.shape) * t.dtype.Size()
}

// View returns a tensor sharing the same backing host buffer, restricted
// to the sub-box [origin, origin+shape). Only defined for host-resident,
// contiguous tensors. The view's stride matches the parent's, so rows are
// not necessarily contiguous within the view itself.
func (t *Tensor) View(origin, shape [3]int) (*Tensor, error) {
	if t.host == nil {
		return nil, fmt.Errorf("tensor: View: not supported on device-resident tensors")
	}
	if !validShape(shape) {
		return nil, ErrInvalidShape
	}
	for i := range 3 {
		if origin[i] < 0 || origin[i]+shape[i] > t.shape[i] {
			return nil, &ShapeError{Op: "View", Want: t.shape, Got: shape}
		}
	}
	elemSize := t.dtype.Size()
	startOffset := (origin[0]*t.stride[0] + origin[1]*t.stride[1] + origin[2]*t.stride[2]) * elemSize
	endOffset := ((origin[0]+shape[0]-1)*t.stride[0] +
		(origin[1]+shape[1]-1)*t.stride[1] +
		(origin[2]+shape[2]-1)*t.stride[2] + 1) * elemSize

	return &Tensor{
		shape:  shape,
		stride: t.stride,
		dtype:  t.dtype,
		host:   t.host[startOffset:endOffset],
	}, nil
}

// Reshape returns a tensor over the same host bytes with a new shape. The
// element count must match and the tensor must be contiguous (not a
// sub-View with non-matching strides).
func (t *Tensor) Reshape(shape [3]int) (*Tensor, error) {
	if t.host == nil {
		return nil, fmt.Errorf("tensor: Reshape: not supported on device-resident tensors")
	}
	if !validShape(shape) {
		return nil, ErrInvalidShape
	}
	if numElements(shape) != numElements(t.shape) {
		return nil, &ShapeError{Op: "Reshape", Want: t.shape, Got: shape}
	}
	if t.stride != rowMajorStride(t.shape) {
		return nil, fmt.Errorf("tensor: Reshape: tensor is not contiguous")
	}
	return &Tensor{
		shape:  shape,
		stride: rowMajorStride(shape),
		dtype:  t.dtype,
		host:   t.host,
		pool:   t.pool,
	}, nil
}

// AsType returns a new host-resident, contiguous tensor with every element
// converted to dtype, rounding to nearest for narrowing float-to-integer
// conversions and saturating to the target's range.
func (t *Tensor) AsType(dtype DType) (*Tensor, error) {
	if t.host == nil {
		return nil, fmt.Errorf("tensor: AsType: not supported on device-resident tensors")
	}
	out := make([]byte, numElements(t.shape)*dtype.Size())
	i := 0
	t.walk(func(v float64) {
		writeElement(out, i, dtype, v)
		i++
	})
	return &Tensor{
		shape:  t.shape,
		stride: rowMajorStride(t.shape),
		dtype:  dtype,
		host:   out,
		pool:   t.pool,
	}, nil
}

// Fill sets every element of a host-resident tensor to value, converted to
// the tensor's dtype.
func (t *Tensor) Fill(value float64) error {
	if t.host == nil {
		return fmt.Errorf("tensor: Fill: not supported on device-resident tensors")
	}
	for z := 0; z < t.shape[0]; z++ {
		for y := 0; y < t.shape[1]; y++ {
			for x := 0; x < t.shape[2]; x++ {
				writeElement(t.host, t.elementOffset(z, y, x), t.dtype, value)
			}
		}
	}
	return nil
}

// CopyFrom writes src's elements into t's own region element-by-element,
// honoring each tensor's own stride. This is how a tile's processed core
// region gets stitched back into a full-volume output tensor via a View:
// the view's stride still addresses the parent's larger buffer, so a flat
// byte copy would be wrong whenever the region is narrower than a full row.
func (t *Tensor) CopyFrom(src *Tensor) error {
	if t.host == nil || src.host == nil {
		return fmt.Errorf("tensor: CopyFrom: only supported between host-resident tensors")
	}
	if t.shape != src.shape {
		return &ShapeError{Op: "CopyFrom", Want: t.shape, Got: src.shape}
	}
	if t.dtype != src.dtype {
		return fmt.Errorf("tensor: CopyFrom: dtype mismatch %s vs %s", t.dtype, src.dtype)
	}
	for z := 0; z < t.shape[0]; z++ {
		for y := 0; y < t.shape[1]; y++ {
			for x := 0; x < t.shape[2]; x++ {
				v := src.readElement(src.elementOffset(z, y, x))
				writeElement(t.host, t.elementOffset(z, y, x), t.dtype, v)
			}
		}
	}
	return nil
}

// ToScalar returns the single element of a rank-0 tensor (shape
// [1,1,1]). It returns ErrRankMismatch for any other shape.
func (t *Tensor) ToScalar() (float64, error) {
	if t.shape != [3]int{1, 1, 1} {
		return 0, ErrRankMismatch
	}
	if t.host == nil {
		return 0, fmt.Errorf("tensor: ToScalar: not supported on device-resident tensors")
	}
	return t.readElement(t.elementOffset(0, 0, 0)), nil
}

// Release returns the tensor's host buffer to its originating pool. The
// tensor must not be used after Release. A no-op for device-resident
// tensors or tensors not drawn from a pool.
func (t *Tensor) Release() {
	if t.host != nil && t.pool != nil {
		t.pool.Put(t.host)
		t.host = nil
	}
}

// elementOffset returns the element index of voxel (z, y, x) within t's
// own host slice, honoring t's stride so views over a larger parent buffer
// address the right bytes.
func (t *Tensor) elementOffset(z, y, x int) int {
	return z*t.stride[0] + y*t.stride[1] + x*t.stride[2]
}

// readElement reads the element at element-index i as a float64.
func (t *Tensor) readElement(i int) float64 {
	off := i * t.dtype.Size()
	switch t.dtype {
	case U8:
		return float64(t.host[off])
	case U16:
		return float64(binary.LittleEndian.Uint16(t.host[off : off+2]))
	case F32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(t.host[off : off+4])))
	default:
		return 0
	}
}

// walk visits every element of t in (Z, Y, X) row-major order, honoring
// stride, and calls fn with each value.
func (t *Tensor) walk(fn func(v float64)) {
	for z := 0; z < t.shape[0]; z++ {
		for y := 0; y < t.shape[1]; y++ {
			for x := 0; x < t.shape[2]; x++ {
				fn(t.readElement(t.elementOffset(z, y, x)))
			}
		}
	}
}

func writeElement(buf []byte, i int, dtype DType, v float64) {
	off := i * dtype.Size()
	switch dtype {
	case U8:
		buf[off] = saturateU8(v)
	case U16:
		binary.LittleEndian.PutUint16(buf[off:off+2], saturateU16(v))
	case F32:
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(float32(v)))
	}
}

func saturateU8(v float64) byte {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return byte(r)
}

func saturateU16(v float64) uint16 {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 65535 {
		return 65535
	}
	return uint16(r)
}
