package kernel

import "errors"

// ErrUnsupportedDType is returned when a kernel is asked to operate on a
// dtype it has no path for (kernels accumulate in F32 and expect U8/U16/F32
// inputs).
var ErrUnsupportedDType = errors.New("kernel: unsupported dtype")

// ErrEmptyVolume is returned by kernels that cannot produce a meaningful
// result over a zero-extent tensor.
var ErrEmptyVolume = errors.New("kernel: empty volume")
