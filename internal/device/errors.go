package device

import "errors"

var (
	// ErrNoGPU is returned when no GPU adapter is available and the caller
	// has forbidden falling back to the CPU adapter.
	ErrNoGPU = errors.New("device: no GPU adapter available")

	// ErrDeviceLost is returned when the GPU device is lost mid-run.
	ErrDeviceLost = errors.New("device: GPU device lost")

	// ErrUnknownBackend names an unrecognized backend. Detect does not
	// return it: an unrecognized DEFAULT_DEVICE value is treated as "auto".
	ErrUnknownBackend = errors.New("device: unknown backend")
)
