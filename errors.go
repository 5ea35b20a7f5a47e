package zstack

import "github.com/srieg/zstack-analyzer/internal/errorsx"

// Error taxonomy re-exported from internal/errorsx so callers outside this
// module never need to import an internal package to use errors.As against
// a Run or Load failure.
type (
	UnsupportedFormatError = errorsx.UnsupportedFormatError
	OutOfRangeError        = errorsx.OutOfRangeError
	MalformedFileError     = errorsx.MalformedFileError
	MissingDependencyError = errorsx.MissingDependencyError
	ShapeError             = errorsx.ShapeError
	AllocError             = errorsx.AllocError
	InfeasibleBudgetError  = errorsx.InfeasibleBudgetError
	OutOfMemoryError       = errorsx.OutOfMemoryError
	InvalidParameterError  = errorsx.InvalidParameterError
	CancelledError         = errorsx.CancelledError
	DeviceError            = errorsx.DeviceError
	InternalError          = errorsx.InternalError
)
