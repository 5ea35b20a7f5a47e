package errorsx

import (
	"fmt"

	"github.com/srieg/zstack-analyzer/internal/loader"
	"github.com/srieg/zstack-analyzer/internal/planner"
	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// Aliases for error types already defined next to the code that raises
// them. Callers that only import errorsx still get the concrete type for
// errors.As.
type (
	UnsupportedFormatError = loader.UnsupportedFormatError
	OutOfRangeError        = loader.OutOfRangeError
	MalformedFileError     = loader.MalformedFileError
	MissingDependencyError = loader.MissingDependencyError
	ShapeError             = tensor.ShapeError
	AllocError             = tensor.AllocError
	InfeasibleBudgetError  = planner.InfeasibleBudgetError
)

// OutOfMemoryError is returned when a tile's AllocError persists even
// after the orchestrator's single retry, which replans the tiles with the
// memory budget halved.
type OutOfMemoryError struct {
	Stage string
	Err   error
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("errorsx: out of memory in stage %q: %v", e.Stage, e.Err)
}

func (e *OutOfMemoryError) Unwrap() error { return e.Err }

// InvalidParameterError reports a pipeline parameter that failed its
// per-algorithm schema check, including an unrecognized parameter key.
type InvalidParameterError struct {
	Name   string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("errorsx: invalid parameter %q: %s", e.Name, e.Reason)
}

// CancelledError is returned when a request's cancel token is observed at
// a stage or tile boundary.
type CancelledError struct {
	Stage string
}

func (e *CancelledError) Error() string {
	if e.Stage == "" {
		return "errorsx: cancelled"
	}
	return fmt.Sprintf("errorsx: cancelled during stage %q", e.Stage)
}

// DeviceError reports a kernel compilation or dispatch failure, tagged
// with the backend that raised it.
type DeviceError struct {
	Backend string
	Detail  string
	Err     error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("errorsx: device error on backend %s: %s", e.Backend, e.Detail)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// InternalError wraps a logic bug (shape/dtype mismatch reaching a point
// it should have been caught earlier, an invariant violation) that is
// never the caller's fault.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("errorsx: internal: %v", e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }
