package devicecore

// Resource IDs
//
// These opaque IDs represent device resources. Each adapter implementation
// maintains a mapping between IDs and actual backend resources. IDs are
// uint64 to accommodate either backend's native handle width.

// BufferID is an opaque handle to a device-resident storage buffer backing
// a tensor's voxel data.
type BufferID uint64

// ShaderModuleID is an opaque handle to a compiled compute kernel module.
type ShaderModuleID uint64

// ComputePipelineID is an opaque handle to a compute pipeline.
type ComputePipelineID uint64

// BindGroupLayoutID is an opaque handle to a bind group layout.
type BindGroupLayoutID uint64

// BindGroupID is an opaque handle to a bind group.
type BindGroupID uint64

// PipelineLayoutID is an opaque handle to a pipeline layout.
type PipelineLayoutID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	BufferUsageMapRead BufferUsage = 1 << iota
	BufferUsageMapWrite
	BufferUsageCopySrc
	BufferUsageCopyDst
	BufferUsageUniform
	BufferUsageStorage
)

// BindingType specifies the type of a shader binding.
type BindingType uint32

// Binding types.
const (
	BindingTypeUniformBuffer BindingType = iota + 1
	BindingTypeStorageBuffer
	BindingTypeReadOnlyStorageBuffer
)

// ComputePipelineDesc describes a compute pipeline.
type ComputePipelineDesc struct {
	Label        string
	Layout       PipelineLayoutID
	ShaderModule ShaderModuleID
	EntryPoint   string
}

// BindGroupLayoutDesc describes a bind group layout.
type BindGroupLayoutDesc struct {
	Label   string
	Entries []BindGroupLayoutEntry
}

// BindGroupLayoutEntry describes a single binding in a bind group layout.
type BindGroupLayoutEntry struct {
	Binding        uint32
	Type           BindingType
	MinBindingSize uint64
}

// BindGroupEntry describes a single binding in a bind group.
type BindGroupEntry struct {
	Binding uint32
	Buffer  BufferID
	Offset  uint64
	Size    uint64
}

// BindGroupDesc describes a bind group.
type BindGroupDesc struct {
	Label   string
	Layout  BindGroupLayoutID
	Entries []BindGroupEntry
}

// Backend identifies the accelerator family behind a [DeviceDescriptor].
type Backend uint8

// Backend tags, matching the analysis pipeline's device contract.
const (
	BackendCPU Backend = iota
	BackendMetal
	BackendCUDA
)

// String renders the backend tag for logging.
func (b Backend) String() string {
	switch b {
	case BackendMetal:
		return "METAL"
	case BackendCUDA:
		return "CUDA"
	default:
		return "CPU"
	}
}

// DeviceDescriptor reports the selected accelerator, process-wide and
// read-only after initialization.
type DeviceDescriptor struct {
	// Backend is the accelerator family selected during detection.
	Backend Backend

	// Name is a human-readable device identifier (e.g. adapter name, or
	// "cpu" for the software fallback).
	Name string

	// TotalMemoryBytes is the estimated total memory available to the
	// backend: unified system RAM for CPU/integrated GPUs, or the
	// discrete adapter's reported budget.
	TotalMemoryBytes uint64

	// Safety is the fraction of TotalMemoryBytes the planner is allowed to
	// use, in (0,1].
	Safety float64

	// Unified indicates the backend shares memory with the host (no
	// explicit host<->device transfer required for correctness, though the
	// Tensor façade still copies to keep ownership semantics simple).
	Unified bool
}
