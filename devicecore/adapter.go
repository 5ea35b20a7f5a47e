package devicecore

import "context"

// Adapter is the compute-only device abstraction implemented by both the
// CPU worker-pool backend and the gogpu/wgpu-backed GPU backend. The
// orchestrator and kernel library talk to a device exclusively through this
// interface; neither imports a backend package.
type Adapter interface {
	// Descriptor reports the backend tag, name, and memory budget this
	// adapter was initialized with.
	Descriptor() DeviceDescriptor

	// CreateBuffer allocates a device-resident buffer of size bytes with
	// the given usage flags.
	CreateBuffer(size uint64, usage BufferUsage) (BufferID, error)

	// DestroyBuffer releases a buffer previously created with CreateBuffer.
	DestroyBuffer(id BufferID)

	// WriteBuffer uploads data into a device buffer at the given byte
	// offset. data is copied; the caller retains ownership.
	WriteBuffer(ctx context.Context, id BufferID, offset uint64, data []byte) error

	// ReadBuffer reads size bytes back from a device buffer at the given
	// byte offset. On GPU backends this round-trips through a staging
	// buffer.
	ReadBuffer(ctx context.Context, id BufferID, offset, size uint64) ([]byte, error)

	// CreateShaderModule compiles source (WGSL) into a shader module. The
	// CPU adapter accepts a nil/empty source and instead dispatches to a
	// registered Go kernel function keyed by EntryPoint in the pipeline
	// descriptor; see internal/device for that registration mechanism.
	CreateShaderModule(label string, source []byte) (ShaderModuleID, error)

	// DestroyShaderModule releases a shader module.
	DestroyShaderModule(id ShaderModuleID)

	// CreateBindGroupLayout creates a bind group layout from its entries.
	CreateBindGroupLayout(desc BindGroupLayoutDesc) (BindGroupLayoutID, error)

	// DestroyBindGroupLayout releases a bind group layout.
	DestroyBindGroupLayout(id BindGroupLayoutID)

	// CreatePipelineLayout creates a pipeline layout from a set of bind
	// group layouts, in binding-group order.
	CreatePipelineLayout(label string, layouts []BindGroupLayoutID) (PipelineLayoutID, error)

	// DestroyPipelineLayout releases a pipeline layout.
	DestroyPipelineLayout(id PipelineLayoutID)

	// CreateComputePipeline creates a compute pipeline from a descriptor.
	CreateComputePipeline(desc ComputePipelineDesc) (ComputePipelineID, error)

	// DestroyComputePipeline releases a compute pipeline.
	DestroyComputePipeline(id ComputePipelineID)

	// CreateBindGroup creates a bind group from a descriptor.
	CreateBindGroup(desc BindGroupDesc) (BindGroupID, error)

	// DestroyBindGroup releases a bind group.
	DestroyBindGroup(id BindGroupID)

	// BeginComputePass opens a compute pass encoder. The caller must call
	// End on the returned encoder, then Submit on the adapter.
	BeginComputePass(label string) (ComputePassEncoder, error)

	// Submit submits all work recorded since the last Submit call and
	// blocks until the device queue accepts it (not until it completes;
	// call WaitIdle for that).
	Submit(ctx context.Context) error

	// WaitIdle blocks until all submitted work has completed.
	WaitIdle(ctx context.Context) error

	// Close releases all adapter-owned resources. The adapter must not be
	// used afterward.
	Close() error
}

// ComputePassEncoder records compute dispatches within a single pass.
type ComputePassEncoder interface {
	// SetPipeline binds the compute pipeline used by subsequent dispatches.
	SetPipeline(id ComputePipelineID)

	// SetBindGroup binds a bind group at the given index.
	SetBindGroup(index uint32, id BindGroupID)

	// Dispatch records a compute dispatch with the given workgroup counts.
	Dispatch(x, y, z uint32)

	// End closes the pass. No further calls are valid after End.
	End() error
}
