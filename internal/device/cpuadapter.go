package device

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/srieg/zstack-analyzer/devicecore"
	"github.com/srieg/zstack-analyzer/internal/parallel"
)

// KernelFunc is a CPU implementation of a compute kernel, dispatched in
// place of a compiled shader module. It receives the bound buffers in
// binding order and the workgroup counts passed to Dispatch.
type KernelFunc func(buffers [][]byte, x, y, z uint32)

// RegisterKernel associates a shader entry point name with a Go
// implementation run by the CPU adapter. Kernel packages call this from an
// init function so the CPU path stays in lockstep with the WGSL source
// compiled for the GPU path.
func RegisterKernel(entryPoint string, fn KernelFunc) {
	kernelRegistry.Store(entryPoint, fn)
}

var kernelRegistry sync.Map // string -> KernelFunc

// cpuAdapter implements devicecore.Adapter by running registered
// [KernelFunc]s on a worker pool instead of dispatching compiled shaders.
// It is always available and is the fallback when no GPU adapter is found.
type cpuAdapter struct {
	mu   sync.RWMutex
	pool *parallel.WorkerPool
	desc devicecore.DeviceDescriptor

	nextID atomic.Uint64

	buffers          map[devicecore.BufferID][]byte
	shaderEntryPoint map[devicecore.ShaderModuleID]string
	pipelines        map[devicecore.ComputePipelineID]devicecore.ComputePipelineDesc
	bindGroups       map[devicecore.BindGroupID]devicecore.BindGroupDesc
	bindGroupLayouts map[devicecore.BindGroupLayoutID]devicecore.BindGroupLayoutDesc
	pipelineLayouts  map[devicecore.PipelineLayoutID][]devicecore.BindGroupLayoutID
}

func newCPUAdapter(desc devicecore.DeviceDescriptor) *cpuAdapter {
	a := &cpuAdapter{
		pool:             parallel.NewWorkerPool(0),
		desc:             desc,
		buffers:          make(map[devicecore.BufferID][]byte),
		shaderEntryPoint: make(map[devicecore.ShaderModuleID]string),
		pipelines:        make(map[devicecore.ComputePipelineID]devicecore.ComputePipelineDesc),
		bindGroups:       make(map[devicecore.BindGroupID]devicecore.BindGroupDesc),
		bindGroupLayouts: make(map[devicecore.BindGroupLayoutID]devicecore.BindGroupLayoutDesc),
		pipelineLayouts:  make(map[devicecore.PipelineLayoutID][]devicecore.BindGroupLayoutID),
	}
	a.nextID.Store(1)
	return a
}

func (a *cpuAdapter) newID() uint64 {
	return a.nextID.Add(1) - 1
}

// CPUPool returns the worker pool backing adapter's kernel dispatch, for
// kernel implementations that split a single dispatch across goroutines
// themselves. Returns nil for non-CPU adapters.
func CPUPool(adapter devicecore.Adapter) *parallel.WorkerPool {
	if a, ok := adapter.(*cpuAdapter); ok {
		return a.pool
	}
	return nil
}

func (a *cpuAdapter) Descriptor() devicecore.DeviceDescriptor {
	return a.desc
}

func (a *cpuAdapter) CreateBuffer(size uint64, usage devicecore.BufferUsage) (devicecore.BufferID, error) {
	if size == 0 {
		return devicecore.InvalidID, fmt.Errorf("device: buffer size must be positive")
	}
	id := devicecore.BufferID(a.newID())
	a.mu.Lock()
	a.buffers[id] = make([]byte, size)
	a.mu.Unlock()
	return id, nil
}

func (a *cpuAdapter) DestroyBuffer(id devicecore.BufferID) {
	a.mu.Lock()
	delete(a.buffers, id)
	a.mu.Unlock()
}

func (a *cpuAdapter) WriteBuffer(ctx context.Context, id devicecore.BufferID, offset uint64, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	buf, ok := a.buffers[id]
	if !ok {
		return fmt.Errorf("device: buffer %d not found", id)
	}
	if offset+uint64(len(data)) > uint64(len(buf)) {
		return fmt.Errorf("device: write out of bounds: offset %d len %d buffer %d", offset, len(data), len(buf))
	}
	copy(buf[offset:], data)
	return nil
}

func (a *cpuAdapter) ReadBuffer(ctx context.Context, id devicecore.BufferID, offset, size uint64) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	buf, ok := a.buffers[id]
	if !ok {
		return nil, fmt.Errorf("device: buffer %d not found", id)
	}
	if offset+size > uint64(len(buf)) {
		return nil, fmt.Errorf("device: read out of bounds: offset %d size %d buffer %d", offset, size, len(buf))
	}
	out := make([]byte, size)
	copy(out, buf[offset:offset+size])
	return out, nil
}

// CreateShaderModule on the CPU adapter ignores source and only records
// label. The kernel registered via RegisterKernel is resolved later by the
// EntryPoint supplied to CreateComputePipeline.
func (a *cpuAdapter) CreateShaderModule(label string, source []byte) (devicecore.ShaderModuleID, error) {
	id := devicecore.ShaderModuleID(a.newID())
	a.mu.Lock()
	a.shaderEntryPoint[id] = label
	a.mu.Unlock()
	return id, nil
}

func (a *cpuAdapter) DestroyShaderModule(id devicecore.ShaderModuleID) {
	a.mu.Lock()
	delete(a.shaderEntryPoint, id)
	a.mu.Unlock()
}

func (a *cpuAdapter) CreateBindGroupLayout(desc devicecore.BindGroupLayoutDesc) (devicecore.BindGroupLayoutID, error) {
	id := devicecore.BindGroupLayoutID(a.newID())
	a.mu.Lock()
	a.bindGroupLayouts[id] = desc
	a.mu.Unlock()
	return id, nil
}

func (a *cpuAdapter) DestroyBindGroupLayout(id devicecore.BindGroupLayoutID) {
	a.mu.Lock()
	delete(a.bindGroupLayouts, id)
	a.mu.Unlock()
}

func (a *cpuAdapter) CreatePipelineLayout(label string, layouts []devicecore.BindGroupLayoutID) (devicecore.PipelineLayoutID, error) {
	id := devicecore.PipelineLayoutID(a.newID())
	a.mu.Lock()
	a.pipelineLayouts[id] = layouts
	a.mu.Unlock()
	return id, nil
}

func (a *cpuAdapter) DestroyPipelineLayout(id devicecore.PipelineLayoutID) {
	a.mu.Lock()
	delete(a.pipelineLayouts, id)
	a.mu.Unlock()
}

func (a *cpuAdapter) CreateComputePipeline(desc devicecore.ComputePipelineDesc) (devicecore.ComputePipelineID, error) {
	a.mu.RLock()
	_, ok := a.shaderEntryPoint[desc.ShaderModule]
	a.mu.RUnlock()
	if !ok {
		return devicecore.InvalidID, fmt.Errorf("device: shader module %d not found", desc.ShaderModule)
	}
	if _, ok := kernelRegistry.Load(desc.EntryPoint); !ok {
		return devicecore.InvalidID, fmt.Errorf("device: no CPU kernel registered for entry point %q", desc.EntryPoint)
	}

	id := devicecore.ComputePipelineID(a.newID())
	a.mu.Lock()
	a.pipelines[id] = desc
	a.mu.Unlock()
	return id, nil
}

func (a *cpuAdapter) DestroyComputePipeline(id devicecore.ComputePipelineID) {
	a.mu.Lock()
	delete(a.pipelines, id)
	a.mu.Unlock()
}

func (a *cpuAdapter) CreateBindGroup(desc devicecore.BindGroupDesc) (devicecore.BindGroupID, error) {
	id := devicecore.BindGroupID(a.newID())
	a.mu.Lock()
	a.bindGroups[id] = desc
	a.mu.Unlock()
	return id, nil
}

func (a *cpuAdapter) DestroyBindGroup(id devicecore.BindGroupID) {
	a.mu.Lock()
	delete(a.bindGroups, id)
	a.mu.Unlock()
}

func (a *cpuAdapter) BeginComputePass(label string) (devicecore.ComputePassEncoder, error) {
	return &cpuComputePassEncoder{adapter: a}, nil
}

// Submit is a no-op: the CPU adapter dispatches kernels synchronously as
// they are recorded, so there is nothing queued to flush.
func (a *cpuAdapter) Submit(ctx context.Context) error { return nil }

// WaitIdle is a no-op for the same reason Submit is.
func (a *cpuAdapter) WaitIdle(ctx context.Context) error { return nil }

func (a *cpuAdapter) Close() error {
	a.pool.Close()
	return nil
}

// cpuComputePassEncoder dispatches kernels directly against the adapter's
// worker pool rather than recording commands for later submission.
type cpuComputePassEncoder struct {
	adapter  *cpuAdapter
	pipeline devicecore.ComputePipelineID
	bindGrp  devicecore.BindGroupID
}

func (e *cpuComputePassEncoder) SetPipeline(id devicecore.ComputePipelineID) {
	e.pipeline = id
}

func (e *cpuComputePassEncoder) SetBindGroup(index uint32, id devicecore.BindGroupID) {
	e.bindGrp = id
}

// Dispatch runs the bound kernel function synchronously. The kernel itself
// is responsible for splitting its workgroup range across the adapter's
// worker pool if it wants intra-dispatch parallelism (CPUPool exposes that
// pool).
func (e *cpuComputePassEncoder) Dispatch(x, y, z uint32) {
	a := e.adapter
	a.mu.RLock()
	desc, ok := a.pipelines[e.pipeline]
	bg := a.bindGroups[e.bindGrp]
	a.mu.RUnlock()
	if !ok {
		return
	}

	fnVal, ok := kernelRegistry.Load(desc.EntryPoint)
	if !ok {
		return
	}
	fn := fnVal.(KernelFunc)

	buffers := make([][]byte, len(bg.Entries))
	a.mu.RLock()
	for i, entry := range bg.Entries {
		buffers[i] = a.buffers[entry.Buffer]
	}
	a.mu.RUnlock()

	fn(buffers, x, y, z)
}

func (e *cpuComputePassEncoder) End() error { return nil }
