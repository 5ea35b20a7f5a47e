package kernel

import (
	"context"
	"encoding/binary"

	"github.com/srieg/zstack-analyzer/devicecore"
	"github.com/srieg/zstack-analyzer/internal/device"
	"github.com/srieg/zstack-analyzer/internal/errorsx"
	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// otsuHistogramEntryPoint names the histogram compute kernel, shared by
// the WGSL source compiled for a GPU adapter and the Go kernel registered
// for the CPU adapter, so CreateComputePipeline resolves to the same
// dispatch on either backend.
const otsuHistogramEntryPoint = "otsu_histogram"

// otsuHistogramWGSL accumulates one atomic increment per voxel into its
// quantized bin, the coalesced-atomics-per-workgroup histogram shape
// SPEC_FULL.md calls for. bins_in holds each voxel's bin index, already
// quantized on the host (the quantization scan needs the volume's
// min/max, a reduction no cheaper on device than on host); the kernel
// itself is only the scatter-add.
const otsuHistogramWGSL = `
@group(0) @binding(0) var<storage, read> bins_in: array<u32>;
@group(0) @binding(1) var<storage, read_write> histogram: array<atomic<u32>>;

@compute @workgroup_size(256)
fn otsu_histogram(@builtin(global_invocation_id) gid: vec3<u32>) {
	let i = gid.x;
	if (i >= arrayLength(&bins_in)) {
		return;
	}
	atomicAdd(&histogram[bins_in[i]], 1u);
}
`

func init() {
	device.RegisterKernel(otsuHistogramEntryPoint, otsuHistogramCPUKernel)
}

// otsuHistogramCPUKernel is the CPU-adapter counterpart of
// otsuHistogramWGSL: buffers[0] is bins_in, buffers[1] is histogram, both
// little-endian uint32 arrays.
func otsuHistogramCPUKernel(buffers [][]byte, x, y, z uint32) {
	in, out := buffers[0], buffers[1]
	for i := 0; i+4 <= len(in); i += 4 {
		bin := binary.LittleEndian.Uint32(in[i : i+4])
		o := int(bin) * 4
		cur := binary.LittleEndian.Uint32(out[o : o+4])
		binary.LittleEndian.PutUint32(out[o:o+4], cur+1)
	}
}

// OtsuThresholdGPU computes the same inter-class-variance-maximizing
// threshold as OtsuThreshold, but builds the histogram by dispatching
// otsuHistogramWGSL through adapter instead of reducing it on the host
// worker pool. The host still does the single min/max scan and the
// final bins-1 threshold scan (both already O(bins) or O(n) single
// passes not worth a dispatch round trip); only the O(n) histogram
// accumulation — the part a discrete accelerator's memory bandwidth
// actually helps with — crosses the adapter boundary.
func OtsuThresholdGPU(ctx context.Context, adapter devicecore.Adapter, t *tensor.Tensor, bins int) (float32, error) {
	grid, _, err := toFloat32Grid(ctx, t)
	if err != nil {
		return 0, err
	}
	if len(grid) == 0 {
		return 0, ErrEmptyVolume
	}
	if bins < 2 {
		bins = 256
	}

	lo, hi := grid[0], grid[0]
	for _, v := range grid[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return lo, nil
	}
	scale := float32(bins-1) / (hi - lo)

	binIndices := make([]byte, len(grid)*4)
	for i, v := range grid {
		b := int32((v - lo) * scale)
		if b < 0 {
			b = 0
		} else if b >= int32(bins) {
			b = int32(bins) - 1
		}
		binary.LittleEndian.PutUint32(binIndices[i*4:i*4+4], uint32(b))
	}

	hist, err := dispatchHistogram(ctx, adapter, binIndices, bins)
	if err != nil {
		return 0, err
	}

	fhist := make([]float64, bins)
	for i, v := range hist {
		fhist[i] = float64(v)
	}
	return lo + otsuBinToValue(fhist, bins)/scale, nil
}

// dispatchHistogram runs otsuHistogramEntryPoint over binIndices through
// adapter's full resource lifecycle (buffers, shader module, bind group
// layout, pipeline layout, pipeline, bind group, one compute pass), then
// reads the resulting bins*4-byte histogram back. Any failure in that
// chain surfaces as an *errorsx.DeviceError tagged with the adapter's
// backend. The input upload goes through tensor.Tensor.ToDevice rather
// than a bare CreateBuffer/WriteBuffer pair, so bins_in is itself an
// ordinary device-resident Tensor like any kernel operates on.
func dispatchHistogram(ctx context.Context, adapter devicecore.Adapter, binIndices []byte, bins int) ([]uint32, error) {
	backend := adapter.Descriptor().Backend.String()
	deviceErr := func(detail string, err error) error {
		return &errorsx.DeviceError{Backend: backend, Detail: detail, Err: err}
	}

	hostIndices, err := tensor.FromHost(binIndices, [3]int{1, 1, len(binIndices) / 4}, tensor.F32, nil)
	if err != nil {
		return nil, deviceErr("stage histogram input tensor", err)
	}
	defer hostIndices.Release()
	deviceIndices, err := hostIndices.ToDevice(ctx, adapter, devicecore.BufferUsageStorage|devicecore.BufferUsageCopyDst)
	if err != nil {
		return nil, deviceErr("upload histogram input", err)
	}
	inID := deviceIndices.BufferID()
	defer adapter.DestroyBuffer(inID)

	histBytes := make([]byte, bins*4)
	outID, err := adapter.CreateBuffer(uint64(len(histBytes)),
		devicecore.BufferUsageStorage|devicecore.BufferUsageCopyDst|devicecore.BufferUsageCopySrc|devicecore.BufferUsageMapRead)
	if err != nil {
		return nil, deviceErr("create histogram output buffer", err)
	}
	defer adapter.DestroyBuffer(outID)
	if err := adapter.WriteBuffer(ctx, outID, 0, histBytes); err != nil {
		return nil, deviceErr("zero histogram output", err)
	}

	moduleID, err := adapter.CreateShaderModule(otsuHistogramEntryPoint, []byte(otsuHistogramWGSL))
	if err != nil {
		return nil, deviceErr("compile histogram shader", err)
	}
	defer adapter.DestroyShaderModule(moduleID)

	layoutID, err := adapter.CreateBindGroupLayout(devicecore.BindGroupLayoutDesc{
		Label: "otsu-histogram-layout",
		Entries: []devicecore.BindGroupLayoutEntry{
			{Binding: 0, Type: devicecore.BindingTypeReadOnlyStorageBuffer},
			{Binding: 1, Type: devicecore.BindingTypeStorageBuffer},
		},
	})
	if err != nil {
		return nil, deviceErr("create histogram bind group layout", err)
	}
	defer adapter.DestroyBindGroupLayout(layoutID)

	pipelineLayoutID, err := adapter.CreatePipelineLayout("otsu-histogram-pipeline-layout", []devicecore.BindGroupLayoutID{layoutID})
	if err != nil {
		return nil, deviceErr("create histogram pipeline layout", err)
	}
	defer adapter.DestroyPipelineLayout(pipelineLayoutID)

	pipelineID, err := adapter.CreateComputePipeline(devicecore.ComputePipelineDesc{
		Label:        "otsu-histogram",
		Layout:       pipelineLayoutID,
		ShaderModule: moduleID,
		EntryPoint:   otsuHistogramEntryPoint,
	})
	if err != nil {
		return nil, deviceErr("create histogram pipeline", err)
	}
	defer adapter.DestroyComputePipeline(pipelineID)

	bindGroupID, err := adapter.CreateBindGroup(devicecore.BindGroupDesc{
		Label:  "otsu-histogram-bindgroup",
		Layout: layoutID,
		Entries: []devicecore.BindGroupEntry{
			{Binding: 0, Buffer: inID, Size: uint64(len(binIndices))},
			{Binding: 1, Buffer: outID, Size: uint64(len(histBytes))},
		},
	})
	if err != nil {
		return nil, deviceErr("create histogram bind group", err)
	}
	defer adapter.DestroyBindGroup(bindGroupID)

	pass, err := adapter.BeginComputePass("otsu-histogram-pass")
	if err != nil {
		return nil, deviceErr("begin histogram compute pass", err)
	}
	pass.SetPipeline(pipelineID)
	pass.SetBindGroup(0, bindGroupID)
	workgroups := uint32(len(binIndices)/4+255) / 256
	if workgroups == 0 {
		workgroups = 1
	}
	pass.Dispatch(workgroups, 1, 1)
	if err := pass.End(); err != nil {
		return nil, deviceErr("end histogram compute pass", err)
	}
	if err := adapter.Submit(ctx); err != nil {
		return nil, deviceErr("submit histogram dispatch", err)
	}
	if err := adapter.WaitIdle(ctx); err != nil {
		return nil, deviceErr("wait for histogram dispatch", err)
	}

	result, err := adapter.ReadBuffer(ctx, outID, 0, uint64(len(histBytes)))
	if err != nil {
		return nil, deviceErr("read histogram", err)
	}
	hist := make([]uint32, bins)
	for i := range hist {
		hist[i] = binary.LittleEndian.Uint32(result[i*4 : i*4+4])
	}
	return hist, nil
}
