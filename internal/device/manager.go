//go:build !nogpu

package device

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/srieg/zstack-analyzer/devicecore"
)

// preferredHALBackends lists the native graphics APIs tryDetectGPU probes,
// in order, stopping at the first one a backend is registered for.
var preferredHALBackends = []gputypes.Backend{
	gputypes.BackendVulkan,
	gputypes.BackendMetal,
	gputypes.BackendDX12,
}

// tryDetectGPU opens a standalone compute-capable HAL device, the same path
// the reference Vulkan compute dispatcher uses when no external device
// provider is present: enumerate adapters, prefer a discrete or integrated
// GPU over software/CPU adapters, then open it directly (no swapchain or
// surface is needed for compute-only work).
func tryDetectGPU(safety float64) (*Manager, error) {
	var backend hal.Backend
	for _, b := range preferredHALBackends {
		if be, ok := hal.GetBackend(b); ok {
			backend = be
			break
		}
	}
	if backend == nil {
		return nil, fmt.Errorf("no supported HAL backend registered")
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return nil, fmt.Errorf("no GPU adapters found")
	}

	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}

	slog.Default().Info("device: GPU adapter selected",
		"name", selected.Info.Name, "vendor", selected.Info.Vendor, "type", selected.Info.DeviceType)

	desc := devicecore.DeviceDescriptor{
		Backend:          backendTag(selected.Info.DeviceType),
		Name:             selected.Info.Name,
		TotalMemoryBytes: gpuMemoryEstimate(selected.Info.DeviceType),
		Safety:           safety,
		Unified:          selected.Info.DeviceType != gputypes.DeviceTypeDiscreteGPU,
	}

	adapter := newGPUAdapter(openDev.Device, openDev.Queue, desc)
	probe, err := adapter.CreateBuffer(4, devicecore.BufferUsageStorage)
	if err != nil {
		adapter.Close()
		return nil, fmt.Errorf("probe allocation: %w", err)
	}
	adapter.DestroyBuffer(probe)
	return &Manager{adapter: adapter}, nil
}

// gpuMemoryEstimate falls back to the host's system memory for integrated
// adapters (which share it) and a conservative fixed budget for discrete
// adapters, since the HAL's adapter enumeration does not report VRAM size
// directly.
func gpuMemoryEstimate(dt gputypes.DeviceType) uint64 {
	if dt == gputypes.DeviceTypeDiscreteGPU {
		return 4 << 30 // 4 GiB conservative default absent a VRAM query
	}
	if total := systemMemoryBytes(); total > 0 {
		return total
	}
	return 8 << 30
}

// backendTag maps a probed adapter's device type to the analysis pipeline's
// three-way backend label. There is no literal CUDA driver binding in this
// dependency stack: "CUDA" is a policy label for a discrete accelerator
// reached through the wgpu HAL, matching whatever native API (Vulkan,
// Metal, DX12) wgpu selected underneath. The Metal label only applies to
// an integrated adapter on darwin/arm64, per the detection order (Metal on
// macOS ARM, CUDA elsewhere); an integrated adapter found on any other
// platform falls back to the CPU label rather than being mistagged Metal.
func backendTag(dt gputypes.DeviceType) devicecore.Backend {
	if dt == gputypes.DeviceTypeDiscreteGPU {
		return devicecore.BackendCUDA
	}
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		return devicecore.BackendMetal
	}
	return devicecore.BackendCPU
}

// Detect probes for a GPU adapter and falls back to the CPU adapter when
// none is found or DEFAULT_DEVICE=cpu is set.
//
// Env knobs:
//   - DEFAULT_DEVICE: "auto" (default), "gpu", or "cpu"; any other value is
//     treated as "auto"
//   - MEMORY_SAFETY_FACTOR: fraction of the detected budget to use, (0,1]
func Detect() (*Manager, error) {
	safety := safetyFactorFromEnv()

	switch wantedBackend() {
	case "cpu":
		return newCPUManager(safety), nil
	case "gpu":
		m, err := tryDetectGPU(safety)
		if err != nil {
			return nil, fmt.Errorf("device: %w: %w", ErrNoGPU, err)
		}
		return m, nil
	default: // "auto"
		m, err := tryDetectGPU(safety)
		if err == nil {
			return m, nil
		}
		slog.Default().Info("device: no GPU adapter found, falling back to CPU", "reason", err)
		return newCPUManager(safety), nil
	}
}
