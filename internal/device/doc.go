// Package device selects and wraps the compute backend used by the analysis
// pipeline: a GPU adapter bridging gogpu/wgpu's HAL, and a CPU adapter
// backed by a worker pool that runs Go kernel functions in place of compiled
// shaders.
//
// Detect probes for a usable GPU adapter and falls back to the CPU adapter
// when none is found or nogpu is set, producing a [devicecore.DeviceDescriptor]
// that the planner uses to size tiles against the device's memory budget.
package device
