// Package devicecore defines the compute-only GPU abstraction shared by the
// analysis pipeline: the [Adapter] interface, opaque resource IDs, and the
// [DeviceDescriptor] contract reported by device detection.
//
// # Architecture
//
// devicecore plays the same role the teacher's gpucore package played for
// its rendering pipeline, narrowed to compute: one [Adapter] interface, two
// concrete implementations (internal/device's CPU worker-pool adapter and its
// gogpu/wgpu-backed GPU adapter), and no render-pass, texture, or swapchain
// surface — this pipeline never presents pixels, it only computes on voxels.
//
//	                 +------------------+
//	                 |    devicecore    |
//	                 | (Adapter, IDs)   |
//	                 +--------+---------+
//	                          |
//	           +--------------+--------------+
//	           |                             |
//	  +--------v--------+          +--------v--------+
//	  |   CPU adapter   |          |   GPU adapter   |
//	  | (worker pool)   |          | (gogpu/wgpu HAL)|
//	  +-----------------+          +-----------------+
//
// # Resource Management
//
// Resources are managed via opaque IDs ([BufferID], [ShaderModuleID], etc.).
// Adapters track the mapping between IDs and their own backend handles; the
// IDs themselves carry no backend-specific state so the orchestrator and
// kernel library never import a backend package directly.
package devicecore
