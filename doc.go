// Package zstack provides a GPU/CPU analysis core for confocal microscopy
// Z-stack images.
//
// # Overview
//
// zstack loads a multi-channel 3D volume from a microscopy container format,
// runs one of a fixed set of analysis pipelines over it — 3D segmentation,
// channel colocalization, intensity analysis, or deconvolution — and returns
// per-region statistics, summary measures, and a confidence score. Heavy
// kernels dispatch through a device abstraction that picks a GPU backend via
// gogpu/wgpu when one is available and falls back to a CPU worker pool
// otherwise, with a planner deciding whether a volume fits in the budgeted
// device memory whole or must be processed tile by tile.
//
// # Quick Start
//
//	import "github.com/srieg/zstack-analyzer"
//
//	vol, meta, err := zstack.Load(ctx, "stack.ome.tif")
//	if err != nil {
//	    // handle error
//	}
//
//	result, err := zstack.Run(ctx, vol, meta, zstack.Pipeline{
//	    Algorithm:  zstack.AlgorithmSegmentation3D,
//	    Parameters: map[string]any{"sigma": 1.5},
//	}, zstack.DiscardSink{})
//
// # Architecture
//
// The library is organized into:
//   - Public API: Volume, Pipeline, Result, ProgressSink, error taxonomy
//   - devicecore / internal/device: the GPU/CPU compute device abstraction
//   - internal/tensor: the device-resident 3D array type every kernel and
//     loader operates on
//   - internal/kernel: Gaussian/rolling-ball/Sobel/Otsu/connected-components
//     compute kernels
//   - internal/segmentation, internal/analysisops, internal/deconv: the
//     algorithm bodies the orchestrator composes
//   - internal/planner: tile-vs-whole-volume memory planning
//   - internal/loader (+ internal/loader/tiff): streaming container readers
//   - internal/orchestrator: the INIT->VALIDATE_PARAMS->PLAN_TILING->
//     STAGE_1..N->AGGREGATE->DONE pipeline state machine
//
// # Coordinate System
//
// Volumes are indexed (Z, Y, X), matching the acquisition order every
// supported container format stores planes in. Physical voxel size is
// reported separately in micrometers and never assumed isotropic.
//
// # Performance
//
// The orchestrator prioritizes correctness and bounded memory use over
// throughput: kernels with a bounded halo are tiled to the device's memory
// budget, whole-volume reductions (thresholding, labeling, FFT-based
// deconvolution) are not, and a tile's allocation failure is retried once at
// half the memory budget before surfacing as an error.
package zstack
