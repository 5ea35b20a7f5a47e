// Package cache provides a generic, write-once-then-read cache bounded by
// entry count rather than bytes.
//
// It backs the kernel-compilation cache (compiled WGSL compute pipelines,
// keyed by shader source hash) and the FFT-plan cache (keyed by dtype and
// shape) described by the analysis pipeline's concurrency model: both are
// populated once per distinct key and read many times afterward, so eviction
// only needs to bound memory for long-running processes that see many
// distinct shapes/sigmas, not to model recency precisely.
//
//	plans := cache.New[fftPlanKey, *fftPlan](64)
//	plan := plans.GetOrCreate(key, func() *fftPlan { return buildPlan(key) })
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
