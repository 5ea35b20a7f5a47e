package zstack

import "github.com/srieg/zstack-analyzer/internal/orchestrator"

// Algorithm identifies one of the four supported analysis pipelines.
type Algorithm = orchestrator.Algorithm

const (
	AlgorithmSegmentation3D = orchestrator.AlgorithmSegmentation3D
	AlgorithmColocalization = orchestrator.AlgorithmColocalization
	AlgorithmIntensity      = orchestrator.AlgorithmIntensity
	AlgorithmDeconvolution  = orchestrator.AlgorithmDeconvolution
)

// Pipeline is a single analysis request: which algorithm to run, its raw
// parameter map (validated against the algorithm's schema), and whether
// derived volumes should be attached to the Result.
type Pipeline = orchestrator.Pipeline

// StageTiming records one pipeline stage's wall-clock duration.
type StageTiming = orchestrator.StageTiming

// Result is the terminal output of a Run call.
type Result = orchestrator.Result
