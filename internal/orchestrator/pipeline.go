package orchestrator

import (
	"time"

	"github.com/srieg/zstack-analyzer/internal/analysisops"
	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// Pipeline is the external request surface: which algorithm to run, its
// raw parameter map (validated against the algorithm's schema at
// VALIDATE_PARAMS), and whether derived volumes should be attached to the
// Result. PSF supplies a user PSF volume when Parameters["psf_source"] is
// "user"; it is ignored otherwise.
type Pipeline struct {
	Algorithm   Algorithm
	Parameters  map[string]any
	EmitVolumes bool
	PSF         *tensor.Tensor
}

// StageTiming records one stage's wall-clock duration.
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// Result is the orchestrator's terminal output: the request echoed back,
// per-stage timings, the algorithm's numeric tables, a confidence score,
// and (only if Pipeline.EmitVolumes was set) derived volumes.
type Result struct {
	Algorithm  Algorithm
	Parameters map[string]any

	StageTimings []StageTiming

	RegionStats      []analysisops.RegionStat
	Colocalization   *analysisops.Colocalization
	ChannelIntensity []analysisops.ChannelIntensity

	ConfidenceScore float64

	Labels      *tensor.Tensor
	Mask        *tensor.Tensor
	Deconvolved []*tensor.Tensor
}
