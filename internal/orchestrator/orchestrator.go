package orchestrator

import (
	"context"
	"time"

	"github.com/srieg/zstack-analyzer/devicecore"
	"github.com/srieg/zstack-analyzer/internal/analysisops"
	"github.com/srieg/zstack-analyzer/internal/deconv"
	"github.com/srieg/zstack-analyzer/internal/errorsx"
	"github.com/srieg/zstack-analyzer/internal/kernel"
	"github.com/srieg/zstack-analyzer/internal/metadata"
	"github.com/srieg/zstack-analyzer/internal/segmentation"
	"github.com/srieg/zstack-analyzer/internal/tensor"
)

// Stage names emitted in ProgressEvent.Stage. Each algorithm has its own
// weighted run of stages between VALIDATE_PARAMS/PLAN_TILING and AGGREGATE;
// each stage's progress fraction is written inline at its emit call.
const (
	stageInit           = "INIT"
	stageValidateParams = "VALIDATE_PARAMS"
	stagePlanTiling     = "PLAN_TILING"
	stageAggregate      = "AGGREGATE"
	stageDone           = "DONE"
)

// Working-set multipliers per kernel: how many volumes worth of scratch
// the kernel needs live at once, feeding the planner's budget math
// (§5's "at most three live Volume-sized tensors per stage" invariant).
const (
	gaussianMultiplier    = 2.0
	rollingBallMultiplier = 2.5
)

// Run drives one analysis request through
// INIT -> VALIDATE_PARAMS -> PLAN_TILING -> STAGE_1..N -> AGGREGATE -> DONE,
// matching the state machine exactly. channels holds one tensor per
// acquisition channel; budget is the device memory budget in bytes
// consulted by the planner for every locally-tileable kernel stage.
// Cancellation is cooperative via ctx, checked at every stage and tile
// boundary; cancelling returns an *errorsx.CancelledError immediately with
// no partial Result, matching §5's "stop dispatching, drop owned tensors"
// requirement. adapter is the detected compute device; segmentation_3d's
// THRESHOLD stage dispatches its histogram through it when non-nil
// (kernel.OtsuThresholdGPU), falling back to the host worker-pool
// histogram (kernel.OtsuThreshold) when nil.
func Run(ctx context.Context, requestID string, channels []*tensor.Tensor, meta metadata.Metadata, pipeline Pipeline, sink ProgressSink, budget int64, adapter devicecore.Adapter) (Result, error) {
	tracker := newProgressTracker(sink, requestID, pipeline.Algorithm)
	tracker.emit(stageInit, 0, true)

	result := Result{Algorithm: pipeline.Algorithm, Parameters: pipeline.Parameters}
	var timings []StageTiming
	timeStage := func(stage string, fn func() error) error {
		start := time.Now()
		err := fn()
		timings = append(timings, StageTiming{Stage: stage, Duration: time.Since(start)})
		return err
	}

	if err := checkCancelled(ctx, stageValidateParams); err != nil {
		return Result{}, err
	}
	tracker.emit(stageValidateParams, 0, true)

	switch pipeline.Algorithm {
	case AlgorithmSegmentation3D:
		var params SegmentationParams
		if err := timeStage(stageValidateParams, func() (err error) {
			params, err = ParseSegmentationParams(pipeline.Parameters)
			return err
		}); err != nil {
			return Result{}, err
		}
		if err := checkCancelled(ctx, stagePlanTiling); err != nil {
			return Result{}, err
		}
		tracker.emit(stagePlanTiling, 0.05, true)

		if len(channels) == 0 {
			return Result{}, &errorsx.InvalidParameterError{Name: "channels", Reason: "segmentation_3d requires at least one channel"}
		}
		source := channels[0]

		labels, _, err := runSegmentation(ctx, source, params, budget, adapter, tracker, timeStage)
		if err != nil {
			return Result{}, err
		}

		if err := checkCancelled(ctx, stageAggregate); err != nil {
			labels.Release()
			return Result{}, err
		}
		tracker.emit(stageAggregate, 0.95, true)
		if err := timeStage(stageAggregate, func() (err error) {
			result.RegionStats, err = analysisops.RegionStats(ctx, labels, source)
			return err
		}); err != nil {
			labels.Release()
			return Result{}, err
		}
		conf, err := segmentationConfidence(ctx, source, labels)
		if err != nil {
			labels.Release()
			return Result{}, err
		}
		result.ConfidenceScore = conf
		if pipeline.EmitVolumes {
			result.Labels = labels
		} else {
			labels.Release()
		}

	case AlgorithmColocalization:
		var params ColocalizationParams
		if err := timeStage(stageValidateParams, func() (err error) {
			params, err = ParseColocalizationParams(pipeline.Parameters)
			return err
		}); err != nil {
			return Result{}, err
		}
		if int(params.ChannelA) >= len(channels) || int(params.ChannelB) >= len(channels) {
			return Result{}, &errorsx.InvalidParameterError{Name: "channel_a/channel_b", Reason: "out of range for this volume's channel count"}
		}
		if err := checkCancelled(ctx, stagePlanTiling); err != nil {
			return Result{}, err
		}
		tracker.emit(stagePlanTiling, 0.05, true)

		chA, chB := channels[params.ChannelA], channels[params.ChannelB]
		var mask *tensor.Tensor
		if params.MaskFromLabels {
			if err := timeStage("MASK_FROM_LABELS", func() error {
				segResult, err := segmentation.Run(ctx, chA, segmentation.Params{})
				if err != nil {
					return err
				}
				mask, err = labelsToMask(ctx, segResult.Labels)
				segResult.Labels.Release()
				return err
			}); err != nil {
				return Result{}, err
			}
			tracker.emit("MASK_FROM_LABELS", 0.35, true)
		}

		var coloc analysisops.Colocalization
		if err := timeStage("CORRELATE", func() (err error) {
			coloc, err = analysisops.ComputeColocalization(ctx, chA, chB, mask, analysisops.ColocalizationThresholds{
				ThresholdA: params.ThresholdA,
				ThresholdB: params.ThresholdB,
			})
			return err
		}); err != nil {
			return Result{}, err
		}
		tracker.emit("CORRELATE", 0.9, true)

		result.Colocalization = &coloc
		result.ConfidenceScore = colocalizationConfidence(coloc.PearsonR)
		if pipeline.EmitVolumes {
			result.Mask = mask
		} else if mask != nil {
			mask.Release()
		}

	case AlgorithmIntensity:
		var params IntensityParams
		if err := timeStage(stageValidateParams, func() (err error) {
			params, err = ParseIntensityParams(pipeline.Parameters)
			return err
		}); err != nil {
			return Result{}, err
		}
		selected := make([]*tensor.Tensor, 0, len(params.Channels))
		for _, c := range params.Channels {
			if int(c) >= len(channels) {
				return Result{}, &errorsx.InvalidParameterError{Name: "channels", Reason: "channel index out of range"}
			}
			selected = append(selected, channels[c])
		}
		if err := checkCancelled(ctx, stagePlanTiling); err != nil {
			return Result{}, err
		}
		tracker.emit(stagePlanTiling, 0.05, true)

		var intensity []analysisops.ChannelIntensity
		if err := timeStage("INTENSITY", func() (err error) {
			intensity, err = analysisops.IntensityAnalysis(ctx, selected)
			return err
		}); err != nil {
			return Result{}, err
		}
		tracker.emit("INTENSITY", 0.9, true)

		result.ChannelIntensity = intensity
		result.ConfidenceScore = intensityConfidence

	case AlgorithmDeconvolution:
		var params DeconvolutionParams
		if err := timeStage(stageValidateParams, func() (err error) {
			params, err = ParseDeconvolutionParams(pipeline.Parameters)
			return err
		}); err != nil {
			return Result{}, err
		}
		if params.PSFSource == "user" && pipeline.PSF == nil {
			return Result{}, &errorsx.InvalidParameterError{Name: "psf_source", Reason: `"user" requires Pipeline.PSF`}
		}
		if len(channels) == 0 {
			return Result{}, &errorsx.InvalidParameterError{Name: "channels", Reason: "deconvolution requires at least one channel"}
		}
		if err := checkCancelled(ctx, stagePlanTiling); err != nil {
			return Result{}, err
		}
		tracker.emit(stagePlanTiling, 0.05, true)

		deconvolved := make([]*tensor.Tensor, len(channels))
		var lastRelChange float64
		for i, ch := range channels {
			if err := checkCancelled(ctx, "DECONVOLVE"); err != nil {
				return Result{}, err
			}
			psf := pipeline.PSF
			synthesizedPSF := false
			if params.PSFSource == "synthetic" {
				na := params.NA
				if na == 0 {
					na = float32(meta.Objective.NA)
				}
				wavelength := params.WavelengthNM
				if wavelength == 0 && len(meta.Channels) > i {
					wavelength = float32(meta.Channels[i].EmissionNM)
				}
				voxel := [3]float64{meta.VoxelSizeUM[0] * 1000, meta.VoxelSizeUM[1] * 1000, meta.VoxelSizeUM[2] * 1000}
				var err error
				psf, err = deconv.SynthesizePSF(float64(na), float64(wavelength), voxel, [3]int{15, 15, 15})
				if err != nil {
					return Result{}, err
				}
				synthesizedPSF = true
			}

			var lambdaTV float64
			if params.Regularization == "tv" {
				lambdaTV = float64(params.LambdaTV)
			}
			if err := timeStage("DECONVOLVE", func() error {
				out, relChange, err := deconv.RichardsonLucy(ctx, ch, psf, deconv.RLParams{
					Iterations: int(params.Iterations),
					LambdaTV:   lambdaTV,
					Tol:        float64(params.Tol),
				})
				if err != nil {
					return err
				}
				deconvolved[i] = out
				lastRelChange = relChange
				return nil
			}); err != nil {
				return Result{}, err
			}
			if synthesizedPSF {
				psf.Release()
			}
			tracker.emit("DECONVOLVE", 0.1+0.8*float64(i+1)/float64(len(channels)), i == len(channels)-1)
		}

		result.ConfidenceScore = deconvolutionConfidence(lastRelChange, float64(params.Tol))
		if pipeline.EmitVolumes {
			result.Deconvolved = deconvolved
		} else {
			for _, d := range deconvolved {
				d.Release()
			}
		}

	default:
		return Result{}, &errorsx.InvalidParameterError{Name: "algorithm", Reason: "unrecognized algorithm"}
	}

	result.StageTimings = timings
	tracker.emit(stageDone, 1.0, true)
	return result, nil
}

// runSegmentation reimplements segmentation.Run's staged pipeline inline
// (rather than calling it directly) so the locally-decomposable stages —
// Gaussian smoothing and rolling-ball background subtraction — run through
// runTiledLocal and genuinely consult the planner, while OtsuThreshold and
// ConnectedComponents3D (both whole-volume reductions: a global histogram
// and cross-voxel label propagation) always run on the assembled result.
func runSegmentation(ctx context.Context, source *tensor.Tensor, params SegmentationParams, budget int64, adapter devicecore.Adapter, tracker *progressTracker, timeStage func(string, func() error) error) (*tensor.Tensor, int, error) {
	elemSize := source.DType().Size()

	var smoothed *tensor.Tensor
	if err := timeStage("SMOOTH", func() error {
		var err error
		smoothed, err = runTiledLocal(ctx, source, "SMOOTH", elemSize, gaussianMultiplier, budget, haloForSigma(params.Sigma),
			func(ctx context.Context, in *tensor.Tensor) (*tensor.Tensor, error) {
				return kernel.Gaussian3D(ctx, in, [3]float32{params.Sigma, params.Sigma, params.Sigma})
			},
			func(f float64) { tracker.emit("SMOOTH", 0.1+0.2*f, f >= 1) },
		)
		return err
	}); err != nil {
		return nil, 0, err
	}
	defer smoothed.Release()

	if err := checkCancelled(ctx, "BACKGROUND"); err != nil {
		return nil, 0, err
	}

	var flattened *tensor.Tensor
	if err := timeStage("BACKGROUND", func() error {
		var err error
		flattened, err = runTiledLocal(ctx, smoothed, "BACKGROUND", elemSize, rollingBallMultiplier, budget, int(params.RollingBallRadius),
			func(ctx context.Context, in *tensor.Tensor) (*tensor.Tensor, error) {
				return kernel.RollingBallBackground(ctx, in, float32(params.RollingBallRadius))
			},
			func(f float64) { tracker.emit("BACKGROUND", 0.3+0.3*f, f >= 1) },
		)
		return err
	}); err != nil {
		return nil, 0, err
	}
	defer flattened.Release()

	if err := checkCancelled(ctx, "THRESHOLD"); err != nil {
		return nil, 0, err
	}

	var threshold float32
	var binary *tensor.Tensor
	if err := timeStage("THRESHOLD", func() error {
		var err error
		if adapter != nil {
			threshold, err = kernel.OtsuThresholdGPU(ctx, adapter, flattened, 256)
		} else {
			threshold, err = kernel.OtsuThreshold(ctx, flattened, 256)
		}
		if err != nil {
			return err
		}
		binary, err = segmentation.Binarize(flattened, threshold)
		return err
	}); err != nil {
		return nil, 0, err
	}
	defer binary.Release()
	tracker.emit("THRESHOLD", 0.7, true)

	if err := checkCancelled(ctx, "LABEL"); err != nil {
		return nil, 0, err
	}

	var labels *tensor.Tensor
	var numObjects int
	if err := timeStage("LABEL", func() error {
		var err error
		labels, numObjects, err = kernel.ConnectedComponents3D(ctx, binary, int(params.Connectivity))
		if err != nil {
			return err
		}
		labels, numObjects, err = segmentation.FilterSmallObjects(ctx, labels, numObjects, int(params.MinObjectVoxels))
		return err
	}); err != nil {
		return nil, 0, err
	}
	tracker.emit("LABEL", 0.9, true)

	return labels, numObjects, nil
}

func labelsToMask(ctx context.Context, labels *tensor.Tensor) (*tensor.Tensor, error) {
	data, err := labels.ToHost(ctx)
	if err != nil {
		return nil, err
	}
	shape := labels.Shape()
	n := shape[0] * shape[1] * shape[2]
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		if data[i*2] != 0 || data[i*2+1] != 0 {
			out[i] = 1
		}
	}
	return tensor.FromHost(out, shape, tensor.U8, nil)
}

func checkCancelled(ctx context.Context, stage string) error {
	select {
	case <-ctx.Done():
		return &errorsx.CancelledError{Stage: stage}
	default:
		return nil
	}
}
