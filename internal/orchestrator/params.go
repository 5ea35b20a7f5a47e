package orchestrator

import (
	"github.com/srieg/zstack-analyzer/internal/errorsx"
)

// Algorithm identifies one of the four supported pipelines.
type Algorithm string

const (
	AlgorithmSegmentation3D Algorithm = "segmentation_3d"
	AlgorithmColocalization Algorithm = "colocalization"
	AlgorithmIntensity      Algorithm = "intensity_analysis"
	AlgorithmDeconvolution  Algorithm = "deconvolution"
)

// SegmentationParams configures the segmentation_3d pipeline.
type SegmentationParams struct {
	Sigma             float32
	RollingBallRadius uint32
	MinObjectVoxels   uint32
	Connectivity      uint32
}

func (p SegmentationParams) Validate() error {
	if p.Sigma < 0 || p.Sigma > 10 {
		return &errorsx.InvalidParameterError{Name: "sigma", Reason: "must be in [0,10]"}
	}
	if p.RollingBallRadius > 200 {
		return &errorsx.InvalidParameterError{Name: "rolling_ball_radius", Reason: "must be in [0,200]"}
	}
	if p.Connectivity != 6 && p.Connectivity != 26 {
		return &errorsx.InvalidParameterError{Name: "connectivity", Reason: "must be 6 or 26"}
	}
	return nil
}

// ColocalizationParams configures the colocalization pipeline. A zero
// ThresholdA/ThresholdB (i.e. not present in the request) falls through to
// analysisops.ComputeColocalization's own Otsu-derived threshold.
type ColocalizationParams struct {
	ChannelA       uint32
	ChannelB       uint32
	ThresholdA     float32
	ThresholdB     float32
	MaskFromLabels bool
}

func (p ColocalizationParams) Validate() error {
	if p.ChannelA == p.ChannelB {
		return &errorsx.InvalidParameterError{Name: "channel_b", Reason: "must differ from channel_a"}
	}
	return nil
}

// IntensityParams configures the intensity_analysis pipeline.
type IntensityParams struct {
	Channels []uint32
}

func (p IntensityParams) Validate() error {
	if len(p.Channels) == 0 {
		return &errorsx.InvalidParameterError{Name: "channels", Reason: "must list at least one channel"}
	}
	return nil
}

// DeconvolutionParams configures the deconvolution pipeline. NA and
// WavelengthNM are only consulted when PSFSource is "synthetic" and are
// not themselves present in the request (Run then falls back to the
// volume's Metadata.Objective.NA and the channel's EmissionNM).
type DeconvolutionParams struct {
	Iterations     uint32
	PSFSource      string
	NA             float32
	WavelengthNM   float32
	Regularization string
	LambdaTV       float32
	Tol            float32
}

func (p DeconvolutionParams) Validate() error {
	if p.Iterations < 1 || p.Iterations > 500 {
		return &errorsx.InvalidParameterError{Name: "iterations", Reason: "must be in [1,500]"}
	}
	if p.PSFSource != "synthetic" && p.PSFSource != "user" {
		return &errorsx.InvalidParameterError{Name: "psf_source", Reason: "must be synthetic or user"}
	}
	if p.Regularization != "" && p.Regularization != "none" && p.Regularization != "tv" {
		return &errorsx.InvalidParameterError{Name: "regularization", Reason: "must be none or tv"}
	}
	return nil
}

// allowedKeys lists every key name's and a param-struct's parser function may
// consume for its algorithm; any key outside this set is a hard error
// rather than a silently ignored one (§9 design note).
var allowedKeys = map[Algorithm][]string{
	AlgorithmSegmentation3D: {"sigma", "rolling_ball_radius", "min_object_voxels", "connectivity"},
	AlgorithmColocalization: {"channel_a", "channel_b", "threshold_a", "threshold_b", "mask_from_labels"},
	AlgorithmIntensity:      {"channels"},
	AlgorithmDeconvolution:  {"iterations", "psf_source", "na", "wavelength_nm", "regularization", "lambda_tv", "tol"},
}

func checkUnknownKeys(algorithm Algorithm, params map[string]any) error {
	allowed := allowedKeys[algorithm]
	set := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		set[k] = true
	}
	for k := range params {
		if !set[k] {
			return &errorsx.InvalidParameterError{Name: k, Reason: "unrecognized parameter for this algorithm"}
		}
	}
	return nil
}

func floatParam(params map[string]any, key string) (float64, bool, error) {
	v, ok := params[key]
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case float32:
		return float64(n), true, nil
	case int:
		return float64(n), true, nil
	default:
		return 0, false, &errorsx.InvalidParameterError{Name: key, Reason: "expected a number"}
	}
}

func uintParam(params map[string]any, key string) (uint32, bool, error) {
	v, ok, err := floatParam(params, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	if v < 0 {
		return 0, true, &errorsx.InvalidParameterError{Name: key, Reason: "must be non-negative"}
	}
	return uint32(v), true, nil
}

func boolParam(params map[string]any, key string) (bool, bool, error) {
	v, ok := params[key]
	if !ok {
		return false, false, nil
	}
	b, ok2 := v.(bool)
	if !ok2 {
		return false, true, &errorsx.InvalidParameterError{Name: key, Reason: "expected a bool"}
	}
	return b, true, nil
}

func stringParam(params map[string]any, key string) (string, bool, error) {
	v, ok := params[key]
	if !ok {
		return "", false, nil
	}
	s, ok2 := v.(string)
	if !ok2 {
		return "", true, &errorsx.InvalidParameterError{Name: key, Reason: "expected a string"}
	}
	return s, true, nil
}

func uintSliceParam(params map[string]any, key string) ([]uint32, bool, error) {
	v, ok := params[key]
	if !ok {
		return nil, false, nil
	}
	raw, ok2 := v.([]any)
	if !ok2 {
		return nil, true, &errorsx.InvalidParameterError{Name: key, Reason: "expected a list of numbers"}
	}
	out := make([]uint32, 0, len(raw))
	for _, e := range raw {
		switch n := e.(type) {
		case float64:
			out = append(out, uint32(n))
		case int:
			out = append(out, uint32(n))
		default:
			return nil, true, &errorsx.InvalidParameterError{Name: key, Reason: "list elements must be numbers"}
		}
	}
	return out, true, nil
}

// ParseSegmentationParams parses and validates params for segmentation_3d,
// filling in spec-documented defaults for any key not present.
func ParseSegmentationParams(params map[string]any) (SegmentationParams, error) {
	if err := checkUnknownKeys(AlgorithmSegmentation3D, params); err != nil {
		return SegmentationParams{}, err
	}
	p := SegmentationParams{Sigma: 1.0, RollingBallRadius: 25, MinObjectVoxels: 64, Connectivity: 26}
	if v, ok, err := floatParam(params, "sigma"); err != nil {
		return SegmentationParams{}, err
	} else if ok {
		p.Sigma = float32(v)
	}
	if v, ok, err := uintParam(params, "rolling_ball_radius"); err != nil {
		return SegmentationParams{}, err
	} else if ok {
		p.RollingBallRadius = v
	}
	if v, ok, err := uintParam(params, "min_object_voxels"); err != nil {
		return SegmentationParams{}, err
	} else if ok {
		p.MinObjectVoxels = v
	}
	if v, ok, err := uintParam(params, "connectivity"); err != nil {
		return SegmentationParams{}, err
	} else if ok {
		p.Connectivity = v
	}
	return p, p.Validate()
}

// ParseColocalizationParams parses and validates params for colocalization.
// channel_a and channel_b are required.
func ParseColocalizationParams(params map[string]any) (ColocalizationParams, error) {
	if err := checkUnknownKeys(AlgorithmColocalization, params); err != nil {
		return ColocalizationParams{}, err
	}
	var p ColocalizationParams
	a, ok, err := uintParam(params, "channel_a")
	if err != nil {
		return ColocalizationParams{}, err
	}
	if !ok {
		return ColocalizationParams{}, &errorsx.InvalidParameterError{Name: "channel_a", Reason: "required"}
	}
	p.ChannelA = a
	b, ok, err := uintParam(params, "channel_b")
	if err != nil {
		return ColocalizationParams{}, err
	}
	if !ok {
		return ColocalizationParams{}, &errorsx.InvalidParameterError{Name: "channel_b", Reason: "required"}
	}
	p.ChannelB = b
	if v, ok, err := floatParam(params, "threshold_a"); err != nil {
		return ColocalizationParams{}, err
	} else if ok {
		p.ThresholdA = float32(v)
	}
	if v, ok, err := floatParam(params, "threshold_b"); err != nil {
		return ColocalizationParams{}, err
	} else if ok {
		p.ThresholdB = float32(v)
	}
	if v, ok, err := boolParam(params, "mask_from_labels"); err != nil {
		return ColocalizationParams{}, err
	} else if ok {
		p.MaskFromLabels = v
	}
	return p, p.Validate()
}

// ParseIntensityParams parses and validates params for intensity_analysis.
func ParseIntensityParams(params map[string]any) (IntensityParams, error) {
	if err := checkUnknownKeys(AlgorithmIntensity, params); err != nil {
		return IntensityParams{}, err
	}
	channels, _, err := uintSliceParam(params, "channels")
	if err != nil {
		return IntensityParams{}, err
	}
	p := IntensityParams{Channels: channels}
	return p, p.Validate()
}

// ParseDeconvolutionParams parses and validates params for deconvolution.
func ParseDeconvolutionParams(params map[string]any) (DeconvolutionParams, error) {
	if err := checkUnknownKeys(AlgorithmDeconvolution, params); err != nil {
		return DeconvolutionParams{}, err
	}
	var p DeconvolutionParams
	iters, ok, err := uintParam(params, "iterations")
	if err != nil {
		return DeconvolutionParams{}, err
	}
	if !ok {
		return DeconvolutionParams{}, &errorsx.InvalidParameterError{Name: "iterations", Reason: "required"}
	}
	p.Iterations = iters

	source, ok, err := stringParam(params, "psf_source")
	if err != nil {
		return DeconvolutionParams{}, err
	}
	if !ok {
		return DeconvolutionParams{}, &errorsx.InvalidParameterError{Name: "psf_source", Reason: "required"}
	}
	p.PSFSource = source

	if v, ok, err := floatParam(params, "na"); err != nil {
		return DeconvolutionParams{}, err
	} else if ok {
		p.NA = float32(v)
	}
	if v, ok, err := floatParam(params, "wavelength_nm"); err != nil {
		return DeconvolutionParams{}, err
	} else if ok {
		p.WavelengthNM = float32(v)
	}
	if v, ok, err := stringParam(params, "regularization"); err != nil {
		return DeconvolutionParams{}, err
	} else if ok {
		p.Regularization = v
	} else {
		p.Regularization = "none"
	}
	if v, ok, err := floatParam(params, "lambda_tv"); err != nil {
		return DeconvolutionParams{}, err
	} else if ok {
		p.LambdaTV = float32(v)
	}
	if v, ok, err := floatParam(params, "tol"); err != nil {
		return DeconvolutionParams{}, err
	} else if ok {
		p.Tol = float32(v)
	}
	return p, p.Validate()
}
