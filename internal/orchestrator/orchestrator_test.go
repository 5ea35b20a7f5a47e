package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/srieg/zstack-analyzer/internal/device"
	"github.com/srieg/zstack-analyzer/internal/errorsx"
	"github.com/srieg/zstack-analyzer/internal/metadata"
	"github.com/srieg/zstack-analyzer/internal/tensor"
)

func constantVolume(t *testing.T, shape [3]int, value byte) *tensor.Tensor {
	t.Helper()
	data := make([]byte, shape[0]*shape[1]*shape[2])
	for i := range data {
		data[i] = value
	}
	ts, err := tensor.FromHost(data, shape, tensor.U8, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}
	return ts
}

func blockVolume(t *testing.T, shape [3]int, background, foreground byte, blockFrom, blockTo [3]int) *tensor.Tensor {
	t.Helper()
	data := make([]byte, shape[0]*shape[1]*shape[2])
	for i := range data {
		data[i] = background
	}
	for z := blockFrom[0]; z < blockTo[0]; z++ {
		for y := blockFrom[1]; y < blockTo[1]; y++ {
			for x := blockFrom[2]; x < blockTo[2]; x++ {
				data[(z*shape[1]+y)*shape[2]+x] = foreground
			}
		}
	}
	ts, err := tensor.FromHost(data, shape, tensor.U8, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}
	return ts
}

func testMeta(shape [3]int, nChannels int) metadata.Metadata {
	return metadata.Metadata{
		SX: shape[2], SY: shape[1], SZ: shape[0], SC: nChannels, ST: 1,
		VoxelSizeUM: [3]float64{0.3, 0.1, 0.1},
		Objective:   metadata.Objective{NA: 1.4},
	}
}

func TestRunSegmentation3DFindsBlock(t *testing.T) {
	shape := [3]int{8, 16, 16}
	vol := blockVolume(t, shape, 10, 200, [3]int{2, 4, 4}, [3]int{6, 12, 12})
	defer vol.Release()

	result, err := Run(context.Background(), "req-1", []*tensor.Tensor{vol}, testMeta(shape, 1), Pipeline{
		Algorithm:  AlgorithmSegmentation3D,
		Parameters: map[string]any{"sigma": 0.5, "min_object_voxels": 4},
	}, DiscardSink{}, 1<<30, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.RegionStats) == 0 {
		t.Fatalf("RegionStats is empty, want at least one labeled region for the embedded block")
	}
	if result.ConfidenceScore <= 0 {
		t.Errorf("ConfidenceScore = %v, want > 0 for a clearly separated foreground block", result.ConfidenceScore)
	}
	if result.Labels != nil {
		t.Errorf("Labels = %v, want nil since EmitVolumes was not set", result.Labels)
	}
}

func TestRunSegmentation3DWithAdapterMatchesHostThreshold(t *testing.T) {
	t.Setenv("DEFAULT_DEVICE", "cpu")
	mgr, err := device.Detect()
	if err != nil {
		t.Fatalf("device.Detect() error = %v", err)
	}
	defer mgr.Close()

	shape := [3]int{8, 16, 16}
	vol := blockVolume(t, shape, 10, 200, [3]int{2, 4, 4}, [3]int{6, 12, 12})
	defer vol.Release()

	result, err := Run(context.Background(), "req-1b", []*tensor.Tensor{vol}, testMeta(shape, 1), Pipeline{
		Algorithm:  AlgorithmSegmentation3D,
		Parameters: map[string]any{"sigma": 0.5, "min_object_voxels": 4},
	}, DiscardSink{}, 1<<30, mgr.Adapter())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.RegionStats) == 0 {
		t.Fatal("RegionStats is empty, want at least one labeled region via the adapter-dispatched histogram")
	}
}

func TestRunSegmentation3DEmitsVolumes(t *testing.T) {
	shape := [3]int{4, 8, 8}
	vol := blockVolume(t, shape, 5, 250, [3]int{0, 0, 0}, [3]int{4, 4, 4})
	defer vol.Release()

	result, err := Run(context.Background(), "req-2", []*tensor.Tensor{vol}, testMeta(shape, 1), Pipeline{
		Algorithm:   AlgorithmSegmentation3D,
		Parameters:  map[string]any{},
		EmitVolumes: true,
	}, DiscardSink{}, 1<<30, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Labels == nil {
		t.Fatal("Labels is nil, want a label volume since EmitVolumes was set")
	}
	result.Labels.Release()
}

func TestRunSegmentation3DRequiresChannel(t *testing.T) {
	_, err := Run(context.Background(), "req-3", nil, testMeta([3]int{4, 4, 4}, 0), Pipeline{
		Algorithm:  AlgorithmSegmentation3D,
		Parameters: map[string]any{},
	}, DiscardSink{}, 1<<30, nil)
	var invalid *errorsx.InvalidParameterError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want *errorsx.InvalidParameterError", err)
	}
}

func TestRunColocalizationIdenticalChannelsMaximallyCorrelated(t *testing.T) {
	shape := [3]int{4, 8, 8}
	chA := blockVolume(t, shape, 10, 220, [3]int{0, 0, 0}, [3]int{4, 4, 8})
	chB := blockVolume(t, shape, 10, 220, [3]int{0, 0, 0}, [3]int{4, 4, 8})
	defer chA.Release()
	defer chB.Release()

	result, err := Run(context.Background(), "req-4", []*tensor.Tensor{chA, chB}, testMeta(shape, 2), Pipeline{
		Algorithm:  AlgorithmColocalization,
		Parameters: map[string]any{"channel_a": 0, "channel_b": 1},
	}, DiscardSink{}, 1<<30, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Colocalization == nil {
		t.Fatal("Colocalization is nil")
	}
	if result.Colocalization.PearsonR < 0.99 {
		t.Errorf("PearsonR = %v, want ~1 for identical channels", result.Colocalization.PearsonR)
	}
	if result.ConfidenceScore < 0.99 {
		t.Errorf("ConfidenceScore = %v, want ~1 for |r|~1", result.ConfidenceScore)
	}
}

func TestRunColocalizationRequiresDistinctChannels(t *testing.T) {
	shape := [3]int{4, 4, 4}
	ch := constantVolume(t, shape, 50)
	defer ch.Release()

	_, err := Run(context.Background(), "req-5", []*tensor.Tensor{ch, ch}, testMeta(shape, 2), Pipeline{
		Algorithm:  AlgorithmColocalization,
		Parameters: map[string]any{"channel_a": 0, "channel_b": 0},
	}, DiscardSink{}, 1<<30, nil)
	var invalid *errorsx.InvalidParameterError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want *errorsx.InvalidParameterError", err)
	}
}

func TestRunIntensityAnalysis(t *testing.T) {
	shape := [3]int{4, 8, 8}
	ch := constantVolume(t, shape, 77)
	defer ch.Release()

	result, err := Run(context.Background(), "req-6", []*tensor.Tensor{ch}, testMeta(shape, 1), Pipeline{
		Algorithm:  AlgorithmIntensity,
		Parameters: map[string]any{"channels": []any{0}},
	}, DiscardSink{}, 1<<30, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.ChannelIntensity) != 1 {
		t.Fatalf("len(ChannelIntensity) = %d, want 1", len(result.ChannelIntensity))
	}
	if result.ChannelIntensity[0].Mean != 77 {
		t.Errorf("Mean = %v, want 77 for a constant volume", result.ChannelIntensity[0].Mean)
	}
	if result.ConfidenceScore != intensityConfidence {
		t.Errorf("ConfidenceScore = %v, want the fixed %v", result.ConfidenceScore, intensityConfidence)
	}
}

func TestRunDeconvolutionSynthesizesPSF(t *testing.T) {
	shape := [3]int{8, 16, 16}
	ch := blockVolume(t, shape, 20, 200, [3]int{2, 6, 6}, [3]int{6, 10, 10})
	defer ch.Release()

	result, err := Run(context.Background(), "req-7", []*tensor.Tensor{ch}, testMeta(shape, 1), Pipeline{
		Algorithm: AlgorithmDeconvolution,
		Parameters: map[string]any{
			"iterations": 5,
			"psf_source": "synthetic",
		},
		EmitVolumes: true,
	}, DiscardSink{}, 1<<30, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Deconvolved) != 1 {
		t.Fatalf("len(Deconvolved) = %d, want 1", len(result.Deconvolved))
	}
	if result.Deconvolved[0] == nil {
		t.Fatal("Deconvolved[0] is nil")
	}
	result.Deconvolved[0].Release()
	if result.ConfidenceScore < 0 || result.ConfidenceScore > 1 {
		t.Errorf("ConfidenceScore = %v, want in [0,1]", result.ConfidenceScore)
	}
}

func TestRunDeconvolutionRequiresUserPSFWhenSourceIsUser(t *testing.T) {
	shape := [3]int{4, 8, 8}
	ch := constantVolume(t, shape, 50)
	defer ch.Release()

	_, err := Run(context.Background(), "req-8", []*tensor.Tensor{ch}, testMeta(shape, 1), Pipeline{
		Algorithm: AlgorithmDeconvolution,
		Parameters: map[string]any{
			"iterations": 3,
			"psf_source": "user",
		},
	}, DiscardSink{}, 1<<30, nil)
	var invalid *errorsx.InvalidParameterError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want *errorsx.InvalidParameterError", err)
	}
}

func TestRunUnknownParameterKeyRejected(t *testing.T) {
	shape := [3]int{4, 8, 8}
	ch := constantVolume(t, shape, 50)
	defer ch.Release()

	_, err := Run(context.Background(), "req-9", []*tensor.Tensor{ch}, testMeta(shape, 1), Pipeline{
		Algorithm:  AlgorithmSegmentation3D,
		Parameters: map[string]any{"not_a_real_param": 1},
	}, DiscardSink{}, 1<<30, nil)
	var invalid *errorsx.InvalidParameterError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want *errorsx.InvalidParameterError", err)
	}
}

func TestRunRespectsCancellation(t *testing.T) {
	shape := [3]int{4, 8, 8}
	ch := constantVolume(t, shape, 50)
	defer ch.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, "req-10", []*tensor.Tensor{ch}, testMeta(shape, 1), Pipeline{
		Algorithm:  AlgorithmSegmentation3D,
		Parameters: map[string]any{},
	}, DiscardSink{}, 1<<30, nil)
	var cancelled *errorsx.CancelledError
	if !errors.As(err, &cancelled) {
		t.Fatalf("error = %v, want *errorsx.CancelledError", err)
	}
}
