package kernel

import (
	"context"
	"testing"

	"github.com/srieg/zstack-analyzer/internal/device"
	"github.com/srieg/zstack-analyzer/internal/tensor"
)

func TestOtsuThresholdGPUMatchesHostBimodal(t *testing.T) {
	t.Setenv("DEFAULT_DEVICE", "cpu")
	mgr, err := device.Detect()
	if err != nil {
		t.Fatalf("device.Detect() error = %v", err)
	}
	defer mgr.Close()

	data := make([]byte, 16)
	for i := 0; i < 8; i++ {
		data[i] = 10
	}
	for i := 8; i < 16; i++ {
		data[i] = 200
	}
	ts, err := tensor.FromHost(data, [3]int{2, 2, 4}, tensor.U8, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}

	want, err := OtsuThreshold(context.Background(), ts, 256)
	if err != nil {
		t.Fatalf("OtsuThreshold() error = %v", err)
	}
	got, err := OtsuThresholdGPU(context.Background(), mgr.Adapter(), ts, 256)
	if err != nil {
		t.Fatalf("OtsuThresholdGPU() error = %v", err)
	}
	if got != want {
		t.Errorf("OtsuThresholdGPU() = %v, want %v (host OtsuThreshold on the same data)", got, want)
	}
}

func TestOtsuThresholdGPUConstantVolume(t *testing.T) {
	t.Setenv("DEFAULT_DEVICE", "cpu")
	mgr, err := device.Detect()
	if err != nil {
		t.Fatalf("device.Detect() error = %v", err)
	}
	defer mgr.Close()

	data := make([]byte, 8)
	for i := range data {
		data[i] = 42
	}
	ts, err := tensor.FromHost(data, [3]int{2, 2, 2}, tensor.U8, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}
	got, err := OtsuThresholdGPU(context.Background(), mgr.Adapter(), ts, 256)
	if err != nil {
		t.Fatalf("OtsuThresholdGPU() error = %v", err)
	}
	if got != 42 {
		t.Errorf("OtsuThresholdGPU() = %v, want 42", got)
	}
}
