package kernel

import (
	"context"
	"testing"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

func TestOtsuThresholdConstantVolume(t *testing.T) {
	data := make([]byte, 8)
	for i := range data {
		data[i] = 42
	}
	ts, err := tensor.FromHost(data, [3]int{2, 2, 2}, tensor.U8, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}
	got, err := OtsuThreshold(context.Background(), ts, 256)
	if err != nil {
		t.Fatalf("OtsuThreshold() error = %v", err)
	}
	if got != 42 {
		t.Errorf("OtsuThreshold() = %v, want 42", got)
	}
}

func TestOtsuThresholdBimodal(t *testing.T) {
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
	got, err := OtsuThreshold(context.Background(), ts, 256)
	if err != nil {
		t.Fatalf("OtsuThreshold() error = %v", err)
	}
	if got < 10 || got > 200 {
		t.Errorf("OtsuThreshold() = %v, want between 10 and 200", got)
	}
}
