package kernel

import (
	"context"
	"testing"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

func TestWatershed3DGrowsTwoMarkersToHalves(t *testing.T) {
	shape := [3]int{2, 2, 8}
	n := shape[0] * shape[1] * shape[2]

	image := make([]byte, n)
	markers := make([]byte, n)
	mask := make([]byte, n)
	for i := range mask {
		mask[i] = 1
	}
	idx := func(z, y, x int) int { return (z*shape[1]+y)*shape[2] + x }
	markers[idx(0, 0, 0)] = 1
	markers[idx(0, 0, 7)] = 2

	imgTs, err := tensor.FromHost(image, shape, tensor.U8, nil)
	if err != nil {
		t.Fatalf("FromHost(image) error = %v", err)
	}
	markTs, err := tensor.FromHost(markers, shape, tensor.U8, nil)
	if err != nil {
		t.Fatalf("FromHost(markers) error = %v", err)
	}
	maskTs, err := tensor.FromHost(mask, shape, tensor.U8, nil)
	if err != nil {
		t.Fatalf("FromHost(mask) error = %v", err)
	}

	labels, err := Watershed3D(context.Background(), imgTs, markTs, maskTs)
	if err != nil {
		t.Fatalf("Watershed3D() error = %v", err)
	}

	data, err := labels.ToHost(context.Background())
	if err != nil {
		t.Fatalf("ToHost() error = %v", err)
	}
	labelAt := func(z, y, x int) uint16 {
		i := idx(z, y, x)
		return uint16(data[i*2]) | uint16(data[i*2+1])<<8
	}
	near := labelAt(0, 0, 1)
	far := labelAt(0, 0, 6)
	if near != 1 {
		t.Errorf("label near marker 1 = %d, want 1", near)
	}
	if far != 2 {
		t.Errorf("label near marker 2 = %d, want 2", far)
	}
}

func TestWatershed3DRespectsMask(t *testing.T) {
	shape := [3]int{1, 1, 4}
	n := shape[0] * shape[1] * shape[2]

	image := make([]byte, n)
	markers := make([]byte, n)
	mask := make([]byte, n)
	markers[0] = 1
	mask[0] = 1
	mask[1] = 1
	// mask[2], mask[3] stay 0: unreachable.

	imgTs, _ := tensor.FromHost(image, shape, tensor.U8, nil)
	markTs, _ := tensor.FromHost(markers, shape, tensor.U8, nil)
	maskTs, _ := tensor.FromHost(mask, shape, tensor.U8, nil)

	labels, err := Watershed3D(context.Background(), imgTs, markTs, maskTs)
	if err != nil {
		t.Fatalf("Watershed3D() error = %v", err)
	}
	data, err := labels.ToHost(context.Background())
	if err != nil {
		t.Fatalf("ToHost() error = %v", err)
	}
	if data[2*2] != 0 || data[2*2+1] != 0 {
		t.Errorf("label outside mask = %d, want 0", uint16(data[2*2])|uint16(data[2*2+1])<<8)
	}
}
