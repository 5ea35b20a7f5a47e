package segmentation

import (
	"context"
	"testing"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

func TestDetectBlobsLoGRequiresTwoScales(t *testing.T) {
	data := make([]byte, 8)
	ts, err := tensor.FromHost(data, [3]int{2, 2, 2}, tensor.U8, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}
	blobs, err := DetectBlobsLoG(context.Background(), ts, []float32{1.0})
	if err != nil {
		t.Fatalf("DetectBlobsLoG() error = %v", err)
	}
	if blobs != nil {
		t.Errorf("DetectBlobsLoG() with one scale = %v, want nil", blobs)
	}
}

func TestDetectBlobsLoGFindsBrightSpot(t *testing.T) {
	shape := [3]int{9, 9, 9}
	data := make([]byte, shape[0]*shape[1]*shape[2])
	cz, cy, cx := 4, 4, 4
	idx := func(z, y, x int) int { return (z*shape[1]+y)*shape[2] + x }
	data[idx(cz, cy, cx)] = 255

	ts, err := tensor.FromHost(data, shape, tensor.U8, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}
	blobs, err := DetectBlobsLoG(context.Background(), ts, []float32{0.8, 1.6, 3.2})
	if err != nil {
		t.Fatalf("DetectBlobsLoG() error = %v", err)
	}
	if len(blobs) == 0 {
		t.Fatal("DetectBlobsLoG() found no blobs, want at least one near the bright voxel")
	}
	var nearCenter bool
	for _, b := range blobs {
		if abs(b.Z-cz) <= 2 && abs(b.Y-cy) <= 2 && abs(b.X-cx) <= 2 {
			nearCenter = true
			break
		}
	}
	if !nearCenter {
		t.Errorf("DetectBlobsLoG() blobs = %+v, want one near (%d,%d,%d)", blobs, cz, cy, cx)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
