package kernel

import (
	"context"
	"testing"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

func TestConnectedComponents3DTwoBlobs(t *testing.T) {
	// 1x1x4 line: voxels 0 and 3 on, voxels 1 and 2 off, giving two
	// separate single-voxel blobs.
	data := []byte{1, 0, 0, 1}
	ts, err := tensor.FromHost(data, [3]int{1, 1, 4}, tensor.U8, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}
	labels, count, err := ConnectedComponents3D(context.Background(), ts, 6)
	if err != nil {
		t.Fatalf("ConnectedComponents3D() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	got, _ := labels.ToHost(context.Background())
	// U16 little-endian: voxel 0 -> bytes[0:2], voxel 3 -> bytes[6:8]
	l0 := uint16(got[0]) | uint16(got[1])<<8
	l3 := uint16(got[6]) | uint16(got[7])<<8
	if l0 == 0 || l3 == 0 || l0 == l3 {
		t.Errorf("labels = %d, %d, want distinct nonzero labels", l0, l3)
	}
}

func TestConnectedComponents3DEmptyIsZeroComponents(t *testing.T) {
	data := make([]byte, 8)
	ts, err := tensor.FromHost(data, [3]int{2, 2, 2}, tensor.U8, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}
	_, count, err := ConnectedComponents3D(context.Background(), ts, 26)
	if err != nil {
		t.Fatalf("ConnectedComponents3D() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}
