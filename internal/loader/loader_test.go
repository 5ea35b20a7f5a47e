package loader

import (
	"context"
	"testing"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

func TestFormatFromExtension(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"stack.tif", FormatTIFF},
		{"stack.tiff", FormatTIFF},
		{"stack.ome.tif", FormatOMETIFF},
		{"stack.ome.tiff", FormatOMETIFF},
		{"sample.czi", FormatCZI},
		{"sample.nd2", FormatND2},
		{"sample.lif", FormatLIF},
		{"sample.lsm", FormatLSM},
		{"sample.unknown", FormatUnknown},
	}
	for _, tt := range tests {
		if got := formatFromExtension(tt.path); got != tt.want {
			t.Errorf("formatFromExtension(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestMagicByteFormat(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   Format
	}{
		{"little-endian classic TIFF", []byte{'I', 'I', 42, 0}, FormatTIFF},
		{"big-endian classic TIFF", []byte{'M', 'M', 0, 42}, FormatTIFF},
		{"little-endian BigTIFF", []byte{'I', 'I', 0x2B, 0}, FormatTIFF},
		{"CZI", []byte("ZISRAWFILE"), FormatCZI},
		{"LIF", []byte{0x0C, 0, 0, 0}, FormatLIF},
		{"ND2", []byte{0, 0, 0, 0, 'N', 'D', '2', ' '}, FormatND2},
		{"garbage", []byte{1, 2, 3, 4}, FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := magicByteFormat(tt.header); got != tt.want {
				t.Errorf("magicByteFormat(%v) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestShouldUseLazy(t *testing.T) {
	tests := []struct {
		name                            string
		sx, sy, sz, sc, bytesPerSample  int
		budget                          int64
		want                            bool
	}{
		{"small volume, no budget", 512, 512, 50, 1, 2, 0, false},
		{"exceeds 1GiB absolute", 4096, 4096, 200, 2, 2, 0, true},
		{"exceeds half of a small budget", 512, 512, 50, 1, 2, 10_000_000, true},
		{"within half of a generous budget", 512, 512, 50, 1, 2, 1 << 34, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shouldUseLazy(tt.sx, tt.sy, tt.sz, tt.sc, tt.bytesPerSample, tt.budget)
			if got != tt.want {
				t.Errorf("shouldUseLazy(...) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChunkedViewRowMajorIteration(t *testing.T) {
	var seen [][3]int
	view := NewChunkedView([3]int{4, 4, 4}, [3]int{2, 2, 2}, func(_ context.Context, origin, shape [3]int) (*tensor.Tensor, error) {
		seen = append(seen, origin)
		return nil, nil
	})

	cursor := view.Cursor()
	ctx := context.Background()
	count := 0
	for {
		_, _, ok, err := cursor.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		count++
	}

	want := 8 // 2x2x2 chunk grid over a 4x4x4 volume
	if count != want {
		t.Fatalf("chunk count = %d, want %d", count, want)
	}
	if len(seen) != want {
		t.Fatalf("materialized %d chunks, want %d", len(seen), want)
	}
	if seen[0] != [3]int{0, 0, 0} {
		t.Errorf("first chunk origin = %v, want {0,0,0}", seen[0])
	}
	if seen[1] != [3]int{0, 0, 2} {
		t.Errorf("second chunk origin = %v, want {0,0,2} (row-major: X varies fastest)", seen[1])
	}
	if seen[len(seen)-1] != [3]int{2, 2, 2} {
		t.Errorf("last chunk origin = %v, want {2,2,2}", seen[len(seen)-1])
	}
}

func TestChunkedViewClampedEdgeShape(t *testing.T) {
	view := NewChunkedView([3]int{5, 5, 5}, [3]int{2, 2, 2}, nil)
	shape := view.ChunkShapeAt(2, 2, 2) // last chunk along each axis: origin 4, only 1 voxel remains
	if shape != [3]int{1, 1, 1} {
		t.Errorf("edge chunk shape = %v, want {1,1,1}", shape)
	}
}
