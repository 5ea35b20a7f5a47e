package kernel

import (
	"context"
	"testing"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

func TestGaussianKernel1D(t *testing.T) {
	tests := []struct {
		name  string
		sigma float32
		want  int
	}{
		{"identity", 0, 1},
		{"sigma 1", 1, 7},
		{"sigma 2", 2, 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := gaussianKernel1D(tt.sigma)
			if len(k) != tt.want {
				t.Errorf("len = %d, want %d", len(k), tt.want)
			}
			var sum float32
			for _, v := range k {
				sum += v
			}
			if sum < 0.99 || sum > 1.01 {
				t.Errorf("kernel sum = %v, want ~1", sum)
			}
		})
	}
}

func TestGaussian3DPreservesConstant(t *testing.T) {
	data := make([]byte, 4*4*4)
	for i := range data {
		data[i] = 100
	}
	ts, err := tensor.FromHost(data, [3]int{4, 4, 4}, tensor.U8, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}

	out, err := Gaussian3D(context.Background(), ts, [3]float32{1, 1, 1})
	if err != nil {
		t.Fatalf("Gaussian3D() error = %v", err)
	}
	got, _ := out.ToHost(context.Background())
	for i, v := range got {
		if v != 100 {
			t.Errorf("data[%d] = %d, want 100 (constant volume unaffected by blur)", i, v)
		}
	}
}

func TestGaussian3DEmptyVolume(t *testing.T) {
	ts := &tensor.Tensor{}
	if _, err := Gaussian3D(context.Background(), ts, [3]float32{1, 1, 1}); err != ErrEmptyVolume {
		t.Errorf("Gaussian3D() on empty tensor error = %v, want ErrEmptyVolume", err)
	}
}

func TestReflect101(t *testing.T) {
	tests := []struct {
		i, n, want int
	}{
		{0, 5, 0},
		{4, 5, 4},
		{-1, 5, 1},
		{5, 5, 3},
		{-2, 5, 2},
		{0, 1, 0},
	}
	for _, tt := range tests {
		if got := reflect101(tt.i, tt.n); got != tt.want {
			t.Errorf("reflect101(%d, %d) = %d, want %d", tt.i, tt.n, got, tt.want)
		}
	}
}
