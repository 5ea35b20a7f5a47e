package deconv

import (
	"context"
	"math"
	"testing"
)

func TestSynthesizePSFUnitSum(t *testing.T) {
	psf, err := SynthesizePSF(1.4, 510, [3]float64{300, 100, 100}, [3]int{9, 15, 15})
	if err != nil {
		t.Fatalf("SynthesizePSF: %v", err)
	}
	grid, _, err := toFloat32Grid(context.Background(), psf)
	if err != nil {
		t.Fatalf("toFloat32Grid: %v", err)
	}
	var sum float64
	for _, v := range grid {
		sum += float64(v)
	}
	if math.Abs(sum-1) > 1e-4 {
		t.Errorf("psf sum = %v, want ~1", sum)
	}
}

func TestSynthesizePSFPeakAtCenter(t *testing.T) {
	shape := [3]int{7, 11, 11}
	psf, err := SynthesizePSF(1.4, 510, [3]float64{300, 100, 100}, shape)
	if err != nil {
		t.Fatalf("SynthesizePSF: %v", err)
	}
	grid, _, err := toFloat32Grid(context.Background(), psf)
	if err != nil {
		t.Fatalf("toFloat32Grid: %v", err)
	}
	centerIdx := ((shape[0]/2)*shape[1]+shape[1]/2)*shape[2] + shape[2]/2
	peak := grid[centerIdx]
	for i, v := range grid {
		if i != centerIdx && v > peak {
			t.Fatalf("voxel %d (%v) exceeds center voxel (%v)", i, v, peak)
		}
	}
}
