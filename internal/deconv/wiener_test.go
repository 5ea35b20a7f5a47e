package deconv

import (
	"context"
	"testing"
)

func TestWienerIdentityPSFApproximatesInput(t *testing.T) {
	shape := [3]int{4, 5, 5}
	grid := make([]float32, shape[0]*shape[1]*shape[2])
	for i := range grid {
		grid[i] = float32(i%7) + 1
	}
	image, err := fromFloat32Grid(grid, shape)
	if err != nil {
		t.Fatalf("fromFloat32Grid: %v", err)
	}
	psf := deltaPSF(t, [3]int{3, 3, 3})

	out, err := Wiener(context.Background(), image, psf, 1e-4)
	if err != nil {
		t.Fatalf("Wiener: %v", err)
	}
	outGrid, _, err := toFloat32Grid(context.Background(), out)
	if err != nil {
		t.Fatalf("toFloat32Grid: %v", err)
	}
	for i, v := range outGrid {
		want := grid[i]
		if diff := v - want; diff > 0.5 || diff < -0.5 {
			t.Errorf("voxel %d = %v, want near %v", i, v, want)
		}
	}
}
