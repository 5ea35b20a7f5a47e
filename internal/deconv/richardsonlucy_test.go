package deconv

import (
	"context"
	"testing"

	"github.com/srieg/zstack-analyzer/internal/tensor"
)

func deltaPSF(t *testing.T, shape [3]int) *tensor.Tensor {
	t.Helper()
	grid := make([]float32, shape[0]*shape[1]*shape[2])
	center := ((shape[0]/2)*shape[1]+shape[1]/2)*shape[2] + shape[2]/2
	grid[center] = 1
	out, err := fromFloat32Grid(grid, shape)
	if err != nil {
		t.Fatalf("fromFloat32Grid: %v", err)
	}
	return out
}

func TestRichardsonLucyIdentityPSFIsStable(t *testing.T) {
	shape := [3]int{4, 6, 6}
	grid := make([]float32, shape[0]*shape[1]*shape[2])
	for i := range grid {
		grid[i] = float32(i%5) + 1
	}
	image, err := fromFloat32Grid(grid, shape)
	if err != nil {
		t.Fatalf("fromFloat32Grid: %v", err)
	}
	psf := deltaPSF(t, [3]int{3, 3, 3})

	out, _, err := RichardsonLucy(context.Background(), image, psf, RLParams{Iterations: 5})
	if err != nil {
		t.Fatalf("RichardsonLucy: %v", err)
	}

	outGrid, _, err := toFloat32Grid(context.Background(), out)
	if err != nil {
		t.Fatalf("toFloat32Grid: %v", err)
	}
	for i, v := range outGrid {
		if v < 0 {
			t.Fatalf("voxel %d negative: %v", i, v)
		}
		want := grid[i]
		if diff := v - want; diff > 0.5 || diff < -0.5 {
			t.Errorf("voxel %d = %v, want near %v", i, v, want)
		}
	}
}

func TestRichardsonLucyNonNegative(t *testing.T) {
	shape := [3]int{3, 4, 4}
	grid := make([]float32, shape[0]*shape[1]*shape[2])
	grid[0] = 10
	image, err := fromFloat32Grid(grid, shape)
	if err != nil {
		t.Fatalf("fromFloat32Grid: %v", err)
	}
	psf := deltaPSF(t, [3]int{3, 3, 3})

	out, relChange, err := RichardsonLucy(context.Background(), image, psf, RLParams{Iterations: 10, LambdaTV: 0.01})
	if err != nil {
		t.Fatalf("RichardsonLucy: %v", err)
	}
	if relChange < 0 {
		t.Errorf("finalRelChange = %v, want >= 0", relChange)
	}
	outGrid, _, err := toFloat32Grid(context.Background(), out)
	if err != nil {
		t.Fatalf("toFloat32Grid: %v", err)
	}
	for i, v := range outGrid {
		if v < 0 {
			t.Fatalf("voxel %d negative: %v", i, v)
		}
	}
}
