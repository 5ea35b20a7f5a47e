package planner

import "testing"

func TestPlanSinglePassWhenSmall(t *testing.T) {
	plan, err := Plan([3]int{50, 512, 512}, 2, 1.0, 1<<34, 2)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !plan.SinglePass {
		t.Errorf("SinglePass = false, want true for a volume well under budget")
	}
}

func TestPlanSplitsWhenOverBudget(t *testing.T) {
	shape := [3]int{200, 2048, 2048}
	budget := int64(512 << 20) // 512 MiB
	plan, err := Plan(shape, 2, 1.0, budget, 2)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.SinglePass {
		t.Fatalf("SinglePass = true, want a split plan")
	}
	if len(plan.Tiles) == 0 {
		t.Fatalf("no tiles returned")
	}

	covered := map[[3]int]bool{}
	for _, tile := range plan.Tiles {
		paddedBytes := int64(1)
		for _, c := range tile.PaddedShape() {
			paddedBytes *= int64(c)
		}
		paddedBytes *= 2
		if float64(paddedBytes) > budgetFraction*float64(budget) {
			t.Errorf("tile padded size %d exceeds budget fraction", paddedBytes)
		}
		covered[tile.CoreOrigin] = true
	}

	// Cores must tile the whole volume with no gaps: their voxel counts
	// must sum to the volume's voxel count.
	var totalVoxels int64
	for _, tile := range plan.Tiles {
		v := int64(1)
		for _, c := range tile.CoreShape {
			v *= int64(c)
		}
		totalVoxels += v
	}
	want := int64(shape[0]) * int64(shape[1]) * int64(shape[2])
	if totalVoxels != want {
		t.Errorf("sum of core voxel counts = %d, want %d (cores must partition the volume exactly)", totalVoxels, want)
	}
}

func TestPlanInfeasibleBudget(t *testing.T) {
	_, err := Plan([3]int{10, 10, 10}, 1024, 1.0, 1, 2)
	if err == nil {
		t.Fatalf("expected InfeasibleBudgetError")
	}
	if _, ok := err.(*InfeasibleBudgetError); !ok {
		t.Errorf("err = %T, want *InfeasibleBudgetError", err)
	}
}

func TestTileViewPaddingClampsToVolume(t *testing.T) {
	tile := TileView{
		VolumeShape: [3]int{10, 10, 10},
		CoreOrigin:  [3]int{0, 0, 8},
		CoreShape:   [3]int{10, 10, 2},
		Halo:        3,
	}
	origin := tile.PaddedOrigin()
	shape := tile.PaddedShape()
	if origin != [3]int{0, 0, 5} {
		t.Errorf("PaddedOrigin = %v, want {0,0,5}", origin)
	}
	if shape[2] != 5 { // 10 - 5
		t.Errorf("PaddedShape X = %d, want 5 (clamped at volume edge)", shape[2])
	}
}
