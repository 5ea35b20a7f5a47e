package planner

import (
	"os"
	"strconv"
)

// budgetFraction is the target ceiling on a tile's padded working set,
// relative to the caller's budget.
const budgetFraction = 0.8

// Plan decides whether shape (in Z,Y,X voxels) needs splitting to fit
// budget bytes of device working set, and if so returns the tile grid.
// elemSize is bytes per voxel; stageMultiplier accounts for a pipeline
// stage needing more than one live copy of a tile at once (e.g. an FFT's
// padded complex buffer). haloHint is the halo half-width the calling
// stage's kernel needs (its largest kernel radius).
func Plan(shape [3]int, elemSize int, stageMultiplier float64, budget int64, haloHint int) (Plan, error) {
	if wholeVolumeFits(shape, elemSize, stageMultiplier, budget) {
		return Plan{SinglePass: true}, nil
	}

	coreShape := hintedCoreShape(shape)
	for {
		tileBytes := paddedTileBytes(coreShape, haloHint, elemSize, stageMultiplier)
		if float64(tileBytes) <= budgetFraction*float64(budget) {
			break
		}
		if !shrink(&coreShape) {
			return Plan{}, &InfeasibleBudgetError{VolumeShape: shape, Budget: budget}
		}
	}

	return Plan{Tiles: buildGrid(shape, coreShape, haloHint)}, nil
}

func wholeVolumeFits(shape [3]int, elemSize int, stageMultiplier float64, budget int64) bool {
	total := float64(shape[0]) * float64(shape[1]) * float64(shape[2]) * float64(elemSize) * stageMultiplier
	return budget <= 0 || total <= budgetFraction*float64(budget)
}

func paddedTileBytes(coreShape [3]int, halo, elemSize int, stageMultiplier float64) int64 {
	var n float64 = 1
	for _, c := range coreShape {
		n *= float64(c + 2*halo)
	}
	return int64(n * float64(elemSize) * stageMultiplier)
}

// hintedCoreShape returns TILE_Z_HINT/Y_HINT/X_HINT env values where set
// and valid, clamped to shape, else shape itself (start unsplit).
func hintedCoreShape(shape [3]int) [3]int {
	core := shape
	if v, ok := envHint("TILE_Z_HINT"); ok {
		core[0] = clampHint(v, shape[0])
	}
	if v, ok := envHint("TILE_Y_HINT"); ok {
		core[1] = clampHint(v, shape[1])
	}
	if v, ok := envHint("TILE_X_HINT"); ok {
		core[2] = clampHint(v, shape[2])
	}
	return core
}

func clampHint(v, max int) int {
	if v < 1 {
		return 1
	}
	if v > max {
		return max
	}
	return v
}

func envHint(name string) (int, bool) {
	s := os.Getenv(name)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}

// shrink halves coreShape along the first axis (Z, then Y, then X) that is
// still larger than 1, reporting false once every axis is already 1 and no
// further reduction is possible.
func shrink(coreShape *[3]int) bool {
	for i := 0; i < 3; i++ {
		if coreShape[i] > 1 {
			coreShape[i] = (coreShape[i] + 1) / 2
			return true
		}
	}
	return false
}

// buildGrid lays out non-overlapping core tiles over shape in row-major
// (Z, then Y, then X) order, clamping edge tiles' core size to the volume
// boundary.
func buildGrid(shape, coreShape [3]int, halo int) []TileView {
	var counts [3]int
	for i := 0; i < 3; i++ {
		counts[i] = (shape[i] + coreShape[i] - 1) / coreShape[i]
	}

	tiles := make([]TileView, 0, counts[0]*counts[1]*counts[2])
	for tz := 0; tz < counts[0]; tz++ {
		for ty := 0; ty < counts[1]; ty++ {
			for tx := 0; tx < counts[2]; tx++ {
				origin := [3]int{tz * coreShape[0], ty * coreShape[1], tx * coreShape[2]}
				var core [3]int
				for i, o := range origin {
					remaining := shape[i] - o
					if remaining > coreShape[i] {
						remaining = coreShape[i]
					}
					core[i] = remaining
				}
				tiles = append(tiles, TileView{
					VolumeShape: shape,
					CoreOrigin:  origin,
					CoreShape:   core,
					Halo:        halo,
				})
			}
		}
	}
	return tiles
}
