package planner

// TileView describes one tile's non-overlapping core region plus the halo
// needed around it to evaluate a kernel with Halo half-width correctly at
// the core's boundary. Cores never overlap between tiles; padded regions
// (core expanded by Halo, clamped to the volume) do, by design, on shared
// voxels.
type TileView struct {
	VolumeShape [3]int
	CoreOrigin  [3]int
	CoreShape   [3]int
	Halo        int
}

// PaddedOrigin returns the origin of this tile's halo-expanded region,
// clamped to the volume's bounds.
func (t TileView) PaddedOrigin() [3]int {
	var out [3]int
	for i := 0; i < 3; i++ {
		out[i] = t.CoreOrigin[i] - t.Halo
		if out[i] < 0 {
			out[i] = 0
		}
	}
	return out
}

// PaddedShape returns the shape of this tile's halo-expanded region,
// clamped to the volume's bounds.
func (t TileView) PaddedShape() [3]int {
	origin := t.PaddedOrigin()
	var out [3]int
	for i := 0; i < 3; i++ {
		end := t.CoreOrigin[i] + t.CoreShape[i] + t.Halo
		if end > t.VolumeShape[i] {
			end = t.VolumeShape[i]
		}
		out[i] = end - origin[i]
	}
	return out
}

// CoreOffsetInPadded returns the core region's origin relative to the
// padded region's origin, i.e. where to crop the padded tile's kernel
// output back down to its core.
func (t TileView) CoreOffsetInPadded() [3]int {
	padded := t.PaddedOrigin()
	var out [3]int
	for i := 0; i < 3; i++ {
		out[i] = t.CoreOrigin[i] - padded[i]
	}
	return out
}

// Plan is the planner's decision for one volume: either a single unsplit
// pass, or an ordered list of tiles to process independently.
type Plan struct {
	SinglePass bool
	Tiles      []TileView
}
