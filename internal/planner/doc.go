// Package planner decides how a volume is split into tiles for device
// processing: either a single pass over the whole volume, or a grid of
// TileViews with non-overlapping cores and a kernel-half-width halo,
// sized to fit a per-tile working-set budget.
package planner
