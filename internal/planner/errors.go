package planner

import "fmt"

// InfeasibleBudgetError is returned when no split (down to single-voxel
// cores on every axis) brings a tile's working set under budget.
type InfeasibleBudgetError struct {
	VolumeShape [3]int
	Budget      int64
}

func (e *InfeasibleBudgetError) Error() string {
	return fmt.Sprintf("planner: no tile split of shape %v fits budget %d bytes", e.VolumeShape, e.Budget)
}
