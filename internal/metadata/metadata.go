package metadata

import (
	"fmt"
	"time"
)

// Channel describes one acquisition channel.
type Channel struct {
	Name          string
	ExcitationNM  float64
	EmissionNM    float64
	Fluorophore   string
	ColorHint     string
}

// Objective describes the imaging objective used.
type Objective struct {
	Magnification   float64
	NA              float64
	Immersion       string
	WorkingDistance float64 // millimeters
}

// Metadata is the normalized acquisition record every loader produces,
// regardless of source container format.
type Metadata struct {
	// Dimensions, voxel counts along each axis. SX, SY, SZ, SC, ST must all
	// be >= 1.
	SX, SY, SZ, SC, ST int

	BitsPerSample int

	// VoxelSizeUM is the physical voxel size in micrometers (Z, Y, X); a
	// zero entry means that axis's physical size is unknown.
	VoxelSizeUM [3]float64

	Channels  []Channel
	Objective Objective

	Microscope string
	Acquired   time.Time

	// Raw carries the format's vendor-specific fields verbatim, keyed by a
	// loader-chosen name, for callers that need more than the normalized
	// fields expose.
	Raw map[string]string
}

// Validate checks the invariants spec.md requires of every Metadata value:
// dimension counts are at least 1, and any populated physical size is
// positive and finite.
func (m Metadata) Validate() error {
	if m.SX < 1 || m.SY < 1 || m.SZ < 1 || m.SC < 1 || m.ST < 1 {
		return fmt.Errorf("metadata: dimensions must all be >= 1, got sx=%d sy=%d sz=%d sc=%d st=%d",
			m.SX, m.SY, m.SZ, m.SC, m.ST)
	}
	for i, v := range m.VoxelSizeUM {
		if v != 0 && (v < 0 || v-v != 0) { // v-v is NaN for NaN and ±Inf, 0 otherwise
			return fmt.Errorf("metadata: voxel size axis %d is not positive and finite: %v", i, v)
		}
	}
	return nil
}
