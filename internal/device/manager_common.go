package device

import (
	"os"
	"strconv"
	"strings"

	"github.com/srieg/zstack-analyzer/devicecore"
)

// Manager owns the selected [devicecore.Adapter] for the process lifetime
// and answers the memory-budget questions the tile planner needs.
type Manager struct {
	adapter devicecore.Adapter
}

// defaultSafetyFactor is the fraction of the detected memory budget the
// planner is allowed to use when MEMORY_SAFETY_FACTOR is unset.
const defaultSafetyFactor = 0.5

func wantedBackend() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("DEFAULT_DEVICE")))
	if v == "" {
		return "auto"
	}
	return v
}

func newCPUManager(safety float64) *Manager {
	total := systemMemoryBytes()
	if total == 0 {
		total = 8 << 30 // 8 GiB conservative default when the probe is unsupported
	}
	desc := devicecore.DeviceDescriptor{
		Backend:          devicecore.BackendCPU,
		Name:             "cpu",
		TotalMemoryBytes: total,
		Safety:           safety,
		Unified:          true,
	}
	return &Manager{adapter: newCPUAdapter(desc)}
}

// Adapter returns the selected device adapter.
func (m *Manager) Adapter() devicecore.Adapter {
	return m.adapter
}

// Descriptor returns the selected adapter's descriptor.
func (m *Manager) Descriptor() devicecore.DeviceDescriptor {
	return m.adapter.Descriptor()
}

// MemoryBudget returns the number of bytes the planner may use, after
// applying the configured safety factor to the detected total.
func (m *Manager) MemoryBudget() uint64 {
	d := m.Descriptor()
	return uint64(float64(d.TotalMemoryBytes) * d.Safety)
}

// MaxVolumeVoxels returns the largest voxel count a single tile may hold
// given bytesPerVoxel, derived from MemoryBudget.
func (m *Manager) MaxVolumeVoxels(bytesPerVoxel int) uint64 {
	if bytesPerVoxel <= 0 {
		return 0
	}
	return m.MemoryBudget() / uint64(bytesPerVoxel)
}

// Close releases the underlying adapter's resources.
func (m *Manager) Close() error {
	return m.adapter.Close()
}

func safetyFactorFromEnv() float64 {
	raw := os.Getenv("MEMORY_SAFETY_FACTOR")
	if raw == "" {
		return defaultSafetyFactor
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 || v > 1 {
		return defaultSafetyFactor
	}
	return v
}
