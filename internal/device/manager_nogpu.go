//go:build nogpu

package device

// Detect always selects the CPU adapter in nogpu builds.
func Detect() (*Manager, error) {
	return newCPUManager(safetyFactorFromEnv()), nil
}
