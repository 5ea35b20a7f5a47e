package device

import (
	"bytes"
	"os"
	"runtime"
	"strconv"
)

const (
	procMemInfoPath = "/proc/meminfo"
	memTotalPrefix  = "MemTotal:"
	memTotalUnitKiB = "kB"
	kibibyte        = uint64(1024)
	minMemInfoFields = 2
)

// systemMemoryBytes returns the host's total physical memory, used as the
// CPU adapter's (and any integrated-GPU adapter's) unified memory budget.
// Returns 0 if the platform has no supported probe, in which case callers
// fall back to a conservative fixed budget.
func systemMemoryBytes() uint64 {
	if runtime.GOOS != "linux" {
		return 0
	}

	data, err := os.ReadFile(procMemInfoPath)
	if err != nil {
		return 0
	}
	return parseMemTotalBytes(data)
}

func parseMemTotalBytes(memInfo []byte) uint64 {
	for _, line := range bytes.Split(memInfo, []byte{'\n'}) {
		if !bytes.HasPrefix(line, []byte(memTotalPrefix)) {
			continue
		}

		fields := bytes.Fields(line)
		if len(fields) < minMemInfoFields {
			return 0
		}

		total, err := strconv.ParseUint(string(fields[1]), 10, 64)
		if err != nil {
			return 0
		}

		unit := memTotalUnitKiB
		if len(fields) > minMemInfoFields {
			unit = string(fields[2])
		}
		return scaleBytesByUnit(total, unit)
	}
	return 0
}

func scaleBytesByUnit(value uint64, unit string) uint64 {
	switch unit {
	case memTotalUnitKiB:
		return value * kibibyte
	default:
		return value
	}
}
