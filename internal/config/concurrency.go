package config

import (
	"os"
	"strconv"

	"github.com/shirou/gopsutil/v3/cpu"
)

// DefaultConcurrency returns CPU-count × 2, the Scheduler's default
// maxConcurrent, unless CLAUDIOMIRO_CONCURRENCY overrides it (preserved
// literally as a protocol-compatibility detail of the on-disk/env surface).
// Falls back to 2×4 if CPU count cannot be determined.
func DefaultConcurrency() int {
	if raw := os.Getenv("CLAUDIOMIRO_CONCURRENCY"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}

	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		n = 4
	}
	return n * 2
}
