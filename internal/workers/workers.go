package workers

import (
	"os"
	"runtime"
	"strconv"
)

// OverrideEnv names the environment variable that pins the worker count.
const OverrideEnv = "TRANSFORM_WORKERS"

// Count returns the number of workers for a task with the given CPU
// multiplier, capped at limit (0 means uncapped). It sizes from GOMAXPROCS,
// which follows container CPU limits, and honours TRANSFORM_WORKERS.
func Count(multiplier float64, limit int) int {
	if n, ok := override(); ok {
		return capAt(n, limit)
	}

	n := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if n < 1 {
		n = 1
	}
	return capAt(n, limit)
}

func override() (int, bool) {
	raw := os.Getenv(OverrideEnv)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

// ForCPU sizes pools for decode/resize/encode work (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO sizes pools that mostly wait on the provider or disk (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}
