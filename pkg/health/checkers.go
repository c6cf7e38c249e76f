package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than threshold goroutines are running.
// Use it as a liveness check to catch leaks.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// HeapAllocCheck fails when the live heap exceeds limit bytes.
func HeapAllocCheck(limit uint64) CheckFunc {
	return func(_ context.Context) error {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		if ms.HeapAlloc > limit {
			return errors.Errorf("heap alloc %d exceeds limit %d", ms.HeapAlloc, limit)
		}
		return nil
	}
}
