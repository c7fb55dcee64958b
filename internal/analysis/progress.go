package analysis

import (
	"context"

	"github.com/linnemanlabs/go-core/log"
)

// ProgressFunc receives fractional progress in [0,1] plus a status
// message. Callbacks run on the pipeline goroutine; a panicking
// callback is recovered and logged, never aborting the run.
type ProgressFunc func(fraction float64, message string)

func emitProgress(ctx context.Context, logger log.Logger, fn ProgressFunc, fraction float64, message string) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn(ctx, "progress callback panicked", "panic", r, "fraction", fraction)
		}
	}()
	fn(fraction, message)
}
