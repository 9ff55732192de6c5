package async

import (
	"context"
	"time"

	"github.com/platinummonkey/backer/pkg/observability"
)

// SafeGo runs fn in a goroutine bounded by timeout. Panics are recovered
// and errors are logged as warnings on the parent context's logger, tagged
// with taskName. The returned channel closes when fn has returned.
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) <-chan struct{} {
	logger := observability.FromContext(parentCtx).WithField("task", taskName)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer observability.RecoverPanic(logger, taskName)

		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			logger.WithError(err).Warn("background task failed")
		}
	}()

	return done
}
