package serverapp

import (
	"context"
	"log/slog"

	"socialgraph/internal/logging"
)

// teardownList collects release hooks as resources come up during Init.
// unwind runs them newest-first so dependents stop before what they use:
// the HTTP server drains before the database closes, and the logger
// provider flushes last.
type teardownList struct {
	steps []teardownStep
}

type teardownStep struct {
	resource string
	release  func(context.Context) error
}

func (l *teardownList) add(resource string, release func(context.Context) error) {
	l.steps = append(l.steps, teardownStep{resource: resource, release: release})
}

func (l *teardownList) unwind(ctx context.Context, logger *logging.Logger) {
	for i := len(l.steps) - 1; i >= 0; i-- {
		step := l.steps[i]
		if logger != nil {
			logger.Debug("releasing resource", slog.String("resource", step.resource))
		}
		if err := step.release(ctx); err != nil && logger != nil {
			logger.Warn("resource release failed",
				slog.String("resource", step.resource),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Shutdown releases everything Init acquired. Repeat calls are no-ops.
func (a *App) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a.shutdownOnce.Do(func() {
		a.stateMu.Lock()
		steps := a.teardown
		a.started = false
		a.stateMu.Unlock()

		steps.unwind(ctx, a.logger)
		if a.logger != nil {
			a.logger.Info("server stopped")
		}
	})

	return nil
}
