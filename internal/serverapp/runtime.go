package serverapp

import (
	"errors"
	"log/slog"
	"os"
)

// Start launches the HTTP server goroutine. Failures after startup surface
// through WaitForStop. Init must have completed.
func (a *App) Start() error {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()

	if !a.initialized {
		return errors.New("app is not initialized")
	}
	if a.started {
		return nil
	}

	a.serverErrors = startServer(a.cfg, a.logger, a.srv, a.serverAddr)
	a.started = true
	return nil
}

// WaitForStop blocks until a shutdown signal arrives or the HTTP server
// fails. A signal is the normal way down and returns nil.
func (a *App) WaitForStop(stop <-chan os.Signal) error {
	a.stateMu.Lock()
	serverErrors := a.serverErrors
	a.stateMu.Unlock()

	if serverErrors == nil {
		return errors.New("app is not started")
	}

	select {
	case err := <-serverErrors:
		if err == nil {
			return errors.New("http server stopped unexpectedly")
		}
		return err
	case sig := <-stop:
		if a.logger != nil {
			a.logger.Info("shutdown signal received",
				slog.String("signal", sig.String()),
				slog.String("service", a.cfg.Observability.ServiceName),
			)
		}
		return nil
	}
}
