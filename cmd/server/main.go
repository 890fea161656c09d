package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"socialgraph/internal/config"
	"socialgraph/internal/serverapp"

	"github.com/spf13/pflag"
)

// Build metadata, injected with -ldflags "-X main.Version=... -X main.Commit=...".
var (
	Version = "dev"
	Commit  = "none"
)

func main() {
	if err := run(); err != nil {
		slog.Error("socialgraph exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	pflag.Bool("version", false, "Print version and exit")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if showVersion, _ := pflag.CommandLine.GetBool("version"); showVersion {
		fmt.Printf("socialgraph %s (commit %s)\n", Version, Commit)
		return nil
	}

	if cfg.Observability.ServiceVersion == "" {
		cfg.Observability.ServiceVersion = Version
	}

	if reportConfigIssues(cfg.Validate()) {
		return errors.New("configuration validation failed")
	}

	logger, loggerProvider, err := serverapp.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}

	app, err := serverapp.New(cfg, logger)
	if err != nil {
		if loggerProvider != nil {
			_ = loggerProvider.Shutdown(context.Background(), logger.Logger)
		}
		return err
	}
	app.AttachLoggerProvider(loggerProvider)

	if err := app.Init(context.Background()); err != nil {
		return err
	}

	logger.Info("socialgraph starting",
		slog.String("version", Version),
		slog.String("driver", cfg.Database.Driver),
		slog.String("environment", cfg.Observability.Environment),
	)

	if err := app.Start(); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = app.Shutdown(shutdownCtx)
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	waitErr := app.WaitForStop(stop)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	shutdownErr := app.Shutdown(shutdownCtx)

	if waitErr != nil {
		return waitErr
	}
	return shutdownErr
}

// reportConfigIssues logs validation output and reports whether any of it
// is fatal. Warnings alone do not stop startup.
func reportConfigIssues(result *config.ValidationResult) bool {
	for _, warn := range result.Warnings {
		slog.Warn("configuration warning",
			slog.String("field", warn.Field),
			slog.String("message", warn.Message),
			slog.String("hint", warn.Hint),
		)
	}
	for _, fail := range result.Errors {
		slog.Error("configuration error",
			slog.String("field", fail.Field),
			slog.String("message", fail.Message),
			slog.String("hint", fail.Hint),
		)
	}
	return result.HasErrors()
}
