// Package serverapp wires configuration, observability, storage, the
// GraphQL engine, and the HTTP server into one startable application.
package serverapp

import (
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"socialgraph/internal/config"
	"socialgraph/internal/engine"
	"socialgraph/internal/logging"
	"socialgraph/internal/observability"
	"socialgraph/internal/store"
)

// App owns runtime resources for the socialgraph server lifecycle.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	loggerProvider *observability.LoggerProvider

	meterProvider  *observability.MeterProvider
	graphqlMetrics *observability.GraphQLMetrics
	tracerProvider *observability.TracerProvider

	db         *sql.DB
	dbStatsReg interface{ Unregister() error }
	store      store.Store

	engine *engine.Engine

	mux     *http.ServeMux
	handler http.Handler

	serverAddr string
	srv        *http.Server

	teardown teardownList

	stateMu      sync.Mutex
	initialized  bool
	started      bool
	serverErrors chan error

	shutdownOnce sync.Once
}

// New creates an App lifecycle wrapper.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &App{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// AttachLoggerProvider registers an optional logger provider for shutdown cleanup.
func (a *App) AttachLoggerProvider(provider *observability.LoggerProvider) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.loggerProvider = provider
}

// Handler returns the fully wrapped HTTP handler. It requires Init to have
// completed and is mainly useful for in-process testing.
func (a *App) Handler() http.Handler {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.handler
}

// Engine returns the GraphQL engine built during Init.
func (a *App) Engine() *engine.Engine {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.engine
}
