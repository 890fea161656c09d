package serverapp

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"socialgraph/internal/config"
	"socialgraph/internal/dbexec"
	"socialgraph/internal/engine"
	"socialgraph/internal/schema"
	"socialgraph/internal/store"
)

// Init initializes all runtime resources. It is idempotent.
func (a *App) Init(ctx context.Context) error {
	a.stateMu.Lock()
	if a.initialized {
		a.stateMu.Unlock()
		return nil
	}
	a.stateMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	teardown := teardownList{}
	success := false
	defer func() {
		if !success {
			teardown.unwind(context.Background(), a.logger)
		}
	}()

	if a.loggerProvider != nil {
		teardown.add("logger provider", func(shutdownCtx context.Context) error {
			return a.loggerProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	meterProvider, graphqlMetrics, err := initMetrics(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry metrics: %w", err)
	}
	if meterProvider != nil {
		teardown.add("meter provider", func(shutdownCtx context.Context) error {
			return meterProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	tracerProvider, err := initTracing(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry tracing: %w", err)
	}
	if tracerProvider != nil {
		teardown.add("tracer provider", func(shutdownCtx context.Context) error {
			return tracerProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	var db *sql.DB
	var dbStatsReg interface{ Unregister() error }
	var st store.Store

	switch a.cfg.Database.Driver {
	case config.DriverMemory:
		a.logger.Info("using in-memory store")
		st = store.NewMemory()
	case config.DriverMySQL, "":
		a.logger.Info("connecting to MySQL",
			slog.String("host", a.cfg.Database.Host),
			slog.Int("port", a.cfg.Database.Port),
			slog.String("database", a.cfg.Database.Database),
		)

		db, dbStatsReg, err = connectDB(a.cfg, a.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		teardown.add("database", func(_ context.Context) error {
			if dbStatsReg != nil {
				if err := dbStatsReg.Unregister(); err != nil {
					a.logger.Warn("failed to unregister DB stats metrics", slog.String("error", err.Error()))
				}
			}
			return db.Close()
		})

		if err := configureDatabase(ctx, a.cfg, a.logger, db); err != nil {
			return fmt.Errorf("failed to verify database connection: %w", err)
		}

		st = store.NewSQL(dbexec.NewStandardExecutor(db))
	default:
		return fmt.Errorf("unknown database driver %q", a.cfg.Database.Driver)
	}

	s, err := schema.Build(schema.Dependencies{Store: st})
	if err != nil {
		return fmt.Errorf("failed to build GraphQL schema: %w", err)
	}

	eng := engine.New(s, st, engine.Options{
		MaxDepth: a.cfg.Server.GraphQLMaxDepth,
		Metrics:  graphqlMetrics,
		Logger:   a.logger.Logger,
	})

	graphqlHandler := buildGraphQLHandler(a.logger, eng)
	mux := buildRouter(a.cfg, a.logger, db, &s, graphqlHandler, meterProvider)
	handler := wrapHTTPHandler(a.cfg, a.logger, mux)

	serverAddr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	srv := buildServer(a.cfg, handler, serverAddr)
	teardown.add("HTTP server", func(shutdownCtx context.Context) error {
		return srv.Shutdown(shutdownCtx)
	})

	a.stateMu.Lock()
	a.meterProvider = meterProvider
	a.graphqlMetrics = graphqlMetrics
	a.tracerProvider = tracerProvider
	a.db = db
	a.dbStatsReg = dbStatsReg
	a.store = st
	a.engine = eng
	a.mux = mux
	a.handler = handler
	a.serverAddr = serverAddr
	a.srv = srv
	a.teardown = teardown
	a.initialized = true
	a.stateMu.Unlock()

	success = true
	return nil
}
