package serverapp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialgraph/internal/config"
	"socialgraph/internal/logging"
)

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{
			Driver: config.DriverMemory,
		},
		Server: config.ServerConfig{
			Port:            8080,
			GraphQLMaxDepth: 5,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Observability: config.ObservabilityConfig{
			ServiceName: "socialgraph-test",
			Environment: "development",
			Logging:     config.LoggingConfig{Level: "error", Format: "json"},
		},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	return newTestAppWithConfig(t, testConfig())
}

func newTestAppWithConfig(t *testing.T, cfg *config.Config) *App {
	t.Helper()

	logger := logging.NewLogger(logging.Config{Level: "error", Format: "json", Output: &bytes.Buffer{}})
	app, err := New(cfg, logger)
	require.NoError(t, err)
	require.NoError(t, app.Init(context.Background()))
	t.Cleanup(func() {
		_ = app.Shutdown(context.Background())
	})
	return app
}

func postGraphQL(t *testing.T, app *App, query string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	payload, err := json.Marshal(map[string]string{"query": query})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestAppLifecycle(t *testing.T) {
	t.Run("init with the memory driver", func(t *testing.T) {
		app := newTestApp(t)
		assert.NotNil(t, app.Handler())
		assert.NotNil(t, app.Engine())
		assert.Equal(t, 5, app.Engine().MaxDepth())
	})

	t.Run("init is idempotent", func(t *testing.T) {
		app := newTestApp(t)
		require.NoError(t, app.Init(context.Background()))
	})

	t.Run("start requires init", func(t *testing.T) {
		logger := logging.NewLogger(logging.Config{Level: "error", Format: "json", Output: &bytes.Buffer{}})
		app, err := New(testConfig(), logger)
		require.NoError(t, err)

		assert.ErrorContains(t, app.Start(), "not initialized")
	})

	t.Run("wait before start is an error", func(t *testing.T) {
		app := newTestApp(t)
		assert.ErrorContains(t, app.WaitForStop(nil), "not started")
	})

	t.Run("wait returns on a shutdown signal", func(t *testing.T) {
		cfg := testConfig()
		cfg.Server.Port = 0 // ephemeral port, the listener itself is incidental
		app := newTestAppWithConfig(t, cfg)
		require.NoError(t, app.Start())
		require.NoError(t, app.Start()) // starting twice is a no-op

		stop := make(chan os.Signal, 1)
		stop <- syscall.SIGTERM
		assert.NoError(t, app.WaitForStop(stop))
	})

	t.Run("unknown driver fails init", func(t *testing.T) {
		cfg := testConfig()
		cfg.Database.Driver = "sqlite"
		logger := logging.NewLogger(logging.Config{Level: "error", Format: "json", Output: &bytes.Buffer{}})
		app, err := New(cfg, logger)
		require.NoError(t, err)

		assert.ErrorContains(t, app.Init(context.Background()), "unknown database driver")
	})

	t.Run("shutdown is safe to call twice", func(t *testing.T) {
		app := newTestApp(t)
		require.NoError(t, app.Shutdown(context.Background()))
		require.NoError(t, app.Shutdown(context.Background()))
	})
}

func TestGraphQLEndpoint(t *testing.T) {
	t.Run("mutation then query round trip", func(t *testing.T) {
		app := newTestApp(t)

		rec, body := postGraphQL(t, app,
			`mutation { createUser(dto: {name: "Ada", balance: 10.5}) { id name balance } }`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Nil(t, body["errors"])

		created := body["data"].(map[string]interface{})["createUser"].(map[string]interface{})
		assert.Equal(t, "Ada", created["name"])
		assert.NotEmpty(t, created["id"])

		rec, body = postGraphQL(t, app, `{ users { id name } }`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Nil(t, body["errors"])

		users := body["data"].(map[string]interface{})["users"].([]interface{})
		require.Len(t, users, 1)
		assert.Equal(t, "Ada", users[0].(map[string]interface{})["name"])
	})

	t.Run("validation errors come back without data", func(t *testing.T) {
		app := newTestApp(t)

		rec, body := postGraphQL(t, app, `{ users { id nickname } }`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, body["errors"])
		assert.NotContains(t, body, "data")
	})

	t.Run("malformed JSON body is a 400", func(t *testing.T) {
		app := newTestApp(t)

		req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		app.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid request payload")
	})

	t.Run("unsupported method is a 405", func(t *testing.T) {
		app := newTestApp(t)

		rec := httptest.NewRecorder()
		app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/graphql", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("GET query via URL parameters", func(t *testing.T) {
		app := newTestApp(t)

		req := httptest.NewRequest(http.MethodGet, "/graphql?query="+
			"%7B%20memberTypes%20%7B%20id%20discount%20%7D%20%7D", nil)
		rec := httptest.NewRecorder()
		app.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Nil(t, body["errors"])
		tiers := body["data"].(map[string]interface{})["memberTypes"].([]interface{})
		assert.Len(t, tiers, 2)
	})
}

func TestRouterEndpoints(t *testing.T) {
	t.Run("health reports healthy without a database", func(t *testing.T) {
		app := newTestApp(t)

		rec := httptest.NewRecorder()
		app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	})

	t.Run("root redirects to the GraphQL endpoint", func(t *testing.T) {
		app := newTestApp(t)

		rec := httptest.NewRecorder()
		app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/graphql", rec.Header().Get("Location"))
	})

	t.Run("unknown paths are 404", func(t *testing.T) {
		app := newTestApp(t)

		rec := httptest.NewRecorder()
		app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("graphiql serves the page but executes through the engine", func(t *testing.T) {
		cfg := testConfig()
		cfg.Server.GraphiQLEnabled = true
		app := newTestAppWithConfig(t, cfg)

		req := httptest.NewRequest(http.MethodGet, "/graphiql", nil)
		req.Header.Set("Accept", "text/html")
		rec := httptest.NewRecorder()
		app.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, strings.ToLower(rec.Body.String()), "graphiql")

		deep := `{ users { userSubscribedTo { userSubscribedTo { userSubscribedTo {
			userSubscribedTo { userSubscribedTo { id } } } } } } }`
		payload, err := json.Marshal(map[string]string{"query": deep})
		require.NoError(t, err)
		req = httptest.NewRequest(http.MethodPost, "/graphiql", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rec = httptest.NewRecorder()
		app.Handler().ServeHTTP(rec, req)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotEmpty(t, body["errors"])
		first := body["errors"].([]interface{})[0].(map[string]interface{})
		assert.Contains(t, first["message"], "depth")
	})

	t.Run("responses carry a request id", func(t *testing.T) {
		app := newTestApp(t)

		rec := httptest.NewRecorder()
		app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})
}
