// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-router/internal/api"
	"query-router/internal/app"
	"query-router/internal/common/camunda"
	"query-router/internal/common/config"
	"query-router/internal/common/database"
	"query-router/internal/common/logger"
	"query-router/internal/models"
	"query-router/internal/pipeline"
	"query-router/internal/pipeline/snapshot"
	ruq "query-router/internal/workers/query/route-user-query"
)

// The suite needs live services and only runs with QUERY_ROUTER_E2E=1, e.g.
//
//	QUERY_ROUTER_E2E=1 DB_HOST=localhost DB_NAME=router DB_USER=router \
//	  DB_PASSWORD=secret REDIS_ADDRESS=localhost:6379 go test ./test/e2e/...
func TestMain(m *testing.M) {
	if os.Getenv("QUERY_ROUTER_E2E") == "" {
		fmt.Println("skipping e2e tests: QUERY_ROUTER_E2E is not set")
		os.Exit(0)
	}
	os.Exit(m.Run())
}

type environment struct {
	cfg   *config.Config
	pg    *database.PostgresClient
	redis *database.RedisClient
	store *snapshot.Store
}

func setup(t *testing.T) *environment {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })
	require.NoError(t, pg.Ping(ctx), "postgres must be reachable")

	schema, err := os.ReadFile(filepath.Join("..", "..", "configs", "postgres", "schema.sql"))
	require.NoError(t, err)
	_, err = pg.DB.ExecContext(ctx, string(schema))
	require.NoError(t, err)

	redis, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err)
	t.Cleanup(func() { redis.Close() })
	require.NoError(t, redis.Ping(ctx), "redis must be reachable")

	rc := cfg.Router
	rc.Source = config.SourcePostgres
	loader, err := app.NewLoader(rc, pg)
	require.NoError(t, err)

	store := snapshot.NewStore(loader, logger.NewTestLogger(t))
	_, err = store.Reload(ctx)
	require.NoError(t, err)

	return &environment{cfg: cfg, pg: pg, redis: redis, store: store}
}

func TestPostgresSourceRouting(t *testing.T) {
	env := setup(t)
	snap := env.store.Load()
	assert.Equal(t, "postgres:"+env.cfg.Router.ConfigTable, snap.Source)

	p := pipeline.New(env.store)
	resp := p.Run("show contarct 123456", true)
	assert.Equal(t, models.ModuleContract, resp.QueryMetadata.QueryType)
	require.NotNil(t, resp.Diagnostics)
}

func TestWorkerCacheAgainstRedis(t *testing.T) {
	env := setup(t)
	p := pipeline.New(env.store)

	cfg := ruq.LoadConfig(config.WorkerConfig{CacheTTL: 60})
	cfg.CacheKeyPrefix = fmt.Sprintf("e2e:%d:", time.Now().UnixNano())
	handler := ruq.NewHandler(cfg, p, env.redis, nil, logger.NewTestLogger(t))

	input := &ruq.Input{Query: "show parts for part AB123", RequestID: "e2e-1"}
	first, err := handler.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := handler.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, models.ModuleParts, second.RoutedModule)
}

func TestHTTPEndToEnd(t *testing.T) {
	env := setup(t)
	p := pipeline.New(env.store)
	server := api.NewServer(p, env.store, logger.NewTestLogger(t), api.Options{
		Checks: map[string]api.ReadinessCheck{
			"postgres": env.pg.Ping,
			"redis":    env.redis.Ping,
		},
	})
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	ready, err := http.Get(ts.URL + "/ready")
	require.NoError(t, err)
	ready.Body.Close()
	assert.Equal(t, http.StatusOK, ready.StatusCode)

	body := bytes.NewBufferString(`{"query": "contracts created in 2023"}`)
	resp, err := http.Post(ts.URL+"/api/v1/query/route", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var routed models.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&routed))
	assert.Equal(t, models.ModuleContract, routed.QueryMetadata.QueryType)
}

func TestZeebeConnectivity(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	if !cfg.Camunda.Enabled {
		t.Skip("camunda.enabled is false")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := camunda.Connect(ctx, cfg.Camunda)
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.HealthCheck(ctx))
}
