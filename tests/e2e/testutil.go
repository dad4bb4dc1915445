package e2e

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"

	"github.com/nandahq/agentdir/internal/events"
	"github.com/nandahq/agentdir/internal/facts"
	pgstore "github.com/nandahq/agentdir/internal/store"
	"github.com/nandahq/agentdir/internal/taxonomy"
	"github.com/nandahq/agentdir/internal/translate"
)

// Package-level shared state — set by TestMain, used by all subtests.
var (
	testLogger   *zap.Logger
	testStore    *pgstore.Store
	testRedisURL string
	infraErr     error
)

// startPostgres starts a PostgreSQL testcontainer, returns DSN + cleanup
// func. Testcontainers panics when no Docker host can be resolved, so the
// start is recover-wrapped to let the suite skip instead of crash.
func startPostgres(ctx context.Context) (dsn string, cleanup func(), err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("start postgres: %v", r)
		}
	}()
	container, err := tcpg.Run(ctx, "postgres:16-alpine",
		tcpg.WithDatabase("agentdir_test"),
		tcpg.WithUsername("test"),
		tcpg.WithPassword("test"),
		tcpg.BasicWaitStrategies(),
	)
	if err != nil {
		return "", nil, fmt.Errorf("start postgres: %w", err)
	}
	dsn, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return "", nil, fmt.Errorf("pg connection string: %w", err)
	}
	return dsn, func() { container.Terminate(ctx) }, nil
}

// startRedis starts a Redis testcontainer, returns URL + cleanup func.
func startRedis(ctx context.Context) (url string, cleanup func(), err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("start redis: %v", r)
		}
	}()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return "", nil, fmt.Errorf("start redis: %w", err)
	}
	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		container.Terminate(ctx)
		return "", nil, fmt.Errorf("redis endpoint: %w", err)
	}
	return "redis://" + endpoint, func() { container.Terminate(ctx) }, nil
}

// skipIfNoInfra skips when the containers could not be started, typically
// because Docker is not available in the environment.
func skipIfNoInfra(t *testing.T) {
	t.Helper()
	if infraErr != nil {
		t.Skipf("test infrastructure unavailable: %v", infraErr)
	}
}

// newBus connects a fresh event bus against the shared Redis container.
func newBus(t *testing.T) *events.Bus {
	t.Helper()
	bus, err := events.NewBus(testRedisURL, testLogger)
	if err != nil {
		t.Fatalf("event bus: %v", err)
	}
	return bus
}

// newTranslator loads the real catalog and schema shipped with the repo.
func newTranslator(t *testing.T) *translate.Translator {
	t.Helper()
	index, _ := taxonomy.Load(filepath.Join("..", "..", "taxonomy", "catalog"))
	validator, err := facts.NewValidator(filepath.Join("..", "..", "schemas", "agentfacts_schema.json"))
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	tr, err := translate.New(index, validator, testLogger)
	if err != nil {
		t.Fatalf("new translator: %v", err)
	}
	return tr
}
