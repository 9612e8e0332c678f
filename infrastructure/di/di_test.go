package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ameliorate/infrastructure/config"
	"ameliorate/infrastructure/messaging"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "di.db")
	cfg.LogLevel = "error"
	return cfg
}

func TestInitializeContainer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, cleanup, err := InitializeContainer(ctx, testConfig(t))
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, config.StoreSQLite, container.Store.Driver)
	assert.IsType(t, &messaging.LogPublisher{}, container.EventPublisher)
	assert.Nil(t, container.Tracer, "tracing is off by default")
	assert.NotNil(t, container.Collector)

	applied, err := container.Store.Migrate(ctx)
	require.NoError(t, err)
	assert.Zero(t, applied, "sqlite is migrated when opened")

	rec := httptest.NewRecorder()
	container.Router.Setup().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProvideRateLimiters(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimitIP = 0
	cfg.RateLimitUser = 10

	limiters := ProvideRateLimiters(cfg)
	assert.Nil(t, limiters.IP)
	require.NotNil(t, limiters.User)
	assert.Equal(t, 10, limiters.User.Limit())
}

func TestProvideJWTConfig_FallsBackToDevelopmentSecret(t *testing.T) {
	cfg := testConfig(t)
	logger, err := ProvideLogger(cfg)
	require.NoError(t, err)

	assert.Equal(t, developmentJWTSecret, ProvideJWTConfig(cfg, logger).SecretKey)

	cfg.JWTSecret = "configured"
	assert.Equal(t, "configured", ProvideJWTConfig(cfg, logger).SecretKey)
}

func TestProvideStore_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreDriver = "mongo"
	logger, err := ProvideLogger(cfg)
	require.NoError(t, err)

	_, _, err = ProvideStore(context.Background(), cfg, aws.Config{}, logger)
	assert.ErrorContains(t, err, "unknown store driver")
}
