package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 500*time.Millisecond, cfg.Outbox.PollInterval)
	assert.Equal(t, []byte("stayfinder-dev-secret"), cfg.JWTSecret())
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "stayfinder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: prod
storage: mongo
mongo:
  uri: mongodb://db:27017
  database: bookings
jwt:
  secret: from-file
  ttl: 2h
rate_limit:
  max: 30
  window: 10s
outbox:
  retry_backoff: [2s, 10s]
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MONGO_DB", "override")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("RETRY_BACKOFF", "1s,3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
	assert.Equal(t, "override", cfg.Mongo.Database)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 30, cfg.RateLimit.Max)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second}, cfg.Outbox.RetryBackoff)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Storage = StorageMongo
	require.ErrorContains(t, cfg.Validate(), "MONGO_URI")

	cfg = Defaults()
	cfg.Env = "prod"
	require.ErrorContains(t, cfg.Validate(), "JWT_SECRET")

	cfg = Defaults()
	cfg.Storage = "postgres"
	require.Error(t, cfg.Validate())
}

func TestInvalidEnvValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("S3_USE_SSL", "maybe")
	_, err := Load()
	require.ErrorContains(t, err, "S3_USE_SSL")
}
