package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
http:
  address: ":8081"
database:
  host: localhost
  port: 5433
  user: bus
  password: secret
  name: busbooking
kafka:
  brokers: ["localhost:9092"]
auth:
  jwt_secret: s3cret
booking:
  strict_capacity: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.HTTP.Address)
	assert.Equal(t, ":9090", cfg.GRPC.Address)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "host=localhost port=5433 user=bus password=secret dbname=busbooking sslmode=disable", cfg.Database.DSN())
	assert.True(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Booking.StrictCapacity)
	assert.Equal(t, 30*time.Second, cfg.Booking.ListingTTL())
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL())
	assert.Equal(t, 10*time.Minute, cfg.Worker.AuditInterval())
}

func TestLoadConfig_MemoryDriverDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "database:\n  driver: memory\n"))
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Auth.JWTSecret)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "database:\n  host: db\n  name: bus\n"))
	assert.ErrorContains(t, err, "jwt_secret")

	_, err = LoadConfig(writeConfig(t, "database:\n  driver: sqlite\n"))
	assert.ErrorContains(t, err, "sqlite")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}
