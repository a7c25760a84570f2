package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("ARCHIVE_CRON", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorePostgres, cfg.Store.Backend)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, 256, cfg.Dispatch.QueueSize)
	assert.Empty(t, cfg.Archive.Cron)
	assert.Equal(t, 90*24*time.Hour, cfg.Archive.Retention())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Mongo")
	t.Setenv("DISPATCH_WORKERS", "8")
	t.Setenv("DISPATCH_QUEUE_SIZE", "not-a-number")
	t.Setenv("NOTIFY_EMAIL_ENABLED", "true")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMongo, cfg.Store.Backend)
	assert.Equal(t, 8, cfg.Dispatch.Workers)
	assert.Equal(t, 256, cfg.Dispatch.QueueSize, "unparseable values fall back")
	assert.True(t, cfg.Notification.EmailEnabled)
	assert.Zero(t, cfg.App.RequestTimeout())
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "cassandra")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("REDIS_DB", "x")
	_, err = Load()
	assert.Error(t, err)
}
