package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	for _, key := range []string{
		"STORE_PATH", "STORE_BUSY_TIMEOUT", "CAPTURE_POLL_INTERVAL", "CAPTURE_COOLDOWN",
		"CAPTURE_MAX_RUNTIME", "BACKUP_RETENTION_DAYS", "KIOSK_DEVICE_ID", "JWT_SECRET", "ODOO_URL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./data/punches.db", cfg.Store.Path)
	assert.Equal(t, 30*time.Second, cfg.Store.BusyTimeout)
	assert.Equal(t, 400*time.Millisecond, cfg.Capture.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.Capture.Cooldown)
	assert.Equal(t, 15*time.Minute, cfg.Capture.MaxRuntime)
	assert.Equal(t, 30, cfg.Backup.RetentionDays)
	assert.True(t, strings.HasPrefix(cfg.Store.DeviceID, "kiosk-"))
	assert.False(t, cfg.Server.Enabled())
	assert.Empty(t, cfg.Odoo.URL)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("STORE_PATH", "/var/lib/kiosk/punches.db")
	t.Setenv("CAPTURE_COOLDOWN", "3s")
	t.Setenv("CAPTURE_MAX_RUNTIME", "0")
	t.Setenv("BACKUP_RETENTION_DAYS", "7")
	t.Setenv("KIOSK_DEVICE_ID", "entrance-1")
	t.Setenv("KIOSK_REJECT_UNKNOWN", "true")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/kiosk/punches.db", cfg.Store.Path)
	assert.Equal(t, 3*time.Second, cfg.Capture.Cooldown)
	assert.Zero(t, cfg.Capture.MaxRuntime)
	assert.Equal(t, 7, cfg.Backup.RetentionDays)
	assert.Equal(t, "entrance-1", cfg.Store.DeviceID)
	assert.True(t, cfg.Kiosk.RejectUnknown)
	assert.True(t, cfg.Server.Enabled())
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("CAPTURE_COOLDOWN", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("CAPTURE_COOLDOWN", "")
	t.Setenv("BACKUP_RETENTION_DAYS", "0")
	_, err = Load()
	assert.Error(t, err)
}
