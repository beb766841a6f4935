package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/otabekdev/yukmonitor/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123456:test-token"
  admin_user_id: 42
database:
  path: "/tmp/test.db"
logger:
  level: debug
  json: false
scheduler:
  tasks:
    daily_export:
      enabled: false
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "123456:test-token", cfg.Telegram.Token)
	require.Equal(t, int64(42), cfg.Telegram.AdminUserID)
	require.Equal(t, "/tmp/test.db", cfg.Database.Path)
	require.Equal(t, "debug", cfg.Logger.Level)
	require.False(t, cfg.Logger.JSON)

	require.False(t, cfg.Scheduler.Tasks["daily_export"].Enabled)
	require.True(t, cfg.Scheduler.Tasks["sql_maintenance"].Enabled, "untouched defaults survive")

	require.Equal(t, 7, cfg.Export.DefaultDays)
	require.False(t, cfg.Web.Enabled)
	require.False(t, cfg.Events.Enabled)
	require.NotEmpty(t, cfg.Messages.Welcome)
}

func TestLoadConfigMissingToken(t *testing.T) {
	path := writeConfig(t, `
telegram:
  admin_user_id: 42
`)

	_, err := config.LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigBadLogLevel(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123456:test-token"
  admin_user_id: 42
logger:
  level: loud
`)

	_, err := config.LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("YUK_TELEGRAM_TOKEN", "123456:env-token")
	t.Setenv("YUK_TELEGRAM_ADMIN_USER_ID", "42")

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, "123456:env-token", cfg.Telegram.Token)
	require.Equal(t, "yukmonitor.db", cfg.Database.Path)
}

func TestWebEnabledRequiresAddr(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123456:test-token"
  admin_user_id: 42
web:
  enabled: true
  addr: ""
`)

	_, err := config.LoadConfig(path)
	require.Error(t, err)
}
