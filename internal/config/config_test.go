package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("WP_API_URL", "https://cms.example.vn/wp-json/")
	t.Setenv("WP_ENABLED", "not-a-bool")

	cfg := FromEnv()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://cms.example.vn/wp-json", cfg.WordPress.APIURL)
	assert.False(t, cfg.WordPress.Enabled)
	assert.Equal(t, 15*time.Second, cfg.WordPress.Timeout)
	assert.Equal(t, "file", cfg.StoreBackend)
	require.NoError(t, cfg.Validate())
}

func TestValidateEnabledConnectionNeedsCredentials(t *testing.T) {
	cfg := FromEnv()
	cfg.WordPress = WordPress{
		APIURL:  "https://cms.example.vn/wp-json",
		Enabled: true,
		Timeout: time.Second,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Username")

	cfg.WordPress.Username = "editor"
	cfg.WordPress.AppPassword = "abcd efgh ijkl"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := FromEnv()
	cfg.StoreBackend = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg = FromEnv()
	cfg.AutoSyncInterval = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateProductionNeedsAdminKey(t *testing.T) {
	cfg := FromEnv()
	cfg.Env = "production"
	cfg.AdminAPIKey = ""
	assert.ErrorContains(t, cfg.Validate(), "ADMIN_API_KEY")

	cfg.AdminAPIKey = "k"
	assert.NoError(t, cfg.Validate())
}
