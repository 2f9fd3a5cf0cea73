package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults verifies that default values are used when env vars are missing.
func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("APP_ENV")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("SERVER_PORT")
	os.Unsetenv("DB_PATH")
	os.Unsetenv("ACTIVE_PROVIDER")
	os.Unsetenv("SYNC_COOLDOWN_SECONDS")
	os.Unsetenv("TRACKINGMORE_URL")
	os.Unsetenv("TRACK123_URL")

	cfg, err := Load(".")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "parcels.db", cfg.Database.Path)
	assert.Equal(t, "trackingmore", cfg.Sync.ActiveProvider)
	assert.Equal(t, 300, cfg.Sync.CooldownSeconds)
	assert.Equal(t, "https://api.trackingmore.com", cfg.Providers.TrackingmoreURL)
	assert.Equal(t, "https://api.track123.com", cfg.Providers.Track123URL)
	assert.Empty(t, cfg.Redis.URL)
}

// TestLoad_EnvVars verifies that environment variables override defaults.
func TestLoad_EnvVars(t *testing.T) {
	os.Setenv("APP_ENV", "production")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("DB_PATH", "/tmp/parcels-test.db")
	os.Setenv("REDIS_URL", "localhost:6379")
	os.Setenv("ACTIVE_PROVIDER", "track123")
	os.Setenv("SYNC_COOLDOWN_SECONDS", "60")
	defer func() {
		os.Unsetenv("APP_ENV")
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("DB_PATH")
		os.Unsetenv("REDIS_URL")
		os.Unsetenv("ACTIVE_PROVIDER")
		os.Unsetenv("SYNC_COOLDOWN_SECONDS")
	}()

	cfg, err := Load(".")
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "/tmp/parcels-test.db", cfg.Database.Path)
	assert.Equal(t, "localhost:6379", cfg.Redis.URL)
	assert.Equal(t, "track123", cfg.Sync.ActiveProvider)
	assert.Equal(t, 60, cfg.Sync.CooldownSeconds)
}

// TestLoad_File verifies that values are loaded from a .env file.
func TestLoad_File(t *testing.T) {
	content := []byte(`
APP_ENV=staging
LOG_LEVEL=warn
SERVER_PORT=7070
ACTIVE_PROVIDER=track123
TRACKINGMORE_URL=https://trackingmore.staging.test
`)
	err := os.WriteFile(".env", content, 0644)
	require.NoError(t, err)
	defer os.Remove(".env")

	cfg, err := Load(".")
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 7070, cfg.ServerPort)
	assert.Equal(t, "track123", cfg.Sync.ActiveProvider)
	assert.Equal(t, "https://trackingmore.staging.test", cfg.Providers.TrackingmoreURL)
}

// TestValidateRequired verifies that missing required fields return an error.
func TestValidateRequired(t *testing.T) {
	type strict struct {
		Token string `mapstructure:"API_TOKEN" required:"true"`
	}

	err := validateRequired(&strict{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required configuration: API_TOKEN")

	err = validateRequired(&strict{Token: "abc"})
	assert.NoError(t, err)
}
