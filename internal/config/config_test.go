// File: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "electron-mcp", cfg.Logger.ServiceName)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 1280, cfg.Browser.ViewportWidth)
	assert.Equal(t, 720, cfg.Browser.ViewportHeight)
	assert.Equal(t, 30*time.Second, cfg.Network.Timeout)
	assert.Equal(t, 90*time.Second, cfg.Network.NavigationTimeout)
	assert.Equal(t, 10*time.Second, cfg.Network.WaitTimeout)
	assert.NotEmpty(t, cfg.Screenshot.Dir)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Valid Default Config", func(t *testing.T) {
		cfg := NewDefaultConfig()
		assert.NoError(t, cfg.Validate(), "A valid config should not produce a validation error")
	})

	t.Run("Invalid Timeout", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Network.Timeout = 0
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "network.timeout")
	})

	t.Run("Invalid Viewport", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Browser.ViewportWidth = -100
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "viewport")
	})
}

// -- Viper Integration Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Defaults Round Trip", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "electron-mcp", cfg.Server.Name)
	})

	t.Run("Overrides Applied", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("browser.remote_url", "http://localhost:9222")
		v.Set("network.wait_timeout", "3s")
		v.Set("logger.level", "debug")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:9222", cfg.Browser.RemoteURL)
		assert.Equal(t, 3*time.Second, cfg.Network.WaitTimeout)
		assert.Equal(t, "debug", cfg.Logger.Level)
	})

	t.Run("Invalid Values Rejected", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("network.navigation_timeout", "0s")

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}
