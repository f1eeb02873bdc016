package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, 900, cfg.AccessTokenMaxAge)
	assert.Equal(t, 256, cfg.WSSendBuffer)
	assert.Equal(t, int64(4096), cfg.WSMaxMessageBytes)
	assert.Equal(t, 3*time.Second, cfg.LinkPreviewTimeout)
	assert.Equal(t, 24*time.Hour, cfg.LinkPreviewCacheTTL)
	assert.True(t, cfg.LinkPreviewEnabled)
	assert.False(t, cfg.RealtimeDistributed)
	assert.Empty(t, cfg.WSAllowedOrigins)
	assert.Equal(t, 2, cfg.WorkerCount)
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("APP_ENV", "Development")
	v.Set("WS_ALLOWED_ORIGINS", "https://app.example.com, https://m.example.com,,")
	v.Set("REALTIME_DISTRIBUTED", true)
	v.Set("WS_SEND_BUFFER", -1)

	cfg := fromViper(v)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"https://app.example.com", "https://m.example.com"}, cfg.WSAllowedOrigins)
	assert.True(t, cfg.RealtimeDistributed)
	assert.Equal(t, 256, cfg.WSSendBuffer)
}

func TestValidate_RequiresSecret(t *testing.T) {
	cfg := &Config{}
	require.Error(t, cfg.Validate())

	cfg.JWTSecret = "secret"
	require.NoError(t, cfg.Validate())
}
