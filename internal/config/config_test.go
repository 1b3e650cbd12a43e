package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "voice", cfg.Mode)
	assert.False(t, cfg.Manual())
	assert.Equal(t, "机器人", cfg.WakePrefix)
	assert.Equal(t, 7, cfg.MinLength)
	assert.Equal(t, 100, cfg.MaxLength)
	assert.Equal(t, 10.0, cfg.RateHz)
	assert.Equal(t, 15*time.Second, cfg.ListenWait)
	assert.Equal(t, time.Second, cfg.SettleDelay)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "zh_cn", cfg.ASR.Language)
	assert.Equal(t, "/tmp", cfg.ClipDir)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("VOICE_MODE", "manual")
	t.Setenv("VOICE_RATE_HZ", "20")
	t.Setenv("REDIS_ADDR", "redis.local:6380")
	t.Setenv("ASR_URL", "wss://asr.example.com/v1")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Manual())
	assert.Equal(t, 20.0, cfg.RateHz)
	assert.Equal(t, "redis.local:6380", cfg.Redis.Addr)
	assert.Equal(t, "wss://asr.example.com/v1", cfg.ASR.URL)
	assert.Equal(t, "sk-test", cfg.TTS.APIKey)
}

func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("VOICE_DASHBOARD_ADDR=:9090\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("VOICE_DASHBOARD_ADDR") })

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.DashboardAddr)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"VOICE_MODE":       "telepathy",
		"VOICE_RATE_HZ":    "0",
		"VOICE_MAX_LENGTH": "3",
		"LOG_LEVEL":        "loud",
		"ASR_URL":          "not a url",
		"TTS_SPEED":        "9",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.ErrorContains(t, err, "invalid config")
		})
	}
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("VOICE_MIN_LENGTH", "seven")
	_, err := Load()
	assert.ErrorContains(t, err, "parse env")
}
