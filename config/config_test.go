package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"LIBRIPAL_API_URL", "LIBRIPAL_DATA_DIR", "LIBRIPAL_REQUEST_TIMEOUT",
	"LIBRIPAL_CHAT_TIMEOUT", "LIBRIPAL_LOG_LEVEL", "LIBRIPAL_LOG_FILE",
	"LIBRIPAL_CURRENCY", "TELEGRAM_BOT_TOKEN", "LIBRIPAL_TELEGRAM_RATE",
}

// clearEnv blanks every key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, DefaultChatTimeout, cfg.ChatTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 1.0, cfg.TelegramRate)
	assert.Equal(t, ".libripal", filepath.Base(cfg.DataDir))
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIBRIPAL_API_URL", "https://library.example.org/")
	t.Setenv("LIBRIPAL_CHAT_TIMEOUT", "15")
	t.Setenv("LIBRIPAL_REQUEST_TIMEOUT", "2m")
	t.Setenv("LIBRIPAL_LOG_LEVEL", "debug")
	t.Setenv("LIBRIPAL_TELEGRAM_RATE", "0.5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://library.example.org", cfg.APIURL)
	assert.Equal(t, 15*time.Second, cfg.ChatTimeout)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 0.5, cfg.TelegramRate)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("LIBRIPAL_CURRENCY")
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("LIBRIPAL_CURRENCY=EUR\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("LIBRIPAL_CURRENCY") })

	cfg, err := Load(env)
	require.NoError(t, err)
	assert.Equal(t, "EUR", cfg.Currency)
}

func TestLoadMissingDotEnv(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"LIBRIPAL_CHAT_TIMEOUT":  "soon",
		"LIBRIPAL_LOG_LEVEL":     "loud",
		"LIBRIPAL_TELEGRAM_RATE": "-1",
	}
	for k, v := range tests {
		t.Run(k, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(k, v)
			_, err := Load("")
			assert.ErrorContains(t, err, k)
		})
	}
}

func TestNewLoggerWritesToDataDir(t *testing.T) {
	cfg := &Config{DataDir: filepath.Join(t.TempDir(), "data"), LogLevel: slog.LevelInfo}
	logger, closer, err := cfg.NewLogger()
	require.NoError(t, err)
	logger.Info("hello", "k", "v")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(filepath.Join(cfg.DataDir, "libripal.log"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "msg=hello k=v")
	assert.Equal(t, filepath.Join(cfg.DataDir, "libripal.db"), cfg.StorePath())
}
