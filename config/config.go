// Package config resolves settings from a .env file, the environment and
// command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL         = "http://localhost:8000"
	DefaultRequestTimeout = 30 * time.Second
	DefaultChatTimeout    = 60 * time.Second
	DefaultCurrency       = "USD"
	DefaultTelegramRate   = 1.0

	logFileName = "libripal.log"
	storeName   = "libripal.db"
)

type Config struct {
	APIURL         string
	DataDir        string
	RequestTimeout time.Duration
	ChatTimeout    time.Duration
	LogLevel       slog.Level
	// LogFile is "-" for stderr; empty means <DataDir>/libripal.log.
	LogFile       string
	Currency      string
	TelegramToken string
	TelegramRate  float64
}

// Load reads envFile (when it exists) into the environment without
// overriding variables already set, then builds the Config.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		APIURL:        strings.TrimRight(getEnv("LIBRIPAL_API_URL", DefaultAPIURL), "/"),
		DataDir:       getEnv("LIBRIPAL_DATA_DIR", defaultDataDir()),
		LogFile:       getEnv("LIBRIPAL_LOG_FILE", ""),
		Currency:      getEnv("LIBRIPAL_CURRENCY", DefaultCurrency),
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	var err error
	if cfg.RequestTimeout, err = getDuration("LIBRIPAL_REQUEST_TIMEOUT", DefaultRequestTimeout); err != nil {
		return nil, err
	}
	if cfg.ChatTimeout, err = getDuration("LIBRIPAL_CHAT_TIMEOUT", DefaultChatTimeout); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = ParseLevel(getEnv("LIBRIPAL_LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("LIBRIPAL_LOG_LEVEL: %w", err)
	}
	rateStr := getEnv("LIBRIPAL_TELEGRAM_RATE", strconv.FormatFloat(DefaultTelegramRate, 'f', -1, 64))
	if cfg.TelegramRate, err = strconv.ParseFloat(rateStr, 64); err != nil || cfg.TelegramRate <= 0 {
		return nil, fmt.Errorf("LIBRIPAL_TELEGRAM_RATE: invalid value %q", rateStr)
	}
	return cfg, nil
}

// StorePath is the local sqlite database inside DataDir.
func (c *Config) StorePath() string { return filepath.Join(c.DataDir, storeName) }

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

// NewLogger opens the configured log destination. The returned closer must
// be called on exit.
func (c *Config) NewLogger() (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFile == "-" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), io.NopCloser(nil), nil
	}

	path := c.LogFile
	if path == "" {
		path = filepath.Join(c.DataDir, logFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, opts)), f, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// bare numbers are seconds
		secs, nerr := strconv.Atoi(v)
		if nerr != nil {
			return 0, fmt.Errorf("%s: invalid duration %q", key, v)
		}
		d = time.Duration(secs) * time.Second
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %q", key, v)
	}
	return d, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".libripal"
	}
	return filepath.Join(home, ".libripal")
}
