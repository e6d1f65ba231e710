package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the service layer needs from the environment.
type Config struct {
	LogLevel  string
	LogFormat string

	// Local device stores.
	DBPath             string
	KeychainDir        string
	KeychainPassphrase string

	// Hosted backend. An empty DSN means offline-only mode.
	BackendDSN       string
	BackendJWTSecret string
	BackendTokenTTL  time.Duration

	// Realtime change feed.
	RealtimeURL string

	// Signed-in user, used for backend tokens and the live feed filter.
	UserID string

	// Whether feature flags should be refreshed from the backend at startup.
	RemoteFlagRefresh bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		LogLevel:           getenv("FOCUSLOOP_LOG_LEVEL", "info"),
		LogFormat:          getenv("FOCUSLOOP_LOG_FORMAT", "text"),
		DBPath:             getenv("FOCUSLOOP_DB_PATH", "focusloop.db"),
		KeychainDir:        getenv("FOCUSLOOP_KEYCHAIN_DIR", ".focusloop-keychain"),
		KeychainPassphrase: os.Getenv("FOCUSLOOP_KEYCHAIN_PASSPHRASE"),
		BackendDSN:         os.Getenv("FOCUSLOOP_BACKEND_DSN"),
		BackendJWTSecret:   os.Getenv("FOCUSLOOP_BACKEND_JWT_SECRET"),
		BackendTokenTTL:    time.Hour,
		RealtimeURL:        os.Getenv("FOCUSLOOP_REALTIME_URL"),
		UserID:             os.Getenv("FOCUSLOOP_USER_ID"),
	}

	if v := os.Getenv("FOCUSLOOP_BACKEND_TOKEN_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BackendTokenTTL = time.Duration(n) * time.Minute
		}
	}
	if v := os.Getenv("FOCUSLOOP_REMOTE_FLAG_REFRESH"); v != "" {
		cfg.RemoteFlagRefresh = v == "1" || v == "true"
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
