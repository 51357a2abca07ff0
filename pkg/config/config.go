// Package config loads the application configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/mockmate/mockmate/pkg/core"
)

const (
	defaultLiveModel     = "models/gemini-2.0-flash-live-001"
	defaultAnalyzerModel = "gemini-2.0-flash"
	defaultCooldown      = 300 * time.Millisecond
)

// Config is everything the application reads from the environment.
type Config struct {
	// APIKey authenticates both the live channel and the analyzer.
	APIKey string

	LiveModel     string
	AnalyzerModel string

	// DBPath locates the sqlite database.
	DBPath string

	// VisionURL points at the gesture sidecar. Empty disables gestures.
	VisionURL string

	// SessionCooldown is the pause enforced between consecutive sessions.
	SessionCooldown time.Duration
}

// Load reads the environment, consulting a .env file when present. Only the
// API key is mandatory.
func Load() (Config, error) {
	_ = godotenv.Load()

	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		key = os.Getenv("GOOGLE_API_KEY")
	}
	if key == "" {
		return Config{}, core.NewConfig("GEMINI_API_KEY is not set")
	}

	cfg := Config{
		APIKey:          key,
		LiveModel:       envOr("MOCKMATE_LIVE_MODEL", defaultLiveModel),
		AnalyzerModel:   envOr("MOCKMATE_ANALYZER_MODEL", defaultAnalyzerModel),
		DBPath:          envOr("MOCKMATE_DB_PATH", defaultDBPath()),
		VisionURL:       os.Getenv("MOCKMATE_VISION_URL"),
		SessionCooldown: defaultCooldown,
	}

	if raw := os.Getenv("MOCKMATE_SESSION_COOLDOWN_MS"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			return Config{}, core.NewConfig("MOCKMATE_SESSION_COOLDOWN_MS must be a non-negative integer")
		}
		cfg.SessionCooldown = time.Duration(ms) * time.Millisecond
	}

	return cfg, nil
}

// DBPath resolves the database location without requiring a credential,
// for commands that only read persisted data.
func DBPath() string {
	_ = godotenv.Load()
	return envOr("MOCKMATE_DB_PATH", defaultDBPath())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mockmate.db"
	}
	return filepath.Join(home, ".mockmate", "mockmate.db")
}
