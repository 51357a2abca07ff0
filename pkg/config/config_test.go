package config

import (
	"testing"
	"time"

	"github.com/mockmate/mockmate/pkg/core"
)

func TestLoad_MissingKeyIsConfigError(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected an error without a credential")
	}
	if core.KindOf(err) != core.KindConfig {
		t.Fatalf("kind = %q, want %q", core.KindOf(err), core.KindConfig)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("MOCKMATE_LIVE_MODEL", "")
	t.Setenv("MOCKMATE_ANALYZER_MODEL", "")
	t.Setenv("MOCKMATE_SESSION_COOLDOWN_MS", "")
	t.Setenv("MOCKMATE_VISION_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIKey != "test-key" {
		t.Fatalf("api key = %q", cfg.APIKey)
	}
	if cfg.LiveModel != defaultLiveModel || cfg.AnalyzerModel != defaultAnalyzerModel {
		t.Fatalf("models = %q / %q", cfg.LiveModel, cfg.AnalyzerModel)
	}
	if cfg.SessionCooldown != defaultCooldown {
		t.Fatalf("cooldown = %v", cfg.SessionCooldown)
	}
	if cfg.DBPath == "" {
		t.Fatalf("db path is empty")
	}
	if cfg.VisionURL != "" {
		t.Fatalf("vision url = %q, want empty", cfg.VisionURL)
	}
}

func TestLoad_GoogleKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "fallback-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIKey != "fallback-key" {
		t.Fatalf("api key = %q", cfg.APIKey)
	}
}

func TestLoad_CooldownOverride(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("MOCKMATE_SESSION_COOLDOWN_MS", "750")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SessionCooldown != 750*time.Millisecond {
		t.Fatalf("cooldown = %v", cfg.SessionCooldown)
	}

	t.Setenv("MOCKMATE_SESSION_COOLDOWN_MS", "not-a-number")
	if _, err := Load(); core.KindOf(err) != core.KindConfig {
		t.Fatalf("expected config error, got %v", err)
	}
}
