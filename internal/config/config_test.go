package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("DATA_DRIVER", "")
	t.Setenv("DEFAULT_WINDOW_MONTHS", "")
	t.Setenv("AUTH_ENABLED", "")
	t.Setenv("SESSION_MAX_COUNT", "")

	cfg := Load()
	if cfg.Port != "8780" || cfg.DataDriver != "postgres" || cfg.DefaultWindowMonths != 6 || cfg.AuthEnabled {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.MaxSessions != 1000 {
		t.Errorf("MaxSessions = %d, want 1000", cfg.MaxSessions)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATA_DRIVER", "SQLite")
	t.Setenv("SESSION_TTL_MINUTES", "30")
	t.Setenv("DEFAULT_WINDOW_MONTHS", "-2")
	t.Setenv("BUNDEBUG", "notabool")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg := Load()
	if cfg.DataDriver != "sqlite" {
		t.Errorf("DataDriver = %q", cfg.DataDriver)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.DefaultWindowMonths != 6 {
		t.Errorf("negative window accepted: %d", cfg.DefaultWindowMonths)
	}
	if cfg.BunDebug {
		t.Errorf("BunDebug true from an invalid bool")
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}
