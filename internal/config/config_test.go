package config

import (
	"log/slog"
	"reflect"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("ADMIN_IDS", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port == "" {
		t.Error("expected a default port")
	}
	if cfg.BroadcastDelay <= 0 {
		t.Errorf("BroadcastDelay = %v", cfg.BroadcastDelay)
	}
	if len(cfg.VideoExtensions) == 0 {
		t.Error("expected default video extensions")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("ADMIN_IDS", "7951420571, 1509468839")
	t.Setenv("TIER_CACHE_TTL", "1m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SITE_URL", "https://example.org/")
	t.Setenv("VIDEO_EXTENSIONS", ".mp4, .mkv")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !reflect.DeepEqual(cfg.AdminIDs, []int64{7951420571, 1509468839}) {
		t.Errorf("AdminIDs = %v", cfg.AdminIDs)
	}
	if !cfg.IsAdmin(1509468839) || cfg.IsAdmin(42) {
		t.Error("IsAdmin mismatch")
	}
	if cfg.TierCacheTTL != time.Minute {
		t.Errorf("TierCacheTTL = %v", cfg.TierCacheTTL)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.SiteURL != "https://example.org" {
		t.Errorf("SiteURL = %q", cfg.SiteURL)
	}
	if !reflect.DeepEqual(cfg.VideoExtensions, []string{".mp4", ".mkv"}) {
		t.Errorf("VideoExtensions = %v", cfg.VideoExtensions)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	cases := map[string]string{
		"DB_DRIVER":        "mysql",
		"ADMIN_IDS":        "abc",
		"DB_QUERY_TIMEOUT": "soon",
		"LOG_LEVEL":        "loud",
		"TIER_CACHE_SIZE":  "0",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("DB_DRIVER", "sqlite")
			t.Setenv(key, val)
			if _, err := LoadConfig(); err == nil {
				t.Errorf("expected error for %s=%q", key, val)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "n", DBPort: "5432", DBSSLMode: "disable", DBConnectTimeout: 5 * time.Second, DBQueryTimeout: 10 * time.Second}
	want := "host=db user=u password=p dbname=n port=5432 sslmode=disable connect_timeout=5 statement_timeout=10000"
	if got := cfg.PostgresDSN(); got != want {
		t.Errorf("PostgresDSN = %q, want %q", got, want)
	}
}
