package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENWEATHER_API_KEY", "WEATHERAPI_API_KEY", "TELEGRAM_BOT_TOKEN",
		"HTTP_TIMEOUT", "FETCH_INTERVAL", "CACHE_TTL",
		"STORE_MAX_HISTORY", "STORE_MAX_AGE", "STORE_DRIVER", "SQLITE_PATH",
		"PORT", "APP_ENV", "LOG_LEVEL", "LOCATIONS_FILE", "WEATHER_LOCATIONS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENWEATHER_API_KEY", "owm")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if cfg.FetchInterval != 15*time.Minute {
		t.Errorf("FetchInterval = %v", cfg.FetchInterval)
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	if cfg.StoreMaxHistory != 96 || cfg.StoreMaxAge != 24*time.Hour {
		t.Errorf("retention = %d/%v", cfg.StoreMaxHistory, cfg.StoreMaxAge)
	}
	if cfg.StoreDriver != StoreDriverMemory {
		t.Errorf("StoreDriver = %q", cfg.StoreDriver)
	}
	if cfg.Port != "8080" || cfg.AppEnv != "dev" || cfg.LogLevel != slog.LevelInfo {
		t.Errorf("port/env/level = %q/%q/%v", cfg.Port, cfg.AppEnv, cfg.LogLevel)
	}
	if len(cfg.Locations) != 0 {
		t.Errorf("Locations = %+v, want none", cfg.Locations)
	}
}

func TestLoadRequiresAProviderKey(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("expected error without provider keys")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"FETCH_INTERVAL": "often",
		"STORE_DRIVER":   "postgres",
		"APP_ENV":        "staging",
		"LOG_LEVEL":      "loud",
		"CACHE_TTL":      "10",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("WEATHERAPI_API_KEY", "wapi")
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestLoadLocationsFromFileAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENWEATHER_API_KEY", "owm")

	path := filepath.Join(t.TempDir(), "locations.yaml")
	content := "locations:\n  - city: 東京都\n  - city: Osaka\n    country: JP\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write locations file: %v", err)
	}
	t.Setenv("LOCATIONS_FILE", path)
	t.Setenv("WEATHER_LOCATIONS", "札幌市, 東京都 ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := []string{"東京都", "Osaka", "札幌市"}
	if len(cfg.Locations) != len(want) {
		t.Fatalf("Locations = %+v", cfg.Locations)
	}
	for i, city := range want {
		if cfg.Locations[i].City != city {
			t.Errorf("Locations[%d] = %+v, want %s", i, cfg.Locations[i], city)
		}
	}
	if cfg.Locations[1].Country != "JP" {
		t.Errorf("Osaka country = %q", cfg.Locations[1].Country)
	}
}

func TestLoadMissingLocationsFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENWEATHER_API_KEY", "owm")
	t.Setenv("LOCATIONS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing locations file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}
