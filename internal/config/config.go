package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/headache-forecast/internal/weather"
)

const (
	StoreDriverMemory = "memory"
	StoreDriverSQLite = "sqlite"
)

type AppConfig struct {
	OpenWeatherAPIKey string
	WeatherAPIKey     string
	TelegramBotToken  string

	// HTTPTimeout bounds each outbound provider call.
	HTTPTimeout time.Duration

	// FetchInterval controls how often the scheduler refreshes each location.
	FetchInterval time.Duration

	// CacheTTL is how long a stored report is served before refetching.
	CacheTTL time.Duration

	// Locations to keep warm.
	Locations []weather.Location

	StoreDriver     string
	SQLitePath      string
	StoreMaxHistory int           // max number of reports per location (0 = unlimited)
	StoreMaxAge     time.Duration // max age of reports (0 = unlimited)

	Port     string
	AppEnv   string
	LogLevel slog.Level
}

// locationsFile is the YAML shape of LOCATIONS_FILE.
type locationsFile struct {
	Locations []weather.Location `yaml:"locations"`
}

// Load reads configuration from the environment (after .env) with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "15m"); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", "10m"); err != nil {
		return nil, err
	}

	// Store retention.
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 96) // roughly 24h at 15-minute intervals
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	cfg.StoreDriver = strings.ToLower(getenvDefault("STORE_DRIVER", StoreDriverMemory))
	switch cfg.StoreDriver {
	case StoreDriverMemory, StoreDriverSQLite:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q (allowed: memory, sqlite)", cfg.StoreDriver)
	}
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "data/headache.db")

	cfg.Port = getenvDefault("PORT", "8080")

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}

	if cfg.LogLevel, err = ParseLogLevel(getenvDefault("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}

	locs, err := loadLocations()
	if err != nil {
		return nil, err
	}
	cfg.Locations = locs

	if cfg.OpenWeatherAPIKey == "" && cfg.WeatherAPIKey == "" {
		return nil, fmt.Errorf("at least one of OPENWEATHER_API_KEY or WEATHERAPI_API_KEY must be set")
	}

	return cfg, nil
}

// loadLocations merges LOCATIONS_FILE (YAML) with WEATHER_LOCATIONS
// (comma-separated cities), skipping duplicates.
func loadLocations() ([]weather.Location, error) {
	var locs []weather.Location
	seen := make(map[string]bool)

	add := func(l weather.Location) {
		l.City = strings.TrimSpace(l.City)
		l.Country = strings.TrimSpace(l.Country)
		if l.City == "" || seen[l.Key()] {
			return
		}
		seen[l.Key()] = true
		locs = append(locs, l)
	}

	if path := os.Getenv("LOCATIONS_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read locations file %s: %w", path, err)
		}
		var lf locationsFile
		if err := yaml.Unmarshal(data, &lf); err != nil {
			return nil, fmt.Errorf("failed to parse locations file %s: %w", path, err)
		}
		for _, l := range lf.Locations {
			add(l)
		}
	}

	for _, city := range strings.Split(os.Getenv("WEATHER_LOCATIONS"), ",") {
		add(weather.Location{City: city})
	}

	return locs, nil
}

// ParseLogLevel maps debug/info/warn/error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
