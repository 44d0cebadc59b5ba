package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/headache-forecast/internal/api/http"
	"github.com/i474232898/headache-forecast/internal/config"
	"github.com/i474232898/headache-forecast/internal/logging"
	"github.com/i474232898/headache-forecast/internal/scheduler"
	"github.com/i474232898/headache-forecast/internal/share"
	"github.com/i474232898/headache-forecast/internal/store"
	"github.com/i474232898/headache-forecast/internal/weather"
	"github.com/i474232898/headache-forecast/internal/weather/providers"
)

const appName = "headache-forecast"

// Set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(os.Stdout, cfg, appName, version)
	slog.SetDefault(log)

	log.Info("starting",
		"version", version,
		"env", cfg.AppEnv,
		"store", cfg.StoreDriver,
		"locations", len(cfg.Locations),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("run failed", "error", err)
		os.Exit(1)
	}

	log.Info("shutting down")
}

func run(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) error {
	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	reportStore, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Providers with resilience (backoff + circuit breaker), tried in order.
	var provs []weather.Provider
	if cfg.OpenWeatherAPIKey != "" {
		provs = append(provs, providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey))
	}
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey))
	}

	// Core service orchestrating providers and store.
	service := weather.NewService(reportStore, provs,
		weather.WithLogger(log.With("component", "weather")),
		weather.WithCacheTTL(cfg.CacheTTL),
	)

	var sharer httpapi.Sharer
	if cfg.TelegramBotToken != "" {
		tg, err := share.NewTelegramSharerFromToken(cfg.TelegramBotToken)
		if err != nil {
			// Sharing is optional; the API answers 503 for it.
			log.Warn("telegram sharing disabled", "error", err)
		} else {
			sharer = tg
		}
	}

	// Scheduler that keeps reports for configured cities warm.
	sched := scheduler.New(cfg.Locations, cfg.FetchInterval, service, log.With("component", "scheduler"))
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	httpapi.RegisterRoutes(app, service, sharer)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "port", cfg.Port)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("fiber server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	return nil
}

func openStore(cfg *config.AppConfig) (weather.Store, func(), error) {
	if cfg.StoreDriver == config.StoreDriverSQLite {
		s, err := store.OpenSQLite(cfg.SQLitePath, cfg.StoreMaxHistory, cfg.StoreMaxAge)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, func() {
			if err := s.Close(); err != nil {
				slog.Error("close sqlite store", "error", err)
			}
		}, nil
	}

	// In-memory store with configured retention.
	return store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge), func() {}, nil
}
