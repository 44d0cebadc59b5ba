package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/headache-forecast/internal/headache"
)

// DefaultCacheTTL is how long a stored report is served before refetching.
const DefaultCacheTTL = 10 * time.Minute

var errNoProviders = errors.New("no weather providers configured")

// Service orchestrates fetching from providers, classifying and persisting reports.
type Service struct {
	store     Store
	providers []Provider
	logger    *slog.Logger
	cacheTTL  time.Duration
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCacheTTL sets how long a stored report is considered fresh. Zero disables caching.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Service) {
		s.cacheTTL = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new Service. Providers are tried in order.
func NewService(store Store, providers []Provider, opts ...Option) *Service {
	s := &Service{
		store:     store,
		providers: providers,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		cacheTTL:  DefaultCacheTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetReport returns a fresh stored report for loc, fetching a new one when
// the stored report is missing or older than the cache TTL.
func (s *Service) GetReport(ctx context.Context, loc Location) (Report, error) {
	if s.cacheTTL > 0 && s.store != nil {
		cached, err := s.store.GetLatest(loc)
		if err == nil && s.now().Sub(cached.FetchedAt) < s.cacheTTL {
			s.logger.Debug("serving cached report", "location", loc.Key(), "fetched_at", cached.FetchedAt)
			return cached, nil
		}
		if err != nil {
			s.logger.Debug("cache miss", "location", loc.Key(), "error", err)
		}
	}
	return s.FetchReport(ctx, loc)
}

// FetchReport fetches the current reading and forecast for loc, classifies the
// current reading and stores the resulting report.
func (s *Service) FetchReport(ctx context.Context, loc Location) (Report, error) {
	if len(s.providers) == 0 {
		s.logger.Error("no providers available", "location", loc.Key())
		return Report{}, errNoProviders
	}

	current, provider, err := s.fetchCurrent(ctx, loc)
	if err != nil {
		return Report{}, err
	}

	now := s.now().UTC()

	var forecast DayForecast
	samples, err := provider.FetchForecast(ctx, loc)
	if err != nil {
		// Forecast is best effort; the report still carries the current risk.
		s.logger.Warn("forecast fetch failed", "provider", provider.Name(), "location", loc.Key(), "error", err)
	} else {
		forecast = BuildDayForecast(samples, now)
	}

	report := Report{
		ID:        uuid.NewString(),
		Location:  loc,
		FetchedAt: now,
		Current:   current,
		Forecast:  forecast,
		Risk:      headache.Classify(current.PressureHpa, current.Condition),
	}

	s.logger.Info("report fetched",
		"location", loc.Key(),
		"provider", provider.Name(),
		"pressure_hpa", current.PressureHpa,
		"condition", current.Condition,
		"risk", report.Risk.Level,
	)

	if s.store != nil {
		if err := s.store.SaveReport(report); err != nil {
			s.logger.Error("failed to store report", "location", loc.Key(), "error", err)
		}
	}

	return report, nil
}

// fetchCurrent asks providers in order and returns the first successful
// reading together with the provider that served it.
func (s *Service) fetchCurrent(ctx context.Context, loc Location) (Reading, Provider, error) {
	var (
		notFound bool
		lastErr  error
	)

	for _, p := range s.providers {
		r, err := p.FetchCurrent(ctx, loc)
		if err == nil {
			if r.ProviderName == "" {
				r.ProviderName = p.Name()
			}
			return r, p, nil
		}

		s.logger.Warn("provider fetch failed", "provider", p.Name(), "location", loc.Key(), "error", err)
		if errors.Is(err, ErrLocationNotFound) {
			notFound = true
		}
		lastErr = err

		if ctx.Err() != nil {
			return Reading{}, nil, ctx.Err()
		}
	}

	if notFound {
		return Reading{}, nil, fmt.Errorf("%s: %w", loc.Query(), ErrLocationNotFound)
	}
	return Reading{}, nil, fmt.Errorf("all providers failed for %s: %w", loc.Query(), lastErr)
}

// Refresh fetches and stores a new report for loc.
func (s *Service) Refresh(ctx context.Context, loc Location) error {
	_, err := s.FetchReport(ctx, loc)
	return err
}

// GetHistory delegates to the underlying store.
func (s *Service) GetHistory(loc Location, from, to time.Time) ([]Report, error) {
	if s.store == nil {
		return nil, errors.New("no report store configured")
	}
	return s.store.GetRange(loc, from, to)
}
