package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/headache-forecast/internal/weather"
)

// Refresher fetches and stores a fresh report for a location.
type Refresher interface {
	Refresh(ctx context.Context, loc weather.Location) error
}

// Scheduler periodically refreshes headache reports for configured locations.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	refresher  Refresher
	locations  []weather.Location
	interval   time.Duration
	jobTimeout time.Duration
	logger     *slog.Logger
}

// New creates a new Scheduler.
func New(locations []weather.Location, interval time.Duration, refresher Refresher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		refresher:  refresher,
		locations:  locations,
		interval:   interval,
		jobTimeout: 30 * time.Second,
		logger:     logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		s.logger.Info("scheduler: no locations configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval < time.Minute {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce refreshes every location concurrently and waits for all of them.
func (s *Scheduler) RunOnce() {
	s.logger.Debug("scheduler: running refresh job", "locations", len(s.locations))

	var wg sync.WaitGroup
	for _, loc := range s.locations {
		loc := loc // per-iteration copy (Go <1.22 loop semantics)
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
			defer cancel()

			if err := s.refresher.Refresh(ctx, loc); err != nil {
				s.logger.Warn("scheduler: refresh failed", "location", loc.Key(), "error", err)
			}
		}()
	}
	wg.Wait()
	s.logger.Debug("scheduler: completed refresh job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
