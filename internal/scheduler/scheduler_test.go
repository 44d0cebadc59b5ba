package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/headache-forecast/internal/weather"
)

type recordingRefresher struct {
	mu     sync.Mutex
	cities map[string]int
	fail   string
}

func (r *recordingRefresher) Refresh(ctx context.Context, loc weather.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cities == nil {
		r.cities = make(map[string]int)
	}
	r.cities[loc.City]++
	if loc.City == r.fail {
		return errors.New("provider down")
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("refresh without deadline")
	}
	return nil
}

func (r *recordingRefresher) count(city string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cities[city]
}

func TestRunOnceRefreshesEveryLocation(t *testing.T) {
	ref := &recordingRefresher{fail: "大阪府"}
	locs := []weather.Location{{City: "東京都"}, {City: "大阪府"}, {City: "札幌市"}}

	s := New(locs, 15*time.Minute, ref, nil)
	s.RunOnce()

	for _, l := range locs {
		if got := ref.count(l.City); got != 1 {
			t.Errorf("%s refreshed %d times, want 1", l.City, got)
		}
	}
}

func TestStartWithoutLocationsIsNoop(t *testing.T) {
	s := New(nil, time.Minute, &recordingRefresher{}, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
}

func TestStartRunsImmediately(t *testing.T) {
	ref := &recordingRefresher{}
	s := New([]weather.Location{{City: "那覇市"}}, time.Hour, ref, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ref.count("那覇市") > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scheduler did not run the job on start")
}
