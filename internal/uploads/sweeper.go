package uploads

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Sweeper periodically removes uploads left behind by requests that never cleaned up.
type Sweeper struct {
	scheduler *gocron.Scheduler
	store     *Store
	interval  time.Duration
	maxAge    time.Duration
	now       func() time.Time
}

// NewSweeper creates a Sweeper. Non-positive durations fall back to 10m and 1h.
func NewSweeper(store *Store, interval, maxAge time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Sweeper{
		scheduler: gocron.NewScheduler(time.UTC),
		store:     store,
		interval:  interval,
		maxAge:    maxAge,
		now:       time.Now,
	}
}

// Start schedules the sweep job and starts the scheduler.
func (s *Sweeper) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.RunOnce); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	slog.Info("upload sweeper started", "interval", s.interval, "max_age", s.maxAge)
	return nil
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce() {
	removed, err := s.store.Sweep(s.maxAge, s.now())
	if err != nil {
		slog.Warn("upload sweep failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("removed stale uploads", "count", removed)
	}
}

// Stop stops the scheduler.
func (s *Sweeper) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
