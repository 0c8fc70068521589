package platform

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler refreshes every entity on a fixed interval.
type Scheduler struct {
	platform *Platform
	interval time.Duration
	log      *zap.Logger
}

// NewScheduler creates a scheduler. interval <= 0 uses 30s.
func NewScheduler(p *Platform, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{platform: p, interval: interval, log: log}
}

// Interval returns the polling interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Run refreshes immediately, then once per interval until ctx is done.
// A tick that overruns the interval delays the next one rather than
// overlapping it.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("Polling started", zap.Duration("interval", s.interval))
	defer s.log.Info("Polling stopped")

	s.platform.RefreshAll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.log.Debug("Poll tick", zap.Int("entities", len(s.platform.Entities())))
			s.platform.RefreshAll(ctx)
		}
	}
}
