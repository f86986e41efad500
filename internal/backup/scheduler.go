package backup

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs DailyBackup on a fixed cadence
type Scheduler struct {
	manager  *Manager
	interval time.Duration
	log      *zap.Logger
	stop     chan struct{}
	once     sync.Once
}

// NewScheduler creates a scheduler; interval defaults to one hour
func NewScheduler(manager *Manager, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		manager:  manager,
		interval: interval,
		log:      log.Named("backup"),
		stop:     make(chan struct{}),
	}
}

// Start begins the background backup loop
func (s *Scheduler) Start() {
	go func() {
		s.log.Info("backup scheduler started", zap.Duration("interval", s.interval))
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if _, err := s.manager.DailyBackup(ctx); err != nil {
					s.log.Error("scheduled backup failed", zap.Error(err))
				}
				cancel()
			case <-s.stop:
				s.log.Info("backup scheduler stopped")
				return
			}
		}
	}()
}

// Stop halts the scheduler
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
}
