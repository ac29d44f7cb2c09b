package agents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/grihome/grihome/pkg/logger"
)

// Sweeper periodically clears elapsed promotion windows so stale highlight
// flags never linger longer than one sweep interval.
type Sweeper struct {
	service  *Service
	schedule string
	log      *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewSweeper creates a sweeper on the given cron schedule (defaults to every
// 10 minutes).
func NewSweeper(service *Service, schedule string, log *logger.Logger) *Sweeper {
	if schedule == "" {
		schedule = "@every 10m"
	}
	if log == nil {
		log = logger.NewDefault("promotion-sweeper")
	}
	return &Sweeper{service: service, schedule: schedule, log: log}
}

// Name implements system.Service.
func (s *Sweeper) Name() string { return "promotion-sweeper" }

// Start schedules the sweep and runs one pass immediately.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("sweeper already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, s.sweep); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	s.cron = c
	s.running = true
	c.Start()

	go s.sweep()
	s.log.WithField("schedule", s.schedule).Info("promotion sweeper started")
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false

	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("promotion sweeper stopped")
	return nil
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.service.SweepExpiredPromotions(ctx); err != nil {
		s.log.WithError(err).Warn("promotion sweep failed")
	}
}
