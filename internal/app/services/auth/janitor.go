package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/grihome/grihome/pkg/logger"
)

// Janitor drops expired sessions on an interval so the session table does
// not grow without bound.
type Janitor struct {
	service  *Service
	interval time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewJanitor creates a janitor (default interval 1h).
func NewJanitor(service *Service, interval time.Duration, log *logger.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = logger.NewDefault("session-janitor")
	}
	return &Janitor{service: service, interval: interval, log: log}
}

// Name implements system.Service.
func (j *Janitor) Name() string { return "session-janitor" }

// Start launches the cleanup loop.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return fmt.Errorf("janitor already running")
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.running = true

	j.wg.Add(1)
	go j.loop(loopCtx)
	j.log.WithField("interval", j.interval.String()).Info("session janitor started")
	return nil
}

// Stop halts the loop and waits for an in-flight pass.
func (j *Janitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = false
	j.cancel()
	j.mu.Unlock()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	j.log.Info("session janitor stopped")
	return nil
}

func (j *Janitor) loop(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	removed, err := j.service.CleanupSessions(ctx)
	if err != nil {
		j.log.WithError(err).Warn("session cleanup failed")
		return
	}
	if removed > 0 {
		j.log.WithField("removed", removed).Info("expired sessions removed")
	}
}
