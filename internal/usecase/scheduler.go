package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/riskibarqy/fpl-sync/internal/platform/logging"
)

// Scheduler drives periodic sync cycles on a fixed interval. At most one
// cycle runs at a time; ticks arriving while a cycle is in flight are
// coalesced into skips, never queued.
type Scheduler struct {
	service  *SyncService
	interval time.Duration
	logger   *logging.Logger

	mu      sync.Mutex
	running bool
}

func NewScheduler(service *SyncService, interval time.Duration, logger *logging.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

// Run executes one cycle immediately, then one per interval until the
// context is canceled. It returns the context error once stopped.
func (s *Scheduler) Run(ctx context.Context) error {
	s.runOnce(ctx, false)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx, false)
			// A cycle longer than the interval leaves one buffered tick
			// behind; drop it so missed ticks are skipped, not queued.
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

// RunOnce executes a single cycle and returns its result. Used by the
// one-shot CLI mode and by ticks.
func (s *Scheduler) RunOnce(ctx context.Context, forceRefresh bool) (SyncResult, error) {
	return s.service.RunCycle(ctx, forceRefresh)
}

func (s *Scheduler) runOnce(ctx context.Context, forceRefresh bool) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "sync cycle still in flight, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	started := time.Now()
	result, err := s.service.RunCycle(ctx, forceRefresh)
	if err != nil {
		s.logger.ErrorContext(ctx, "sync cycle failed", "error", err, "duration", time.Since(started).String())
		return
	}
	s.logger.InfoContext(ctx, "sync cycle finished",
		"outcome", string(result.Outcome),
		"gameweeks_refreshed", result.GameweeksRefreshed,
		"entries_refreshed", result.EntriesRefreshed,
		"scope_errors", len(result.ScopeErrors),
		"duration", time.Since(started).String(),
	)
}
