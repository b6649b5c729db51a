package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/remessasegura/backend/internal/storage"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically deletes expired and consumed reset tokens. Expiry
// is still enforced on every lookup; sweeping only bounds table growth.
type Sweeper struct {
	tokens   storage.ResetTokenRepository
	cron     *cron.Cron
	schedule string
	options
}

// NewSweeper parses schedule, a standard five-field cron spec or a
// descriptor such as "@hourly".
func NewSweeper(tokens storage.ResetTokenRepository, schedule string, opts ...Option) (*Sweeper, error) {
	s := &Sweeper{
		tokens:   tokens,
		cron:     cron.New(),
		schedule: schedule,
		options:  buildOptions(opts),
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.Sweep(context.Background()) }); err != nil {
		return nil, fmt.Errorf("reset sweeper schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule in its own goroutine.
func (s *Sweeper) Start() {
	s.logger.Info("reset token sweeper started", zap.String("schedule", s.schedule))
	s.cron.Start()
}

// Stop waits for a running sweep to finish or ctx to end.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("reset token sweeper stop timed out")
	}
}

// Sweep purges once and returns the number of deleted tokens.
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	n, err := s.tokens.PurgeExpired(ctx, s.now().UTC())
	if err != nil {
		s.logger.Error("reset token sweep failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		s.logger.Info("reset tokens purged", zap.Int64("count", n))
	}
	return n
}
