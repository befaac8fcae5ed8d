package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/snapdocs/internal/metrics"
	"github.com/robfig/cron/v3"
)

type revocationPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// RevocationPurger deletes revoked-token rows whose token has expired. Expired
// tokens fail verification on their own, so the rows are dead weight.
type RevocationPurger struct {
	repo     revocationPurger
	schedule cron.Schedule
	logger   *slog.Logger
	now      func() time.Time
}

// NewRevocationPurger accepts standard cron expressions and descriptors
// such as "@hourly" or "@every 30m".
func NewRevocationPurger(repo revocationPurger, spec string, logger *slog.Logger) (*RevocationPurger, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse purge schedule %q: %w", spec, err)
	}
	return &RevocationPurger{
		repo:     repo,
		schedule: sched,
		logger:   logger.With("component", "revocation_purger"),
		now:      time.Now,
	}, nil
}

// Start blocks until ctx is cancelled, purging at each scheduled time.
func (p *RevocationPurger) Start(ctx context.Context) {
	p.logger.Info("revocation purger started", "next_run", p.schedule.Next(p.now()))

	for {
		timer := time.NewTimer(time.Until(p.schedule.Next(p.now())))
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("revocation purger shut down")
			return
		case <-timer.C:
			p.Purge(ctx)
		}
	}
}

// Purge runs one cycle and returns how many rows were removed.
func (p *RevocationPurger) Purge(ctx context.Context) int {
	start := time.Now()
	defer func() {
		metrics.PurgeCycleDuration.Observe(time.Since(start).Seconds())
	}()

	n, err := p.repo.PurgeExpired(ctx, p.now())
	if err != nil {
		p.logger.ErrorContext(ctx, "purge expired revocations", "error", err)
		return 0
	}
	if n > 0 {
		metrics.RevocationsPurgedTotal.Add(float64(n))
		p.logger.InfoContext(ctx, "purged expired revocations", "count", n)
	}
	return n
}
