// Package jobs runs background tasks on cron schedules.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slog"
)

// PendingCounter reports the size of a payment status queue.
type PendingCounter interface {
	CountByStatus(ctx context.Context, status models.PaymentStatus) (int64, decimal.Decimal, error)
}

// DigestNotifier delivers the pending payments digest.
type DigestNotifier interface {
	PendingDigest(ctx context.Context, count int64, total decimal.Decimal) bool
}

// Scheduler manages background jobs.
type Scheduler struct {
	cron     *cron.Cron
	payments PendingCounter
	notifier DigestNotifier
	digest   string
}

// NewScheduler creates a scheduler in the given IANA zone. An unknown zone
// falls back to UTC+6.
func NewScheduler(timezone, digestSpec string, payments PendingCounter, notifier DigestNotifier) *Scheduler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		slog.Warn("Failed to load scheduler timezone, using UTC+6", "timezone", timezone, "error", err)
		loc = time.FixedZone("BDT", 6*60*60)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		payments: payments,
		notifier: notifier,
		digest:   digestSpec,
	}
}

// Start registers the jobs and starts the cron loop. An empty schedule disables
// its job.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.digest == "" {
		slog.Info("Pending payment digest disabled")
	} else {
		_, err := s.cron.AddFunc(s.digest, func() {
			if err := s.RunPendingDigest(ctx); err != nil {
				slog.Error("[CRON] Pending payment digest failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid pending digest schedule %q: %w", s.digest, err)
		}
	}

	s.cron.Start()
	slog.Info("Job scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// RunPendingDigest notifies admins when payment requests await review.
func (s *Scheduler) RunPendingDigest(ctx context.Context) error {
	count, total, err := s.payments.CountByStatus(ctx, models.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("failed to count pending payments: %w", err)
	}
	if count == 0 {
		slog.Debug("[CRON] No pending payments")
		return nil
	}

	sent := s.notifier.PendingDigest(ctx, count, total)
	slog.Info("[CRON] Pending payment digest", "count", count, "total", total.String(), "sent", sent)
	return nil
}

// Stop halts the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("Job scheduler stopped")
}
