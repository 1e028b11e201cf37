package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mcq-genie/mcq-service/internal/services"
)

// ExpiryWorker periodically closes active test sessions whose deadline has
// passed. Mutating endpoints already finalize overdue sessions on touch; the
// sweeper catches the ones nobody touches again.
type ExpiryWorker struct {
	testService services.TestService
	logger      *slog.Logger
	interval    time.Duration
	batchSize   int
}

func NewExpiryWorker(testService services.TestService, logger *slog.Logger, interval time.Duration, batchSize int) *ExpiryWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ExpiryWorker{
		testService: testService,
		logger:      logger,
		interval:    interval,
		batchSize:   batchSize,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (w *ExpiryWorker) Run(ctx context.Context) {
	w.logger.Info("Expiry sweeper started",
		"interval", w.interval.String(),
		"batch_size", w.batchSize)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	closed, err := w.testService.ExpireOverdue(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("Expiry sweep failed", "error", err)
		return
	}
	if closed > 0 {
		w.logger.Info("Expired overdue sessions", "closed", closed)
	}
}
