package worker

import (
	"context"
	"time"

	"github.com/hmarroquin/labtrack-api/internal/email"
	"github.com/hmarroquin/labtrack-api/internal/repository"
	"github.com/hmarroquin/labtrack-api/internal/tenant"
	"github.com/hmarroquin/labtrack-api/pkg/logger"
	"github.com/hmarroquin/labtrack-api/pkg/metrics"
)

type StockAlertConfig struct {
	Interval   time.Duration
	Recipients []string
}

// StockAlertWorker periodically sweeps every branch for supplies at or below
// their minimum threshold and mails the configured recipients. Failures are
// logged and retried on the next tick.
type StockAlertWorker struct {
	branches repository.BranchRepository
	supplies repository.SupplyRepository
	sender   email.Sender
	config   StockAlertConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewStockAlertWorker(
	branches repository.BranchRepository,
	supplies repository.SupplyRepository,
	sender email.Sender,
	config StockAlertConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *StockAlertWorker {
	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}
	return &StockAlertWorker{
		branches: branches,
		supplies: supplies,
		sender:   sender,
		config:   config,
		logger:   logger,
		metrics:  metrics,
	}
}

func (w *StockAlertWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.logger.Info("starting stock alert worker")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down stock alert worker")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over all branches.
func (w *StockAlertWorker) Sweep(ctx context.Context) {
	branches, err := w.branches.List(ctx)
	if err != nil {
		w.logger.Error(err, "failed to list branches for stock sweep")
		return
	}

	lowTotal := 0
	for _, branch := range branches {
		// The supply repository filters by the branch on the context,
		// same as it does for requests.
		branchCtx := tenant.WithBranch(ctx, branch.ID)

		low, err := w.supplies.BelowMinimum(branchCtx)
		if err != nil {
			w.logger.Error(err, "failed to query low-stock supplies", "branch_id", branch.ID)
			continue
		}
		lowTotal += len(low)
		if len(low) == 0 {
			continue
		}

		for _, to := range w.config.Recipients {
			if err := w.sender.SendLowStockAlert(branchCtx, to, branch, low); err != nil {
				w.logger.Error(err, "failed to send stock alert", "branch_id", branch.ID, "to", to)
			}
		}
	}

	w.metrics.LowStockSupplies.Set(float64(lowTotal))
}
