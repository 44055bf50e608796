package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/hmarroquin/labtrack-api/pkg/errors"
	"github.com/hmarroquin/labtrack-api/pkg/logger"
	"github.com/hmarroquin/labtrack-api/pkg/metrics"

	"github.com/hmarroquin/labtrack-api/internal/model"
	"github.com/hmarroquin/labtrack-api/internal/repository"
)

type InventoryService interface {
	ConsumeForExam(ctx context.Context, exam *model.Exam)
	ConsumeManual(ctx context.Context, req *model.ManualUsageRequest) error
	PendingAlerts(ctx context.Context) ([]*model.Supply, error)
	ListUsage(ctx context.Context, filters *model.UsageFilters) ([]*model.UsageRecord, error)

	CreateSupply(ctx context.Context, supply *model.Supply) error
	GetSupply(ctx context.Context, id int64) (*model.Supply, error)
	UpdateSupply(ctx context.Context, supply *model.Supply) error
	ListSupplies(ctx context.Context) ([]*model.Supply, error)
}

type Service struct {
	repo    repository.SupplyRepository
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(repo repository.SupplyRepository, logger *logger.Logger, metrics *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
	}
}

// ConsumeForExam draws down every supply the exam's type requires and writes
// the matching usage records. It runs after the exam is committed and is
// strictly best-effort: any failure is logged and swallowed so stock
// bookkeeping can never block or undo order placement. Stock never goes
// below zero; the usage record keeps the full required quantity.
func (s *Service) ConsumeForExam(ctx context.Context, exam *model.Exam) {
	requirements, err := s.repo.Requirements(ctx, exam.ExamTypeID)
	if err != nil {
		s.metrics.DrawdownFailures.Inc()
		s.logger.Error(err, "failed to load supply requirements", "exam_id", exam.ID)
		return
	}

	for _, req := range requirements {
		if err := s.repo.DecrementStock(ctx, req.SupplyID, req.Quantity); err != nil {
			s.metrics.DrawdownFailures.Inc()
			s.logger.Error(err, "failed to draw down supply",
				"exam_id", exam.ID, "supply_id", req.SupplyID)
			continue
		}

		record := &model.UsageRecord{
			SupplyID:      req.SupplyID,
			ExamID:        &exam.ID,
			Quantity:      req.Quantity,
			Justification: model.JustificationAutoExam,
		}
		if err := s.repo.InsertUsage(ctx, record); err != nil {
			s.metrics.DrawdownFailures.Inc()
			s.logger.Error(err, "failed to record supply usage",
				"exam_id", exam.ID, "supply_id", req.SupplyID)
			continue
		}

		s.metrics.StockDrawdowns.WithLabelValues("auto").Inc()
	}
}

// ConsumeManual records an ad-hoc drawdown with no exam linkage. Unlike the
// automatic path this is a direct user action, so failures are returned.
func (s *Service) ConsumeManual(ctx context.Context, req *model.ManualUsageRequest) error {
	if _, err := s.GetSupply(ctx, req.SupplyID); err != nil {
		return err
	}

	if err := s.repo.DecrementStock(ctx, req.SupplyID, req.Quantity); err != nil {
		return fmt.Errorf("failed to draw down supply: %w", err)
	}

	justification := req.Justification
	if justification == "" {
		justification = model.JustificationManual
	}
	record := &model.UsageRecord{
		SupplyID:      req.SupplyID,
		Quantity:      req.Quantity,
		Justification: justification,
	}
	if err := s.repo.InsertUsage(ctx, record); err != nil {
		return fmt.Errorf("failed to record supply usage: %w", err)
	}

	s.metrics.StockDrawdowns.WithLabelValues("manual").Inc()
	return nil
}

// PendingAlerts lists supplies at or below their minimum threshold for the
// active branch, most depleted first.
func (s *Service) PendingAlerts(ctx context.Context) ([]*model.Supply, error) {
	supplies, err := s.repo.BelowMinimum(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list supply alerts: %w", err)
	}
	return supplies, nil
}

func (s *Service) ListUsage(ctx context.Context, filters *model.UsageFilters) ([]*model.UsageRecord, error) {
	if filters == nil {
		filters = &model.UsageFilters{}
	}
	return s.repo.ListUsage(ctx, filters)
}

func (s *Service) CreateSupply(ctx context.Context, supply *model.Supply) error {
	if err := s.repo.Create(ctx, supply); err != nil {
		return fmt.Errorf("failed to create supply: %w", err)
	}
	return nil
}

func (s *Service) GetSupply(ctx context.Context, id int64) (*model.Supply, error) {
	supply, err := s.repo.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("supply", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get supply: %w", err)
	}
	return supply, nil
}

func (s *Service) UpdateSupply(ctx context.Context, supply *model.Supply) error {
	if err := s.repo.Update(ctx, supply); err != nil {
		return fmt.Errorf("failed to update supply: %w", err)
	}
	return nil
}

func (s *Service) ListSupplies(ctx context.Context) ([]*model.Supply, error) {
	return s.repo.List(ctx)
}
