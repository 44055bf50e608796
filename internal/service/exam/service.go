package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/hmarroquin/labtrack-api/pkg/errors"
	"github.com/hmarroquin/labtrack-api/pkg/logger"

	"github.com/hmarroquin/labtrack-api/internal/model"
	"github.com/hmarroquin/labtrack-api/internal/repository"
	"github.com/hmarroquin/labtrack-api/internal/service/inventory"
	"github.com/hmarroquin/labtrack-api/internal/service/pricing"
)

// groupWindow is how long after a patient's last grouped exam a new order
// still joins the same group.
const groupWindow = 15 * time.Minute

type ExamService interface {
	Create(ctx context.Context, req *model.CreateExamRequest) (*model.Exam, error)
	Get(ctx context.Context, id int64) (*model.Exam, error)
	List(ctx context.Context, filters *model.ExamFilters) ([]*model.Exam, error)
	ListByPatient(ctx context.Context, patientID int64) ([]*model.Exam, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

type Service struct {
	repo      repository.ExamRepository
	patients  repository.PatientRepository
	outbox    repository.OutboxRepository
	pricing   *pricing.Service
	inventory inventory.InventoryService
	logger    *logger.Logger
}

func NewService(
	repo repository.ExamRepository,
	patients repository.PatientRepository,
	outbox repository.OutboxRepository,
	pricing *pricing.Service,
	inventory inventory.InventoryService,
	logger *logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		patients:  patients,
		outbox:    outbox,
		pricing:   pricing,
		inventory: inventory,
		logger:    logger,
	}
}

// Create registers a new exam order. The applied price is resolved once, at
// this moment, and stays on the record for its whole life. Supply drawdown
// and the outbox event run after the exam is persisted and never fail the
// order.
func (s *Service) Create(ctx context.Context, req *model.CreateExamRequest) (*model.Exam, error) {
	exists, err := s.patients.Exists(ctx, req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to check patient: %w", err)
	}
	if !exists {
		return nil, apperrors.BadRequest("patient does not exist or is inactive", nil)
	}

	if _, err := s.pricing.ExamType(ctx, req.ExamTypeID); err != nil {
		return nil, err
	}

	price, err := s.pricing.ResolvePrice(ctx, req.ExamTypeID, req.ClinicID, req.UseClinicPrice)
	if err != nil {
		return nil, err
	}

	groupID, err := s.resolveGroup(ctx, req)
	if err != nil {
		return nil, err
	}

	exam := &model.Exam{
		PatientID:      req.PatientID,
		ExamTypeID:     req.ExamTypeID,
		ClinicID:       req.ClinicID,
		UseClinicPrice: req.UseClinicPrice,
		AppliedPrice:   price,
		Result:         req.Result,
		Status:         model.ExamStatusRegistered,
		GroupID:        groupID,
		ReferrerID:     req.ReferrerID,
		RegisteredAt:   time.Now(),
	}
	if err := s.repo.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	s.inventory.ConsumeForExam(ctx, exam)
	s.publishCreated(ctx, exam)

	return exam, nil
}

// resolveGroup picks the group id for a new order: an explicit id wins, then
// the patient's most recent group when it is still inside the window, then a
// fresh id. Ungrouped orders carry none.
func (s *Service) resolveGroup(ctx context.Context, req *model.CreateExamRequest) (*string, error) {
	if req.GroupID != nil && *req.GroupID != "" {
		return req.GroupID, nil
	}
	if !req.Group {
		return nil, nil
	}

	latest, registeredAt, err := s.repo.LatestGroup(ctx, req.PatientID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to resolve exam group: %w", err)
	}
	if latest != nil && time.Since(registeredAt) <= groupWindow {
		return latest, nil
	}

	id := uuid.New().String()
	return &id, nil
}

func (s *Service) publishCreated(ctx context.Context, exam *model.Exam) {
	payload, err := json.Marshal(map[string]interface{}{
		"exam_id":    exam.ID,
		"patient_id": exam.PatientID,
		"branch_id":  exam.BranchID,
		"price":      exam.AppliedPrice,
	})
	if err != nil {
		s.logger.Error(err, "failed to encode exam event", "exam_id", exam.ID)
		return
	}
	event := &model.OutboxEvent{
		EventType: model.EventExamCreated,
		Payload:   payload,
	}
	if err := s.outbox.Create(ctx, event); err != nil {
		s.logger.Error(err, "failed to enqueue exam event", "exam_id", exam.ID)
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Exam, error) {
	exam, err := s.repo.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("exam", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

func (s *Service) List(ctx context.Context, filters *model.ExamFilters) ([]*model.Exam, error) {
	if filters == nil {
		filters = &model.ExamFilters{}
	}
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) ListByPatient(ctx context.Context, patientID int64) ([]*model.Exam, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// UpdateStatus toggles an exam between registered and void. Paid is owned
// by the payment allocation and is only ever set through exam linking.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) error {
	switch status {
	case model.ExamStatusRegistered, model.ExamStatusVoid:
	default:
		return apperrors.BadRequest(fmt.Sprintf("cannot set exam status %q", status), nil)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("exam", err)
		}
		return fmt.Errorf("failed to update exam status: %w", err)
	}
	return nil
}
