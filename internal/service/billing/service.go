package billing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/hmarroquin/labtrack-api/pkg/errors"
	"github.com/hmarroquin/labtrack-api/pkg/logger"
	"github.com/hmarroquin/labtrack-api/pkg/metrics"

	"github.com/hmarroquin/labtrack-api/internal/model"
	"github.com/hmarroquin/labtrack-api/internal/repository"
)

// ErrNothingToPay is returned when the resolved exam set is empty: every
// named exam was already paid, belonged to someone else, or sat in another
// branch. The allocation aborts with no side effects.
var ErrNothingToPay = errors.New("nothing to pay")

type BillingService interface {
	PayFull(ctx context.Context, req *model.PayFullRequest) (*model.AllocationResult, error)
	PayPartial(ctx context.Context, req *model.PayPartialRequest) (*model.AllocationResult, error)
	PendingSummary(ctx context.Context, patientID int64) (*model.PendingSummary, error)
	History(ctx context.Context, patientID int64) ([]*model.Payment, error)
}

type Service struct {
	repo     repository.BillingRepository
	patients repository.PatientRepository
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(repo repository.BillingRepository, patients repository.PatientRepository, logger *logger.Logger, metrics *metrics.Metrics) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		logger:   logger,
		metrics:  metrics,
	}
}

// PayFull settles all of a patient's pending exams, or an explicit subset
// when one is given. The payment amount is always the sum of the resolved
// exams' applied prices.
func (s *Service) PayFull(ctx context.Context, req *model.PayFullRequest) (*model.AllocationResult, error) {
	if err := s.checkPatient(ctx, req.PatientID); err != nil {
		return nil, err
	}

	concept := req.Concept
	if concept == "" {
		concept = "exam payment"
	}
	return s.allocate(ctx, allocation{
		patientID: req.PatientID,
		examIDs:   req.ExamIDs,
		methodID:  req.MethodID,
		concept:   concept,
		note:      req.Note,
	})
}

// PayPartial settles the named exams against a caller-supplied amount that
// must not exceed their total. Allocation is at exam granularity: the
// balance is consumed oldest exam first, and an exam is linked as soon as
// any remaining balance is applied toward it, even when that balance is
// smaller than its price. Fractional coverage per exam is not tracked.
func (s *Service) PayPartial(ctx context.Context, req *model.PayPartialRequest) (*model.AllocationResult, error) {
	if err := s.checkPatient(ctx, req.PatientID); err != nil {
		return nil, err
	}

	concept := req.Concept
	if concept == "" {
		concept = "partial exam payment"
	}
	amount := req.Amount
	return s.allocate(ctx, allocation{
		patientID: req.PatientID,
		examIDs:   req.ExamIDs,
		amount:    &amount,
		methodID:  req.MethodID,
		concept:   concept,
		note:      req.Note,
	})
}

type allocation struct {
	patientID int64
	examIDs   []int64
	// amount is nil for full payment (amount = total of resolved exams).
	amount   *float64
	methodID int64
	concept  string
	note     *string
}

// allocate is the single unit of work both entry points share. Everything
// between resolving the exam set and writing the invoice happens on one
// transaction; any failure rolls the whole allocation back.
func (s *Service) allocate(ctx context.Context, alloc allocation) (*model.AllocationResult, error) {
	start := time.Now()
	var result *model.AllocationResult

	err := s.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		exams, err := s.repo.PendingExamsTx(ctx, tx, alloc.patientID, alloc.examIDs)
		if err != nil {
			return err
		}
		if len(exams) == 0 {
			return ErrNothingToPay
		}

		var total float64
		for _, exam := range exams {
			total += exam.AppliedPrice
		}

		amount := total
		if alloc.amount != nil {
			amount = *alloc.amount
			if amount <= 0 || amount > total {
				return apperrors.BadRequest(
					fmt.Sprintf("invalid amount, selected total is %.2f", total), nil)
			}
		}

		now := time.Now()
		payment := &model.Payment{
			PatientID:   alloc.patientID,
			MethodID:    alloc.methodID,
			Amount:      amount,
			Concept:     alloc.concept,
			Note:        alloc.note,
			Status:      model.PaymentStatusSettled,
			GeneratedAt: now,
			SettledAt:   now,
		}
		if err := s.repo.InsertPaymentTx(ctx, tx, payment); err != nil {
			return err
		}

		linked := 0
		if alloc.amount == nil {
			for _, exam := range exams {
				if err := s.repo.LinkExamTx(ctx, tx, exam.ID, payment.ID); err != nil {
					return err
				}
				linked++
			}
		} else {
			remaining := amount
			for _, exam := range exams {
				if remaining <= 0 {
					break
				}
				if err := s.repo.LinkExamTx(ctx, tx, exam.ID, payment.ID); err != nil {
					return err
				}
				linked++
				remaining -= exam.AppliedPrice
			}
		}

		invoice := &model.Invoice{
			PaymentID: payment.ID,
			Total:     amount,
			IssuedAt:  now,
		}
		if err := s.repo.InsertInvoiceTx(ctx, tx, invoice); err != nil {
			return err
		}

		payload, err := json.Marshal(map[string]interface{}{
			"payment_id": payment.ID,
			"patient_id": alloc.patientID,
			"amount":     amount,
			"count":      linked,
		})
		if err != nil {
			return err
		}
		if err := s.repo.InsertEventTx(ctx, tx, &model.OutboxEvent{
			EventType: model.EventPaymentCreated,
			Payload:   payload,
		}); err != nil {
			return err
		}

		result = &model.AllocationResult{
			PaymentID: payment.ID,
			Count:     linked,
			Total:     amount,
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrNothingToPay) {
			return nil, err
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.ErrBadRequest {
			return nil, err
		}
		s.metrics.PaymentsFailed.Inc()
		s.logger.Error(err, "payment allocation rolled back", "patient_id", alloc.patientID)
		return nil, apperrors.Internal(err)
	}

	s.metrics.PaymentsAllocated.Inc()
	s.metrics.AmountSettled.Add(result.Total)
	s.metrics.AllocationDuration.Observe(time.Since(start).Seconds())
	return result, nil
}

// PendingSummary lists a patient's unpaid exams and their total.
func (s *Service) PendingSummary(ctx context.Context, patientID int64) (*model.PendingSummary, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	exams, err := s.repo.PendingSummary(ctx, patientID)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, exam := range exams {
		total += exam.Amount
	}
	return &model.PendingSummary{
		PatientID: patientID,
		Patient:   patient.FirstName + " " + patient.LastName,
		Count:     len(exams),
		Total:     total,
		Exams:     exams,
	}, nil
}

func (s *Service) History(ctx context.Context, patientID int64) ([]*model.Payment, error) {
	return s.repo.History(ctx, patientID)
}

func (s *Service) checkPatient(ctx context.Context, patientID int64) error {
	exists, err := s.patients.Exists(ctx, patientID)
	if err != nil {
		return fmt.Errorf("failed to check patient: %w", err)
	}
	if !exists {
		return apperrors.BadRequest("patient does not exist or is inactive", nil)
	}
	return nil
}
