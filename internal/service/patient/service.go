package patient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/hmarroquin/labtrack-api/pkg/errors"

	"github.com/hmarroquin/labtrack-api/internal/model"
	"github.com/hmarroquin/labtrack-api/internal/repository"
)

type PatientService interface {
	Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error)
	Get(ctx context.Context, id int64) (*model.Patient, error)
	Update(ctx context.Context, id int64, req *model.UpdatePatientRequest) (*model.Patient, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error)
}

type Service struct {
	repo repository.PatientRepository
}

func NewService(repo repository.PatientRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	patient := &model.Patient{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Email:     req.Email,
		Status:    model.PatientStatusActive,
	}
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	return patient, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}

// Update applies only the fields the request carries; empty fields keep
// their current value.
func (s *Service) Update(ctx context.Context, id int64, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != "" {
		patient.FirstName = req.FirstName
	}
	if req.LastName != "" {
		patient.LastName = req.LastName
	}
	if req.Phone != "" {
		patient.Phone = req.Phone
	}
	if req.Email != "" {
		patient.Email = req.Email
	}
	if req.Status != "" {
		patient.Status = req.Status
	}

	if err := s.repo.Update(ctx, patient); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return patient, nil
}

// Delete deactivates the patient; records are never physically removed.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("patient", err)
		}
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error) {
	if filters == nil {
		filters = &model.PatientFilters{}
	}
	filters.Normalize()
	return s.repo.List(ctx, filters)
}
