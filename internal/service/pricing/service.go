package pricing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	apperrors "github.com/hmarroquin/labtrack-api/pkg/errors"

	"github.com/hmarroquin/labtrack-api/internal/model"
	"github.com/hmarroquin/labtrack-api/internal/repository"
)

// Service resolves the price applied to a new exam: the clinic-specific
// override when one is requested and present, otherwise the exam type's list
// price. Catalog rows change rarely, so lookups are cached.
type Service struct {
	catalog repository.CatalogRepository
	cache   *cache.Cache
}

func NewService(catalog repository.CatalogRepository) *Service {
	return &Service{
		catalog: catalog,
		cache:   cache.New(5*time.Minute, 10*time.Minute),
	}
}

// ExamType returns the catalog entry, or a not-found error the caller can
// surface as validation failure.
func (s *Service) ExamType(ctx context.Context, id int64) (*model.ExamType, error) {
	key := fmt.Sprintf("exam_type:%d", id)
	if cached, found := s.cache.Get(key); found {
		return cached.(*model.ExamType), nil
	}

	examType, err := s.catalog.ExamType(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("exam type", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve exam type: %w", err)
	}

	s.cache.Set(key, examType, cache.DefaultExpiration)
	return examType, nil
}

// ResolvePrice fixes the price an exam will carry for its whole life.
func (s *Service) ResolvePrice(ctx context.Context, examTypeID int64, clinicID *int64, useClinicPrice bool) (float64, error) {
	if useClinicPrice && clinicID != nil {
		price, err := s.clinicPrice(ctx, *clinicID, examTypeID)
		if err != nil {
			return 0, err
		}
		if price > 0 {
			return price, nil
		}
	}

	examType, err := s.ExamType(ctx, examTypeID)
	if err != nil {
		return 0, err
	}
	return examType.ListPrice, nil
}

func (s *Service) clinicPrice(ctx context.Context, clinicID, examTypeID int64) (float64, error) {
	key := fmt.Sprintf("clinic_price:%d:%d", clinicID, examTypeID)
	if cached, found := s.cache.Get(key); found {
		return cached.(float64), nil
	}

	price, err := s.catalog.ClinicSpecialPrice(ctx, clinicID, examTypeID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve clinic price: %w", err)
	}

	s.cache.Set(key, price, cache.DefaultExpiration)
	return price, nil
}
