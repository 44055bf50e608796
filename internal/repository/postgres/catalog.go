package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hmarroquin/labtrack-api/internal/model"
	"github.com/hmarroquin/labtrack-api/internal/repository"
)

// Catalog tables (exam types, clinic price overrides) are maintained out of
// band and are not tenant scoped; they are shared reference data.
type catalogRepository struct {
	BaseRepository
}

func NewCatalogRepository(db *sqlx.DB) repository.CatalogRepository {
	return &catalogRepository{NewBaseRepository(db)}
}

func (r *catalogRepository) ExamType(ctx context.Context, id int64) (*model.ExamType, error) {
	query := `SELECT id, name, list_price FROM exam_types WHERE id = $1`
	var examType model.ExamType
	if err := r.db.GetContext(ctx, &examType, query, id); err != nil {
		return nil, fmt.Errorf("failed to get exam type: %w", err)
	}
	return &examType, nil
}

func (r *catalogRepository) ClinicSpecialPrice(ctx context.Context, clinicID, examTypeID int64) (float64, error) {
	query := `
		SELECT special_price FROM clinic_prices
		WHERE clinic_id = $1 AND exam_type_id = $2
		ORDER BY valid_from DESC
		LIMIT 1
	`
	var price float64
	err := r.db.GetContext(ctx, &price, query, clinicID, examTypeID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get clinic price: %w", err)
	}
	return price, nil
}
