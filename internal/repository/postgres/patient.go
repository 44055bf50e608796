package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hmarroquin/labtrack-api/internal/model"
	"github.com/hmarroquin/labtrack-api/internal/repository"
)

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	r.stamp(ctx, patient)
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = time.Now()

	query := `
		INSERT INTO patients (branch_id, first_name, last_name, phone, email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query,
		patient.BranchID,
		patient.FirstName,
		patient.LastName,
		patient.Phone,
		patient.Email,
		patient.Status,
		patient.CreatedAt,
		patient.UpdatedAt,
	).Scan(&patient.ID)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id int64) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE id = $1 AND branch_id = $2`
	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, id, r.branch(ctx)); err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET first_name = $1, last_name = $2, phone = $3, email = $4, status = $5, updated_at = $6
		WHERE id = $7 AND branch_id = $8
	`
	res, err := r.db.ExecContext(ctx, query,
		patient.FirstName,
		patient.LastName,
		patient.Phone,
		patient.Email,
		patient.Status,
		time.Now(),
		patient.ID,
		r.branch(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete deactivates rather than removes; exam and payment history keeps
// pointing at the row.
func (r *patientRepository) Delete(ctx context.Context, id int64) error {
	query := `UPDATE patients SET status = $1, updated_at = $2 WHERE id = $3 AND branch_id = $4`
	res, err := r.db.ExecContext(ctx, query, model.PatientStatusInactive, time.Now(), id, r.branch(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *patientRepository) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error) {
	filters.Normalize()
	branch := r.branch(ctx)

	where := ` WHERE branch_id = $1`
	args := []interface{}{branch}
	if filters.Search != "" {
		where += ` AND (first_name ILIKE $2 OR last_name ILIKE $2 OR phone ILIKE $2)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM patients`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	query := fmt.Sprintf(`SELECT * FROM patients%s ORDER BY last_name, first_name LIMIT %d OFFSET %d`,
		where, filters.PageSize, (filters.Page-1)*filters.PageSize)
	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, total, nil
}

func (r *patientRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM patients WHERE id = $1 AND branch_id = $2 AND status = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id, r.branch(ctx), model.PatientStatusActive); err != nil {
		return false, fmt.Errorf("failed to check patient: %w", err)
	}
	return exists, nil
}
