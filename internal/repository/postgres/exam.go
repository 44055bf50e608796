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

type examRepository struct {
	BaseRepository
}

func NewExamRepository(db *sqlx.DB) repository.ExamRepository {
	return &examRepository{NewBaseRepository(db)}
}

func (r *examRepository) Create(ctx context.Context, exam *model.Exam) error {
	r.stamp(ctx, exam)
	exam.RegisteredAt = time.Now()
	if exam.Status == "" {
		exam.Status = model.ExamStatusRegistered
	}

	query := `
		INSERT INTO exams (
			branch_id, patient_id, exam_type_id, clinic_id, use_clinic_price,
			applied_price, result, status, group_id, referrer_id, registered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query,
		exam.BranchID,
		exam.PatientID,
		exam.ExamTypeID,
		exam.ClinicID,
		exam.UseClinicPrice,
		exam.AppliedPrice,
		exam.Result,
		exam.Status,
		exam.GroupID,
		exam.ReferrerID,
		exam.RegisteredAt,
	).Scan(&exam.ID)
	if err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}
	return nil
}

func (r *examRepository) Get(ctx context.Context, id int64) (*model.Exam, error) {
	query := `SELECT * FROM exams WHERE id = $1 AND branch_id = $2`
	var exam model.Exam
	if err := r.db.GetContext(ctx, &exam, query, id, r.branch(ctx)); err != nil {
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return &exam, nil
}

// examListQuery builds the filtered listing statement. Each date bound
// applies on its own; the upper bound is inclusive of the named day.
func examListQuery(branch int64, filters *model.ExamFilters) (string, []interface{}) {
	query := `SELECT * FROM exams WHERE branch_id = $1`
	args := []interface{}{branch}

	if filters.From != nil {
		args = append(args, *filters.From)
		query += fmt.Sprintf(` AND registered_at >= $%d`, len(args))
	}
	if filters.To != nil {
		args = append(args, filters.To.AddDate(0, 0, 1))
		query += fmt.Sprintf(` AND registered_at < $%d`, len(args))
	}

	query += fmt.Sprintf(` ORDER BY registered_at DESC LIMIT %d OFFSET %d`,
		filters.PageSize, (filters.Page-1)*filters.PageSize)
	return query, args
}

func (r *examRepository) List(ctx context.Context, filters *model.ExamFilters) ([]*model.Exam, error) {
	filters.Normalize()
	query, args := examListQuery(r.branch(ctx), filters)

	var exams []*model.Exam
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, nil
}

func (r *examRepository) ListByPatient(ctx context.Context, patientID int64) ([]*model.Exam, error) {
	query := `
		SELECT * FROM exams
		WHERE patient_id = $1 AND branch_id = $2
		ORDER BY registered_at DESC
	`
	var exams []*model.Exam
	if err := r.db.SelectContext(ctx, &exams, query, patientID, r.branch(ctx)); err != nil {
		return nil, fmt.Errorf("failed to list patient exams: %w", err)
	}
	return exams, nil
}

func (r *examRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE exams SET status = $1 WHERE id = $2 AND branch_id = $3`
	res, err := r.db.ExecContext(ctx, query, status, id, r.branch(ctx))
	if err != nil {
		return fmt.Errorf("failed to update exam status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *examRepository) LatestGroup(ctx context.Context, patientID int64) (*string, time.Time, error) {
	query := `
		SELECT group_id, registered_at FROM exams
		WHERE patient_id = $1 AND branch_id = $2
		ORDER BY registered_at DESC
		LIMIT 1
	`
	var row struct {
		GroupID      *string   `db:"group_id"`
		RegisteredAt time.Time `db:"registered_at"`
	}
	err := r.db.GetContext(ctx, &row, query, patientID, r.branch(ctx))
	if err == sql.ErrNoRows {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to get latest exam group: %w", err)
	}
	return row.GroupID, row.RegisteredAt, nil
}
