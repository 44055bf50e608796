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

type supplyRepository struct {
	BaseRepository
}

func NewSupplyRepository(db *sqlx.DB) repository.SupplyRepository {
	return &supplyRepository{NewBaseRepository(db)}
}

func (r *supplyRepository) Create(ctx context.Context, supply *model.Supply) error {
	r.stamp(ctx, supply)
	supply.CreatedAt = time.Now()
	supply.UpdatedAt = time.Now()
	if supply.Status == "" {
		supply.Status = "active"
	}

	query := `
		INSERT INTO supplies (
			branch_id, name, stock, min_stock, unit, price, description,
			category_id, supplier_id, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query,
		supply.BranchID,
		supply.Name,
		supply.Stock,
		supply.MinStock,
		supply.Unit,
		supply.Price,
		supply.Description,
		supply.CategoryID,
		supply.SupplierID,
		supply.Status,
		supply.CreatedAt,
		supply.UpdatedAt,
	).Scan(&supply.ID)
	if err != nil {
		return fmt.Errorf("failed to create supply: %w", err)
	}
	return nil
}

func (r *supplyRepository) Get(ctx context.Context, id int64) (*model.Supply, error) {
	query := `SELECT * FROM supplies WHERE id = $1 AND branch_id = $2`
	var supply model.Supply
	if err := r.db.GetContext(ctx, &supply, query, id, r.branch(ctx)); err != nil {
		return nil, fmt.Errorf("failed to get supply: %w", err)
	}
	return &supply, nil
}

func (r *supplyRepository) Update(ctx context.Context, supply *model.Supply) error {
	query := `
		UPDATE supplies
		SET name = $1, stock = $2, min_stock = $3, unit = $4, price = $5,
		    description = $6, category_id = $7, supplier_id = $8, status = $9, updated_at = $10
		WHERE id = $11 AND branch_id = $12
	`
	res, err := r.db.ExecContext(ctx, query,
		supply.Name,
		supply.Stock,
		supply.MinStock,
		supply.Unit,
		supply.Price,
		supply.Description,
		supply.CategoryID,
		supply.SupplierID,
		supply.Status,
		time.Now(),
		supply.ID,
		r.branch(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to update supply: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *supplyRepository) List(ctx context.Context) ([]*model.Supply, error) {
	query := `SELECT * FROM supplies WHERE branch_id = $1 ORDER BY name`
	var supplies []*model.Supply
	if err := r.db.SelectContext(ctx, &supplies, query, r.branch(ctx)); err != nil {
		return nil, fmt.Errorf("failed to list supplies: %w", err)
	}
	return supplies, nil
}

func (r *supplyRepository) Requirements(ctx context.Context, examTypeID int64) ([]*model.ExamSupplyRequirement, error) {
	query := `
		SELECT exam_type_id, supply_id, quantity
		FROM exam_supply_requirements
		WHERE exam_type_id = $1
	`
	var reqs []*model.ExamSupplyRequirement
	if err := r.db.SelectContext(ctx, &reqs, query, examTypeID); err != nil {
		return nil, fmt.Errorf("failed to fetch supply requirements: %w", err)
	}
	return reqs, nil
}

// DecrementStock draws down stock, floored at zero. Deliberately runs outside
// any transaction; concurrent drawdowns against the same supply may lose an
// update, which the clinical flow tolerates in exchange for never blocking.
func (r *supplyRepository) DecrementStock(ctx context.Context, supplyID, quantity int64) error {
	query := `
		UPDATE supplies
		SET stock = GREATEST(stock - $1, 0), updated_at = $2
		WHERE id = $3 AND branch_id = $4
	`
	res, err := r.db.ExecContext(ctx, query, quantity, time.Now(), supplyID, r.branch(ctx))
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("supply %d not found", supplyID)
	}
	return nil
}

func (r *supplyRepository) InsertUsage(ctx context.Context, record *model.UsageRecord) error {
	r.stamp(ctx, record)
	record.UsedAt = time.Now()

	query := `
		INSERT INTO usage_records (branch_id, supply_id, exam_id, quantity, justification, used_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query,
		record.BranchID,
		record.SupplyID,
		record.ExamID,
		record.Quantity,
		record.Justification,
		record.UsedAt,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	return nil
}

func (r *supplyRepository) ListUsage(ctx context.Context, filters *model.UsageFilters) ([]*model.UsageRecord, error) {
	from := time.Now().Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, 1)
	if filters.From != nil {
		from = *filters.From
	}
	if filters.To != nil {
		to = filters.To.AddDate(0, 0, 1)
	}

	query := `
		SELECT * FROM usage_records
		WHERE used_at >= $1 AND used_at < $2 AND branch_id = $3
		ORDER BY used_at DESC
	`
	var records []*model.UsageRecord
	if err := r.db.SelectContext(ctx, &records, query, from, to, r.branch(ctx)); err != nil {
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}
	return records, nil
}

func (r *supplyRepository) BelowMinimum(ctx context.Context) ([]*model.Supply, error) {
	query := `
		SELECT * FROM supplies
		WHERE branch_id = $1 AND min_stock > 0 AND stock <= min_stock
		ORDER BY stock - min_stock
	`
	var supplies []*model.Supply
	if err := r.db.SelectContext(ctx, &supplies, query, r.branch(ctx)); err != nil {
		return nil, fmt.Errorf("failed to list low-stock supplies: %w", err)
	}
	return supplies, nil
}
