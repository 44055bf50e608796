package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hmarroquin/labtrack-api/internal/model"
	"github.com/hmarroquin/labtrack-api/internal/repository"
)

type branchRepository struct {
	BaseRepository
}

func NewBranchRepository(db *sqlx.DB) repository.BranchRepository {
	return &branchRepository{NewBaseRepository(db)}
}

func (r *branchRepository) List(ctx context.Context) ([]*model.Branch, error) {
	query := `SELECT id, name, created_at FROM branches ORDER BY id`
	var branches []*model.Branch
	if err := r.db.SelectContext(ctx, &branches, query); err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	return branches, nil
}

func (r *branchRepository) Get(ctx context.Context, id int64) (*model.Branch, error) {
	query := `SELECT id, name, created_at FROM branches WHERE id = $1`
	var branch model.Branch
	if err := r.db.GetContext(ctx, &branch, query, id); err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}
	return &branch, nil
}
