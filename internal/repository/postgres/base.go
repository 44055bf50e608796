package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/hmarroquin/labtrack-api/internal/model"
	"github.com/hmarroquin/labtrack-api/internal/tenant"
)

// BaseRepository provides the transaction helper and the tenancy primitives
// shared by all repositories. Every tenant-scoped query must bind the branch
// from the request context; there is no unscoped read path.
type BaseRepository struct {
	db *sqlx.DB
}

func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// WithTx executes fn within a transaction, rolling back on error or panic.
func (r *BaseRepository) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// branch resolves the active branch for the request.
func (r *BaseRepository) branch(ctx context.Context) int64 {
	return tenant.FromContext(ctx)
}

// stamp fills the branch on a new record when it is unset or invalid. An
// explicitly positive branch id already on the record is left alone.
func (r *BaseRepository) stamp(ctx context.Context, rec model.TenantScoped) {
	if rec.GetBranchID() <= 0 {
		rec.SetBranchID(tenant.FromContext(ctx))
	}
}
