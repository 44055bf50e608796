package model

import "time"

const (
	// JustificationAutoExam tags usage records written by the automatic
	// drawdown that follows exam creation.
	JustificationAutoExam = "automatic use by exam"
	// JustificationManual is the default for ad-hoc manual entries.
	JustificationManual = "manual usage entry"
)

type Supply struct {
	ID          int64     `json:"id" db:"id"`
	BranchID    int64     `json:"branch_id" db:"branch_id"`
	Name        string    `json:"name" db:"name"`
	Stock       int64     `json:"stock" db:"stock"`
	MinStock    int64     `json:"min_stock" db:"min_stock"`
	Unit        string    `json:"unit" db:"unit"`
	Price       float64   `json:"price" db:"price"`
	Description *string   `json:"description,omitempty" db:"description"`
	CategoryID  *int64    `json:"category_id,omitempty" db:"category_id"`
	SupplierID  *int64    `json:"supplier_id,omitempty" db:"supplier_id"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

func (s *Supply) GetBranchID() int64   { return s.BranchID }
func (s *Supply) SetBranchID(id int64) { s.BranchID = id }

// BelowMinimum reports whether the supply should appear in stock alerts.
func (s *Supply) BelowMinimum() bool { return s.MinStock > 0 && s.Stock <= s.MinStock }

// UsageRecord is the append-only audit row for a stock drawdown. ExamID is
// nil for manual entries.
type UsageRecord struct {
	ID            int64     `json:"id" db:"id"`
	BranchID      int64     `json:"branch_id" db:"branch_id"`
	SupplyID      int64     `json:"supply_id" db:"supply_id"`
	ExamID        *int64    `json:"exam_id,omitempty" db:"exam_id"`
	Quantity      int64     `json:"quantity" db:"quantity"`
	Justification string    `json:"justification" db:"justification"`
	UsedAt        time.Time `json:"used_at" db:"used_at"`
}

func (u *UsageRecord) GetBranchID() int64   { return u.BranchID }
func (u *UsageRecord) SetBranchID(id int64) { u.BranchID = id }

// ExamSupplyRequirement maps an exam type to the supplies it consumes.
// Read-only input to the consumption engine.
type ExamSupplyRequirement struct {
	ExamTypeID int64 `json:"exam_type_id" db:"exam_type_id"`
	SupplyID   int64 `json:"supply_id" db:"supply_id"`
	Quantity   int64 `json:"quantity" db:"quantity"`
}

type CreateSupplyRequest struct {
	Name        string  `json:"name" binding:"required"`
	Stock       int64   `json:"stock" binding:"gte=0"`
	MinStock    int64   `json:"min_stock" binding:"gte=0"`
	Unit        string  `json:"unit"`
	Price       float64 `json:"price" binding:"gte=0"`
	Description *string `json:"description"`
	CategoryID  *int64  `json:"category_id"`
	SupplierID  *int64  `json:"supplier_id"`
}

type ManualUsageRequest struct {
	SupplyID      int64  `json:"supply_id" binding:"required,gt=0"`
	Quantity      int64  `json:"quantity" binding:"required,gt=0"`
	Justification string `json:"justification"`
}

type UsageFilters struct {
	From *time.Time `form:"from" time_format:"2006-01-02"`
	To   *time.Time `form:"to" time_format:"2006-01-02"`
}
