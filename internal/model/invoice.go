package model

import "time"

// Invoice references exactly one payment and is issued in the same
// transaction that creates it.
type Invoice struct {
	ID        int64     `json:"id" db:"id"`
	BranchID  int64     `json:"branch_id" db:"branch_id"`
	PaymentID int64     `json:"payment_id" db:"payment_id"`
	Total     float64   `json:"total" db:"total"`
	TaxID     *string   `json:"tax_id,omitempty" db:"tax_id"`
	Detail    *string   `json:"detail,omitempty" db:"detail"`
	IssuedAt  time.Time `json:"issued_at" db:"issued_at"`
}

func (i *Invoice) GetBranchID() int64   { return i.BranchID }
func (i *Invoice) SetBranchID(id int64) { i.BranchID = id }
