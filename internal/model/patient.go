package model

import "time"

const (
	PatientStatusActive   = "active"
	PatientStatusInactive = "inactive"
)

type Patient struct {
	ID        int64     `json:"id" db:"id"`
	BranchID  int64     `json:"branch_id" db:"branch_id"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Phone     string    `json:"phone" db:"phone"`
	Email     string    `json:"email" db:"email"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (p *Patient) GetBranchID() int64   { return p.BranchID }
func (p *Patient) SetBranchID(id int64) { p.BranchID = id }

type CreatePatientRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
	Email     string `json:"email" binding:"omitempty,email"`
}

type UpdatePatientRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email" binding:"omitempty,email"`
	Status    string `json:"status" binding:"omitempty,oneof=active inactive"`
}

type PatientFilters struct {
	Pagination
	Search string `json:"search" form:"search"`
}
