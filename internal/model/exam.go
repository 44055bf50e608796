package model

import "time"

// Exam lifecycle. An exam is the billable charge for one ordered test; the
// applied price is fixed at creation and never recomputed.
const (
	ExamStatusRegistered = "registered"
	ExamStatusPaid       = "paid"
	ExamStatusVoid       = "void"
)

type Exam struct {
	ID             int64     `json:"id" db:"id"`
	BranchID       int64     `json:"branch_id" db:"branch_id"`
	PatientID      int64     `json:"patient_id" db:"patient_id"`
	ExamTypeID     int64     `json:"exam_type_id" db:"exam_type_id"`
	ClinicID       *int64    `json:"clinic_id,omitempty" db:"clinic_id"`
	UseClinicPrice bool      `json:"use_clinic_price" db:"use_clinic_price"`
	AppliedPrice   float64   `json:"applied_price" db:"applied_price"`
	PaymentID      *int64    `json:"payment_id,omitempty" db:"payment_id"`
	Result         *string   `json:"result,omitempty" db:"result"`
	Status         string    `json:"status" db:"status"`
	GroupID        *string   `json:"group_id,omitempty" db:"group_id"`
	ReferrerID     *int64    `json:"referrer_id,omitempty" db:"referrer_id"`
	RegisteredAt   time.Time `json:"registered_at" db:"registered_at"`
}

func (e *Exam) GetBranchID() int64   { return e.BranchID }
func (e *Exam) SetBranchID(id int64) { e.BranchID = id }

// Pending reports whether the exam still awaits payment.
func (e *Exam) Pending() bool { return e.PaymentID == nil }

// ExamType is the catalog entry an exam is ordered against. Catalog CRUD is
// out of scope; the type is read for price resolution and existence checks.
type ExamType struct {
	ID        int64   `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	ListPrice float64 `json:"list_price" db:"list_price"`
}

// ClinicPrice is a clinic-specific override of an exam type's list price.
// The newest valid_from wins.
type ClinicPrice struct {
	ID           int64     `json:"id" db:"id"`
	ClinicID     int64     `json:"clinic_id" db:"clinic_id"`
	ExamTypeID   int64     `json:"exam_type_id" db:"exam_type_id"`
	SpecialPrice float64   `json:"special_price" db:"special_price"`
	ValidFrom    time.Time `json:"valid_from" db:"valid_from"`
}

type CreateExamRequest struct {
	PatientID      int64   `json:"patient_id" binding:"required,gt=0"`
	ExamTypeID     int64   `json:"exam_type_id" binding:"required,gt=0"`
	ClinicID       *int64  `json:"clinic_id"`
	UseClinicPrice bool    `json:"use_clinic_price"`
	Result         *string `json:"result"`
	Group          bool    `json:"group"`
	GroupID        *string `json:"group_id"`
	ReferrerID     *int64  `json:"referrer_id"`
}

type ExamFilters struct {
	Pagination
	From *time.Time `form:"from" time_format:"2006-01-02"`
	To   *time.Time `form:"to" time_format:"2006-01-02"`
}
