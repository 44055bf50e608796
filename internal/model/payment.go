package model

import "time"

const (
	PaymentStatusSettled = 1
	PaymentStatusVoid    = 0
)

// Payment is created exactly once per allocation and its amount is immutable
// afterwards; corrections are adjusting records, not edits.
type Payment struct {
	ID          int64     `json:"id" db:"id"`
	BranchID    int64     `json:"branch_id" db:"branch_id"`
	PatientID   int64     `json:"patient_id" db:"patient_id"`
	MethodID    int64     `json:"method_id" db:"method_id"`
	Amount      float64   `json:"amount" db:"amount"`
	Concept     string    `json:"concept" db:"concept"`
	Note        *string   `json:"note,omitempty" db:"note"`
	Status      int       `json:"status" db:"status"`
	GeneratedAt time.Time `json:"generated_at" db:"generated_at"`
	SettledAt   time.Time `json:"settled_at" db:"settled_at"`
}

func (p *Payment) GetBranchID() int64   { return p.BranchID }
func (p *Payment) SetBranchID(id int64) { p.BranchID = id }

type PayFullRequest struct {
	PatientID int64   `json:"patient_id" binding:"required,gt=0"`
	ExamIDs   []int64 `json:"exam_ids"`
	MethodID  int64   `json:"method_id"`
	Concept   string  `json:"concept"`
	Note      *string `json:"note"`
}

type PayPartialRequest struct {
	PatientID int64   `json:"patient_id" binding:"required,gt=0"`
	ExamIDs   []int64 `json:"exam_ids" binding:"required,min=1"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	MethodID  int64   `json:"method_id"`
	Concept   string  `json:"concept"`
	Note      *string `json:"note"`
}

// AllocationResult is what both payment entry points return on success.
type AllocationResult struct {
	PaymentID int64   `json:"payment_id"`
	Count     int     `json:"count"`
	Total     float64 `json:"total"`
}

// PendingSummary lists a patient's unpaid exams and their total.
type PendingSummary struct {
	PatientID int64          `json:"patient_id"`
	Patient   string         `json:"patient"`
	Count     int            `json:"count"`
	Total     float64        `json:"total"`
	Exams     []*PendingExam `json:"exams"`
}

type PendingExam struct {
	ID       int64   `json:"id" db:"id"`
	ExamType string  `json:"exam_type" db:"exam_type"`
	Amount   float64 `json:"amount" db:"amount"`
	Status   string  `json:"status" db:"status"`
}
