package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hmarroquin/labtrack-api/internal/model"
)

type BranchRepository interface {
	List(ctx context.Context) ([]*model.Branch, error)
	Get(ctx context.Context, id int64) (*model.Branch, error)
}

type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient) error
	Get(ctx context.Context, id int64) (*model.Patient, error)
	Update(ctx context.Context, patient *model.Patient) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

type ExamRepository interface {
	Create(ctx context.Context, exam *model.Exam) error
	Get(ctx context.Context, id int64) (*model.Exam, error)
	List(ctx context.Context, filters *model.ExamFilters) ([]*model.Exam, error)
	ListByPatient(ctx context.Context, patientID int64) ([]*model.Exam, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	// LatestGroup returns the most recent exam's group id and registration
	// time for a patient, for the short-lived grouping window.
	LatestGroup(ctx context.Context, patientID int64) (*string, time.Time, error)
}

// BillingRepository carries the payment allocation unit of work. The Tx
// variants must all run on the transaction handed out by WithTx; partial
// commits are not acceptable here.
type BillingRepository interface {
	WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
	PendingExamsTx(ctx context.Context, tx *sqlx.Tx, patientID int64, examIDs []int64) ([]*model.Exam, error)
	InsertPaymentTx(ctx context.Context, tx *sqlx.Tx, payment *model.Payment) error
	LinkExamTx(ctx context.Context, tx *sqlx.Tx, examID, paymentID int64) error
	InsertInvoiceTx(ctx context.Context, tx *sqlx.Tx, invoice *model.Invoice) error
	InsertEventTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error

	PendingSummary(ctx context.Context, patientID int64) ([]*model.PendingExam, error)
	History(ctx context.Context, patientID int64) ([]*model.Payment, error)
}

type SupplyRepository interface {
	Create(ctx context.Context, supply *model.Supply) error
	Get(ctx context.Context, id int64) (*model.Supply, error)
	Update(ctx context.Context, supply *model.Supply) error
	List(ctx context.Context) ([]*model.Supply, error)
	Requirements(ctx context.Context, examTypeID int64) ([]*model.ExamSupplyRequirement, error)
	// DecrementStock floors the resulting stock at zero.
	DecrementStock(ctx context.Context, supplyID, quantity int64) error
	InsertUsage(ctx context.Context, record *model.UsageRecord) error
	ListUsage(ctx context.Context, filters *model.UsageFilters) ([]*model.UsageRecord, error)
	BelowMinimum(ctx context.Context) ([]*model.Supply, error)
}

// CatalogRepository covers the read-only catalog lookups the engines need.
type CatalogRepository interface {
	ExamType(ctx context.Context, id int64) (*model.ExamType, error)
	// ClinicSpecialPrice returns 0 when no override exists.
	ClinicSpecialPrice(ctx context.Context, clinicID, examTypeID int64) (float64, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}
