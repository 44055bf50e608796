package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hmarroquin/labtrack-api/internal/model"
	"github.com/hmarroquin/labtrack-api/internal/repository"
)

type billingRepository struct {
	BaseRepository
}

func NewBillingRepository(db *sqlx.DB) repository.BillingRepository {
	return &billingRepository{NewBaseRepository(db)}
}

// examIDArray prepares an id set for the pending-exams query. A nil slice
// must encode as an empty array, not SQL NULL: cardinality(NULL) is NULL and
// would void the match-all disjunct for the whole statement.
func examIDArray(ids []int64) pq.Int64Array {
	if ids == nil {
		ids = []int64{}
	}
	return pq.Int64Array(ids)
}

// PendingExamsTx locks and returns the patient's unpaid exams among the given
// ids (all pending exams when no ids are named), restricted to the active
// branch, oldest registration first. Ids that belong to another patient,
// another branch, or an already paid exam simply do not come back.
func (r *billingRepository) PendingExamsTx(ctx context.Context, tx *sqlx.Tx, patientID int64, examIDs []int64) ([]*model.Exam, error) {
	query := `
		SELECT * FROM exams
		WHERE patient_id = $1
		  AND payment_id IS NULL
		  AND (cardinality($2::bigint[]) = 0 OR id = ANY($2))
		  AND branch_id = $3
		ORDER BY registered_at ASC
		FOR UPDATE
	`
	var exams []*model.Exam
	if err := tx.SelectContext(ctx, &exams, query, patientID, examIDArray(examIDs), r.branch(ctx)); err != nil {
		return nil, fmt.Errorf("failed to fetch pending exams: %w", err)
	}
	return exams, nil
}

func (r *billingRepository) InsertPaymentTx(ctx context.Context, tx *sqlx.Tx, payment *model.Payment) error {
	r.stamp(ctx, payment)

	query := `
		INSERT INTO payments (branch_id, patient_id, method_id, amount, concept, note, status, generated_at, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := tx.QueryRowxContext(ctx, query,
		payment.BranchID,
		payment.PatientID,
		payment.MethodID,
		payment.Amount,
		payment.Concept,
		payment.Note,
		payment.Status,
		payment.GeneratedAt,
		payment.SettledAt,
	).Scan(&payment.ID)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// LinkExamTx attaches a payment to an exam. The payment_id IS NULL guard
// makes the null -> set transition one-way even under concurrent allocations.
func (r *billingRepository) LinkExamTx(ctx context.Context, tx *sqlx.Tx, examID, paymentID int64) error {
	query := `
		UPDATE exams SET payment_id = $1, status = $2
		WHERE id = $3 AND payment_id IS NULL AND branch_id = $4
	`
	res, err := tx.ExecContext(ctx, query, paymentID, model.ExamStatusPaid, examID, r.branch(ctx))
	if err != nil {
		return fmt.Errorf("failed to link exam to payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("exam %d no longer pending", examID)
	}
	return nil
}

func (r *billingRepository) InsertInvoiceTx(ctx context.Context, tx *sqlx.Tx, invoice *model.Invoice) error {
	r.stamp(ctx, invoice)

	query := `
		INSERT INTO invoices (branch_id, payment_id, total, tax_id, detail, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := tx.QueryRowxContext(ctx, query,
		invoice.BranchID,
		invoice.PaymentID,
		invoice.Total,
		invoice.TaxID,
		invoice.Detail,
		invoice.IssuedAt,
	).Scan(&invoice.ID)
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

func (r *billingRepository) InsertEventTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	event.ID = uuid.New()
	event.Status = model.OutboxStatusPending
	event.CreatedAt = time.Now()

	query := `
		INSERT INTO outbox_events (id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, query,
		event.ID, event.EventType, event.Payload, event.Status, event.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

func (r *billingRepository) PendingSummary(ctx context.Context, patientID int64) ([]*model.PendingExam, error) {
	query := `
		SELECT e.id, t.name AS exam_type, e.applied_price AS amount, e.status
		FROM exams e
		JOIN exam_types t ON t.id = e.exam_type_id
		WHERE e.patient_id = $1 AND e.payment_id IS NULL AND e.branch_id = $2
		ORDER BY t.name
	`
	var exams []*model.PendingExam
	if err := r.db.SelectContext(ctx, &exams, query, patientID, r.branch(ctx)); err != nil {
		return nil, fmt.Errorf("failed to fetch pending summary: %w", err)
	}
	return exams, nil
}

func (r *billingRepository) History(ctx context.Context, patientID int64) ([]*model.Payment, error) {
	query := `
		SELECT * FROM payments
		WHERE patient_id = $1 AND branch_id = $2
		ORDER BY settled_at DESC
	`
	var payments []*model.Payment
	if err := r.db.SelectContext(ctx, &payments, query, patientID, r.branch(ctx)); err != nil {
		return nil, fmt.Errorf("failed to fetch payment history: %w", err)
	}
	return payments, nil
}
