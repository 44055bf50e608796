package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hmarroquin/labtrack-api/pkg/errors"
	"github.com/hmarroquin/labtrack-api/pkg/logger"
	"github.com/hmarroquin/labtrack-api/pkg/metrics"

	"github.com/hmarroquin/labtrack-api/internal/model"
)

var testMetrics = metrics.New("billing_test")

type fakeBillingRepo struct {
	pending []*model.Exam

	payments []*model.Payment
	linked   []int64
	invoices []*model.Invoice
	events   []*model.OutboxEvent

	invoiceErr error
	linkErr    error

	rolledBack bool
}

func (f *fakeBillingRepo) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	err := fn(nil)
	if err != nil {
		f.rolledBack = true
	}
	return err
}

func (f *fakeBillingRepo) PendingExamsTx(ctx context.Context, tx *sqlx.Tx, patientID int64, examIDs []int64) ([]*model.Exam, error) {
	if len(examIDs) == 0 {
		return f.pending, nil
	}
	want := make(map[int64]bool, len(examIDs))
	for _, id := range examIDs {
		want[id] = true
	}
	var out []*model.Exam
	for _, exam := range f.pending {
		if want[exam.ID] {
			out = append(out, exam)
		}
	}
	return out, nil
}

func (f *fakeBillingRepo) InsertPaymentTx(ctx context.Context, tx *sqlx.Tx, payment *model.Payment) error {
	payment.ID = int64(len(f.payments) + 1)
	f.payments = append(f.payments, payment)
	return nil
}

func (f *fakeBillingRepo) LinkExamTx(ctx context.Context, tx *sqlx.Tx, examID, paymentID int64) error {
	if f.linkErr != nil {
		return f.linkErr
	}
	f.linked = append(f.linked, examID)
	return nil
}

func (f *fakeBillingRepo) InsertInvoiceTx(ctx context.Context, tx *sqlx.Tx, invoice *model.Invoice) error {
	if f.invoiceErr != nil {
		return f.invoiceErr
	}
	invoice.ID = int64(len(f.invoices) + 1)
	f.invoices = append(f.invoices, invoice)
	return nil
}

func (f *fakeBillingRepo) InsertEventTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeBillingRepo) PendingSummary(ctx context.Context, patientID int64) ([]*model.PendingExam, error) {
	var out []*model.PendingExam
	for _, exam := range f.pending {
		out = append(out, &model.PendingExam{
			ID:     exam.ID,
			Amount: exam.AppliedPrice,
			Status: exam.Status,
		})
	}
	return out, nil
}

func (f *fakeBillingRepo) History(ctx context.Context, patientID int64) ([]*model.Payment, error) {
	return f.payments, nil
}

type fakePatientRepo struct {
	patients map[int64]*model.Patient
}

func (f *fakePatientRepo) Create(ctx context.Context, patient *model.Patient) error { return nil }

func (f *fakePatientRepo) Get(ctx context.Context, id int64) (*model.Patient, error) {
	if p, ok := f.patients[id]; ok {
		return p, nil
	}
	return nil, apperrors.NotFound("patient", nil)
}

func (f *fakePatientRepo) Update(ctx context.Context, patient *model.Patient) error { return nil }
func (f *fakePatientRepo) Delete(ctx context.Context, id int64) error               { return nil }

func (f *fakePatientRepo) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error) {
	return nil, 0, nil
}

func (f *fakePatientRepo) Exists(ctx context.Context, id int64) (bool, error) {
	_, ok := f.patients[id]
	return ok, nil
}

func pendingExam(id int64, price float64, registered time.Time) *model.Exam {
	return &model.Exam{
		ID:           id,
		PatientID:    7,
		ExamTypeID:   1,
		AppliedPrice: price,
		Status:       model.ExamStatusRegistered,
		RegisteredAt: registered,
	}
}

func newTestService(repo *fakeBillingRepo) *Service {
	patients := &fakePatientRepo{patients: map[int64]*model.Patient{
		7: {ID: 7, FirstName: "Ana", LastName: "Juarez"},
	}}
	log := logger.NewLogger(&logger.Config{Component: "billing-test"})
	return NewService(repo, patients, log, testMetrics)
}

func TestPayFullSettlesAllPending(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	repo := &fakeBillingRepo{pending: []*model.Exam{
		pendingExam(1, 100, base),
		pendingExam(2, 50, base.Add(time.Minute)),
		pendingExam(3, 25, base.Add(2*time.Minute)),
	}}
	svc := newTestService(repo)

	result, err := svc.PayFull(context.Background(), &model.PayFullRequest{PatientID: 7})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Count)
	assert.Equal(t, 175.0, result.Total)
	assert.Equal(t, []int64{1, 2, 3}, repo.linked)

	require.Len(t, repo.payments, 1)
	assert.Equal(t, 175.0, repo.payments[0].Amount)
	assert.Equal(t, model.PaymentStatusSettled, repo.payments[0].Status)

	require.Len(t, repo.invoices, 1)
	assert.Equal(t, repo.payments[0].ID, repo.invoices[0].PaymentID)
	assert.Equal(t, 175.0, repo.invoices[0].Total)

	require.Len(t, repo.events, 1)
	assert.Equal(t, model.EventPaymentCreated, repo.events[0].EventType)
}

func TestPayFullEmptySubsetMeansAllPending(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	repo := &fakeBillingRepo{pending: []*model.Exam{
		pendingExam(1, 100, base),
		pendingExam(2, 50, base.Add(time.Minute)),
	}}
	svc := newTestService(repo)

	result, err := svc.PayFull(context.Background(), &model.PayFullRequest{
		PatientID: 7,
		ExamIDs:   []int64{},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 150.0, result.Total)
}

func TestPayFullSubset(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	repo := &fakeBillingRepo{pending: []*model.Exam{
		pendingExam(1, 100, base),
		pendingExam(2, 50, base.Add(time.Minute)),
	}}
	svc := newTestService(repo)

	result, err := svc.PayFull(context.Background(), &model.PayFullRequest{
		PatientID: 7,
		ExamIDs:   []int64{2},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Count)
	assert.Equal(t, 50.0, result.Total)
	assert.Equal(t, []int64{2}, repo.linked)
}

func TestPayPartialLinksWhileBalanceRemains(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	repo := &fakeBillingRepo{pending: []*model.Exam{
		pendingExam(1, 100, base),
		pendingExam(2, 50, base.Add(time.Minute)),
		pendingExam(3, 25, base.Add(2*time.Minute)),
	}}
	svc := newTestService(repo)

	// 120 covers the first exam and leaves 20 toward the second; the second
	// is still linked because some balance applied, the third is not touched.
	result, err := svc.PayPartial(context.Background(), &model.PayPartialRequest{
		PatientID: 7,
		ExamIDs:   []int64{1, 2, 3},
		Amount:    120,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 120.0, result.Total)
	assert.Equal(t, []int64{1, 2}, repo.linked)

	require.Len(t, repo.payments, 1)
	assert.Equal(t, 120.0, repo.payments[0].Amount)
	require.Len(t, repo.invoices, 1)
	assert.Equal(t, 120.0, repo.invoices[0].Total)
}

func TestPayPartialExactAmount(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	repo := &fakeBillingRepo{pending: []*model.Exam{
		pendingExam(1, 100, base),
		pendingExam(2, 50, base.Add(time.Minute)),
	}}
	svc := newTestService(repo)

	result, err := svc.PayPartial(context.Background(), &model.PayPartialRequest{
		PatientID: 7,
		ExamIDs:   []int64{1, 2},
		Amount:    150,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Count)
	assert.Equal(t, []int64{1, 2}, repo.linked)
}

func TestPayPartialAmountOverTotal(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	repo := &fakeBillingRepo{pending: []*model.Exam{
		pendingExam(1, 100, base),
	}}
	svc := newTestService(repo)

	result, err := svc.PayPartial(context.Background(), &model.PayPartialRequest{
		PatientID: 7,
		ExamIDs:   []int64{1},
		Amount:    150,
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	assert.True(t, repo.rolledBack)
	assert.Empty(t, repo.payments)
}

func TestPayFullNothingToPay(t *testing.T) {
	repo := &fakeBillingRepo{}
	svc := newTestService(repo)

	result, err := svc.PayFull(context.Background(), &model.PayFullRequest{PatientID: 7})
	require.ErrorIs(t, err, ErrNothingToPay)
	assert.Nil(t, result)
	assert.Empty(t, repo.payments)
	assert.Empty(t, repo.invoices)
}

func TestPayFullUnknownPatient(t *testing.T) {
	repo := &fakeBillingRepo{pending: []*model.Exam{
		pendingExam(1, 100, time.Now()),
	}}
	svc := newTestService(repo)

	_, err := svc.PayFull(context.Background(), &model.PayFullRequest{PatientID: 99})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	assert.Empty(t, repo.linked)
}

func TestAllocationRollsBackOnInvoiceFailure(t *testing.T) {
	repo := &fakeBillingRepo{
		pending:    []*model.Exam{pendingExam(1, 100, time.Now())},
		invoiceErr: errors.New("invoices table unavailable"),
	}
	svc := newTestService(repo)

	result, err := svc.PayFull(context.Background(), &model.PayFullRequest{PatientID: 7})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, repo.rolledBack)

	// The caller only sees a generic failure, never the underlying cause.
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrInternal, appErr.Code)
	assert.Equal(t, "processing failed", appErr.Message)
}

func TestAllocationRollsBackOnLinkRace(t *testing.T) {
	repo := &fakeBillingRepo{
		pending: []*model.Exam{pendingExam(1, 100, time.Now())},
		linkErr: errors.New("exam 1 no longer pending"),
	}
	svc := newTestService(repo)

	result, err := svc.PayFull(context.Background(), &model.PayFullRequest{PatientID: 7})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, repo.rolledBack)
	assert.True(t, apperrors.Is(err, apperrors.ErrInternal))
}

func TestPendingSummary(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	repo := &fakeBillingRepo{pending: []*model.Exam{
		pendingExam(1, 100, base),
		pendingExam(2, 50, base.Add(time.Minute)),
	}}
	svc := newTestService(repo)

	summary, err := svc.PendingSummary(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, "Ana Juarez", summary.Patient)
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, 150.0, summary.Total)
	require.Len(t, summary.Exams, 2)
}
