package exam

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hmarroquin/labtrack-api/pkg/errors"
	"github.com/hmarroquin/labtrack-api/pkg/logger"

	"github.com/hmarroquin/labtrack-api/internal/model"
	"github.com/hmarroquin/labtrack-api/internal/service/pricing"
)

type fakeExamRepo struct {
	created []*model.Exam

	latestGroup *string
	latestAt    time.Time
}

func (f *fakeExamRepo) Create(ctx context.Context, exam *model.Exam) error {
	exam.ID = int64(len(f.created) + 1)
	f.created = append(f.created, exam)
	return nil
}

func (f *fakeExamRepo) Get(ctx context.Context, id int64) (*model.Exam, error) {
	for _, exam := range f.created {
		if exam.ID == id {
			return exam, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeExamRepo) List(ctx context.Context, filters *model.ExamFilters) ([]*model.Exam, error) {
	return f.created, nil
}

func (f *fakeExamRepo) ListByPatient(ctx context.Context, patientID int64) ([]*model.Exam, error) {
	return f.created, nil
}

func (f *fakeExamRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	for _, exam := range f.created {
		if exam.ID == id {
			exam.Status = status
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeExamRepo) LatestGroup(ctx context.Context, patientID int64) (*string, time.Time, error) {
	return f.latestGroup, f.latestAt, nil
}

type fakePatientRepo struct {
	known map[int64]bool
}

func (f *fakePatientRepo) Create(ctx context.Context, patient *model.Patient) error { return nil }

func (f *fakePatientRepo) Get(ctx context.Context, id int64) (*model.Patient, error) {
	if f.known[id] {
		return &model.Patient{ID: id}, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakePatientRepo) Update(ctx context.Context, patient *model.Patient) error { return nil }
func (f *fakePatientRepo) Delete(ctx context.Context, id int64) error               { return nil }

func (f *fakePatientRepo) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error) {
	return nil, 0, nil
}

func (f *fakePatientRepo) Exists(ctx context.Context, id int64) (bool, error) {
	return f.known[id], nil
}

type fakeCatalog struct {
	types        map[int64]*model.ExamType
	clinicPrices map[string]float64
}

func (f *fakeCatalog) ExamType(ctx context.Context, id int64) (*model.ExamType, error) {
	if t, ok := f.types[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCatalog) ClinicSpecialPrice(ctx context.Context, clinicID, examTypeID int64) (float64, error) {
	return f.clinicPrices[clinicKey(clinicID, examTypeID)], nil
}

func clinicKey(clinicID, examTypeID int64) string {
	return fmt.Sprintf("%d:%d", clinicID, examTypeID)
}

type fakeOutbox struct {
	events []*model.OutboxEvent
}

func (f *fakeOutbox) Create(ctx context.Context, event *model.OutboxEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeOutbox) MarkProcessed(ctx context.Context, id uuid.UUID) error        { return nil }
func (f *fakeOutbox) MarkFailed(ctx context.Context, id uuid.UUID, _ string) error { return nil }

type fakeInventory struct {
	consumed []*model.Exam
}

func (f *fakeInventory) ConsumeForExam(ctx context.Context, exam *model.Exam) {
	f.consumed = append(f.consumed, exam)
}

func (f *fakeInventory) ConsumeManual(ctx context.Context, req *model.ManualUsageRequest) error {
	return nil
}

func (f *fakeInventory) PendingAlerts(ctx context.Context) ([]*model.Supply, error) {
	return nil, nil
}

func (f *fakeInventory) ListUsage(ctx context.Context, filters *model.UsageFilters) ([]*model.UsageRecord, error) {
	return nil, nil
}

func (f *fakeInventory) CreateSupply(ctx context.Context, supply *model.Supply) error { return nil }

func (f *fakeInventory) GetSupply(ctx context.Context, id int64) (*model.Supply, error) {
	return nil, nil
}

func (f *fakeInventory) UpdateSupply(ctx context.Context, supply *model.Supply) error { return nil }
func (f *fakeInventory) ListSupplies(ctx context.Context) ([]*model.Supply, error)    { return nil, nil }

type fixture struct {
	svc       *Service
	repo      *fakeExamRepo
	catalog   *fakeCatalog
	outbox    *fakeOutbox
	inventory *fakeInventory
}

func newFixture() *fixture {
	repo := &fakeExamRepo{}
	catalog := &fakeCatalog{
		types: map[int64]*model.ExamType{
			1: {ID: 1, Name: "Hemogram", ListPrice: 80},
			2: {ID: 2, Name: "Glucose", ListPrice: 45},
		},
		clinicPrices: map[string]float64{},
	}
	outbox := &fakeOutbox{}
	inv := &fakeInventory{}
	patients := &fakePatientRepo{known: map[int64]bool{7: true}}
	log := logger.NewLogger(&logger.Config{Component: "exam-test"})

	svc := NewService(repo, patients, outbox, pricing.NewService(catalog), inv, log)
	return &fixture{svc: svc, repo: repo, catalog: catalog, outbox: outbox, inventory: inv}
}

func TestCreateAppliesListPrice(t *testing.T) {
	f := newFixture()

	exam, err := f.svc.Create(context.Background(), &model.CreateExamRequest{
		PatientID:  7,
		ExamTypeID: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 80.0, exam.AppliedPrice)
	assert.Equal(t, model.ExamStatusRegistered, exam.Status)
	assert.Nil(t, exam.GroupID)
}

func TestCreateAppliesClinicPrice(t *testing.T) {
	f := newFixture()
	clinicID := int64(3)
	f.catalog.clinicPrices[clinicKey(clinicID, 1)] = 65

	exam, err := f.svc.Create(context.Background(), &model.CreateExamRequest{
		PatientID:      7,
		ExamTypeID:     1,
		ClinicID:       &clinicID,
		UseClinicPrice: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 65.0, exam.AppliedPrice)
}

func TestCreateFallsBackToListPriceWithoutOverride(t *testing.T) {
	f := newFixture()
	clinicID := int64(3)

	exam, err := f.svc.Create(context.Background(), &model.CreateExamRequest{
		PatientID:      7,
		ExamTypeID:     2,
		ClinicID:       &clinicID,
		UseClinicPrice: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 45.0, exam.AppliedPrice)
}

func TestCreateRejectsUnknownExamType(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), &model.CreateExamRequest{
		PatientID:  7,
		ExamTypeID: 99,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.Empty(t, f.repo.created)
}

func TestCreateRejectsUnknownPatient(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), &model.CreateExamRequest{
		PatientID:  42,
		ExamTypeID: 1,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestCreateDrawsDownSuppliesAndPublishes(t *testing.T) {
	f := newFixture()

	exam, err := f.svc.Create(context.Background(), &model.CreateExamRequest{
		PatientID:  7,
		ExamTypeID: 1,
	})
	require.NoError(t, err)

	require.Len(t, f.inventory.consumed, 1)
	assert.Equal(t, exam.ID, f.inventory.consumed[0].ID)

	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, model.EventExamCreated, f.outbox.events[0].EventType)
}

func TestCreateReusesRecentGroup(t *testing.T) {
	f := newFixture()
	existing := uuid.New().String()
	f.repo.latestGroup = &existing
	f.repo.latestAt = time.Now().Add(-5 * time.Minute)

	exam, err := f.svc.Create(context.Background(), &model.CreateExamRequest{
		PatientID:  7,
		ExamTypeID: 1,
		Group:      true,
	})
	require.NoError(t, err)
	require.NotNil(t, exam.GroupID)
	assert.Equal(t, existing, *exam.GroupID)
}

func TestCreateStartsNewGroupAfterWindow(t *testing.T) {
	f := newFixture()
	existing := uuid.New().String()
	f.repo.latestGroup = &existing
	f.repo.latestAt = time.Now().Add(-20 * time.Minute)

	exam, err := f.svc.Create(context.Background(), &model.CreateExamRequest{
		PatientID:  7,
		ExamTypeID: 1,
		Group:      true,
	})
	require.NoError(t, err)
	require.NotNil(t, exam.GroupID)
	assert.NotEqual(t, existing, *exam.GroupID)
}

func TestCreateKeepsExplicitGroup(t *testing.T) {
	f := newFixture()
	explicit := uuid.New().String()

	exam, err := f.svc.Create(context.Background(), &model.CreateExamRequest{
		PatientID:  7,
		ExamTypeID: 1,
		GroupID:    &explicit,
	})
	require.NoError(t, err)
	require.NotNil(t, exam.GroupID)
	assert.Equal(t, explicit, *exam.GroupID)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture()

	err := f.svc.UpdateStatus(context.Background(), 1, "archived")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestUpdateStatusCannotMarkPaid(t *testing.T) {
	f := newFixture()

	exam, err := f.svc.Create(context.Background(), &model.CreateExamRequest{
		PatientID:  7,
		ExamTypeID: 1,
	})
	require.NoError(t, err)

	// Paid only happens through payment linking.
	err = f.svc.UpdateStatus(context.Background(), exam.ID, model.ExamStatusPaid)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	assert.Equal(t, model.ExamStatusRegistered, exam.Status)
}

func TestUpdateStatusVoids(t *testing.T) {
	f := newFixture()

	exam, err := f.svc.Create(context.Background(), &model.CreateExamRequest{
		PatientID:  7,
		ExamTypeID: 1,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.UpdateStatus(context.Background(), exam.ID, model.ExamStatusVoid))
	assert.Equal(t, model.ExamStatusVoid, exam.Status)
}

func TestUpdateStatusMissingExam(t *testing.T) {
	f := newFixture()

	err := f.svc.UpdateStatus(context.Background(), 99, model.ExamStatusVoid)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
