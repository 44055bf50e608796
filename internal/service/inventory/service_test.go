package inventory

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hmarroquin/labtrack-api/pkg/errors"
	"github.com/hmarroquin/labtrack-api/pkg/logger"
	"github.com/hmarroquin/labtrack-api/pkg/metrics"

	"github.com/hmarroquin/labtrack-api/internal/model"
)

var testMetrics = metrics.New("inventory_test")

type fakeSupplyRepo struct {
	supplies     map[int64]*model.Supply
	requirements map[int64][]*model.ExamSupplyRequirement
	usage        []*model.UsageRecord

	decrementErr map[int64]error
	usageErr     error
}

func newFakeSupplyRepo() *fakeSupplyRepo {
	return &fakeSupplyRepo{
		supplies:     map[int64]*model.Supply{},
		requirements: map[int64][]*model.ExamSupplyRequirement{},
		decrementErr: map[int64]error{},
	}
}

func (f *fakeSupplyRepo) Create(ctx context.Context, supply *model.Supply) error {
	supply.ID = int64(len(f.supplies) + 1)
	f.supplies[supply.ID] = supply
	return nil
}

func (f *fakeSupplyRepo) Get(ctx context.Context, id int64) (*model.Supply, error) {
	if s, ok := f.supplies[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSupplyRepo) Update(ctx context.Context, supply *model.Supply) error {
	f.supplies[supply.ID] = supply
	return nil
}

func (f *fakeSupplyRepo) List(ctx context.Context) ([]*model.Supply, error) {
	var out []*model.Supply
	for _, s := range f.supplies {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSupplyRepo) Requirements(ctx context.Context, examTypeID int64) ([]*model.ExamSupplyRequirement, error) {
	return f.requirements[examTypeID], nil
}

func (f *fakeSupplyRepo) DecrementStock(ctx context.Context, supplyID, quantity int64) error {
	if err := f.decrementErr[supplyID]; err != nil {
		return err
	}
	s, ok := f.supplies[supplyID]
	if !ok {
		return sql.ErrNoRows
	}
	s.Stock -= quantity
	if s.Stock < 0 {
		s.Stock = 0
	}
	return nil
}

func (f *fakeSupplyRepo) InsertUsage(ctx context.Context, record *model.UsageRecord) error {
	if f.usageErr != nil {
		return f.usageErr
	}
	record.ID = int64(len(f.usage) + 1)
	f.usage = append(f.usage, record)
	return nil
}

func (f *fakeSupplyRepo) ListUsage(ctx context.Context, filters *model.UsageFilters) ([]*model.UsageRecord, error) {
	return f.usage, nil
}

func (f *fakeSupplyRepo) BelowMinimum(ctx context.Context) ([]*model.Supply, error) {
	var out []*model.Supply
	for _, s := range f.supplies {
		if s.BelowMinimum() {
			out = append(out, s)
		}
	}
	return out, nil
}

func newTestService(repo *fakeSupplyRepo) *Service {
	log := logger.NewLogger(&logger.Config{Component: "inventory-test"})
	return NewService(repo, log, testMetrics)
}

func TestConsumeForExamFloorsStockAtZero(t *testing.T) {
	repo := newFakeSupplyRepo()
	repo.supplies[1] = &model.Supply{ID: 1, Name: "Reagent A", Stock: 3}
	repo.requirements[10] = []*model.ExamSupplyRequirement{
		{ExamTypeID: 10, SupplyID: 1, Quantity: 5},
	}
	svc := newTestService(repo)

	exam := &model.Exam{ID: 100, ExamTypeID: 10}
	svc.ConsumeForExam(context.Background(), exam)

	// Stock bottoms out at zero while the usage record keeps the full
	// required quantity.
	assert.Equal(t, int64(0), repo.supplies[1].Stock)
	require.Len(t, repo.usage, 1)
	assert.Equal(t, int64(5), repo.usage[0].Quantity)
	assert.Equal(t, model.JustificationAutoExam, repo.usage[0].Justification)
	require.NotNil(t, repo.usage[0].ExamID)
	assert.Equal(t, exam.ID, *repo.usage[0].ExamID)
}

func TestConsumeForExamSwallowsFailures(t *testing.T) {
	repo := newFakeSupplyRepo()
	repo.supplies[1] = &model.Supply{ID: 1, Name: "Reagent A", Stock: 10}
	repo.supplies[2] = &model.Supply{ID: 2, Name: "Tubes", Stock: 10}
	repo.requirements[10] = []*model.ExamSupplyRequirement{
		{ExamTypeID: 10, SupplyID: 1, Quantity: 2},
		{ExamTypeID: 10, SupplyID: 2, Quantity: 1},
	}
	repo.decrementErr[1] = errors.New("supplies table locked")
	svc := newTestService(repo)

	svc.ConsumeForExam(context.Background(), &model.Exam{ID: 100, ExamTypeID: 10})

	// The failed drawdown leaves no trace; the other requirement still runs.
	assert.Equal(t, int64(10), repo.supplies[1].Stock)
	assert.Equal(t, int64(9), repo.supplies[2].Stock)
	require.Len(t, repo.usage, 1)
	assert.Equal(t, int64(2), repo.usage[0].SupplyID)
}

func TestConsumeForExamSwallowsUsageFailure(t *testing.T) {
	repo := newFakeSupplyRepo()
	repo.supplies[1] = &model.Supply{ID: 1, Name: "Reagent A", Stock: 10}
	repo.requirements[10] = []*model.ExamSupplyRequirement{
		{ExamTypeID: 10, SupplyID: 1, Quantity: 2},
	}
	repo.usageErr = errors.New("usage table unavailable")
	svc := newTestService(repo)

	svc.ConsumeForExam(context.Background(), &model.Exam{ID: 100, ExamTypeID: 10})

	assert.Empty(t, repo.usage)
}

func TestConsumeForExamNoRequirements(t *testing.T) {
	repo := newFakeSupplyRepo()
	svc := newTestService(repo)

	svc.ConsumeForExam(context.Background(), &model.Exam{ID: 100, ExamTypeID: 10})
	assert.Empty(t, repo.usage)
}

func TestConsumeManual(t *testing.T) {
	repo := newFakeSupplyRepo()
	repo.supplies[1] = &model.Supply{ID: 1, Name: "Gloves", Stock: 20}
	svc := newTestService(repo)

	err := svc.ConsumeManual(context.Background(), &model.ManualUsageRequest{
		SupplyID: 1,
		Quantity: 4,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(16), repo.supplies[1].Stock)
	require.Len(t, repo.usage, 1)
	assert.Equal(t, model.JustificationManual, repo.usage[0].Justification)
	assert.Nil(t, repo.usage[0].ExamID)
}

func TestConsumeManualKeepsJustification(t *testing.T) {
	repo := newFakeSupplyRepo()
	repo.supplies[1] = &model.Supply{ID: 1, Name: "Gloves", Stock: 20}
	svc := newTestService(repo)

	err := svc.ConsumeManual(context.Background(), &model.ManualUsageRequest{
		SupplyID:      1,
		Quantity:      1,
		Justification: "spill during calibration",
	})
	require.NoError(t, err)
	require.Len(t, repo.usage, 1)
	assert.Equal(t, "spill during calibration", repo.usage[0].Justification)
}

func TestConsumeManualUnknownSupply(t *testing.T) {
	repo := newFakeSupplyRepo()
	svc := newTestService(repo)

	err := svc.ConsumeManual(context.Background(), &model.ManualUsageRequest{
		SupplyID: 99,
		Quantity: 1,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.Empty(t, repo.usage)
}

func TestPendingAlerts(t *testing.T) {
	repo := newFakeSupplyRepo()
	repo.supplies[1] = &model.Supply{ID: 1, Name: "Reagent A", Stock: 2, MinStock: 5}
	repo.supplies[2] = &model.Supply{ID: 2, Name: "Tubes", Stock: 50, MinStock: 10}
	repo.supplies[3] = &model.Supply{ID: 3, Name: "Untracked", Stock: 0, MinStock: 0}
	svc := newTestService(repo)

	low, err := svc.PendingAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, int64(1), low[0].ID)
}
