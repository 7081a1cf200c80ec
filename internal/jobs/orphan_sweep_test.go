package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"constructerp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrphanCleaner struct {
	mock.Mock
}

func (m *MockOrphanCleaner) DeleteOrphanedChildren(ctx context.Context) (map[models.ChildFamily]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.ChildFamily]int64), args.Error(1)
}

func TestOrphanSweeper_Run(t *testing.T) {
	ctx := context.Background()
	counts := map[models.ChildFamily]int64{
		models.FamilyDirectLineItems:                 0,
		models.FamilyPOInvoiceItems:                  3,
		models.FamilyCOInvoiceItems:                  0,
		models.FamilyAdvancePaymentCostCodes:         1,
		models.FamilyAdjustedAdvancePaymentCostCodes: 2,
	}
	cleaner := &MockOrphanCleaner{}
	cleaner.On("DeleteOrphanedChildren", ctx).Return(counts, nil).Once()

	deleted, err := NewOrphanSweeper(cleaner).Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, counts, deleted)
	cleaner.AssertExpectations(t)
}

func TestOrphanSweeper_RunReportsPartialCounts(t *testing.T) {
	ctx := context.Background()
	partial := map[models.ChildFamily]int64{models.FamilyDirectLineItems: 4}
	cleaner := &MockOrphanCleaner{}
	cleaner.On("DeleteOrphanedChildren", ctx).Return(partial, errors.New("sweep po_invoice_items: timeout")).Once()

	deleted, err := NewOrphanSweeper(cleaner).Run(ctx)

	require.Error(t, err)
	assert.Equal(t, partial, deleted)
}

func TestScheduler_RegistersAndRunsSweep(t *testing.T) {
	cleaner := &MockOrphanCleaner{}
	ran := make(chan struct{}, 1)
	cleaner.On("DeleteOrphanedChildren", mock.Anything).
		Return(map[models.ChildFamily]int64{}, nil).
		Run(func(mock.Arguments) { ran <- struct{}{} }).
		Once()

	s, err := NewScheduler(NewOrphanSweeper(cleaner), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{OrphanSweepJob}, s.JobNames())

	s.Start()
	require.NoError(t, s.RunNow(OrphanSweepJob))

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("sweep did not run")
	}
	require.NoError(t, s.Stop())
	cleaner.AssertExpectations(t)
}

func TestScheduler_JobManagement(t *testing.T) {
	s, err := NewScheduler(NewOrphanSweeper(&MockOrphanCleaner{}), time.Hour)
	require.NoError(t, err)
	s.Start()
	defer func() { _ = s.Stop() }()

	noop := func(context.Context) error { return nil }
	require.NoError(t, s.AddJob("cache-warmup", time.Minute, noop))
	assert.Error(t, s.AddJob("cache-warmup", time.Minute, noop))
	assert.Equal(t, []string{"cache-warmup", OrphanSweepJob}, s.JobNames())

	require.NoError(t, s.RemoveJob("cache-warmup"))
	require.NoError(t, s.RemoveJob("cache-warmup"))
	assert.Equal(t, []string{OrphanSweepJob}, s.JobNames())
	assert.Error(t, s.RunNow("cache-warmup"))
}
