package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"capsulevault/internal/clock"
	"capsulevault/internal/lifecycle"
	"capsulevault/internal/model"
	"capsulevault/internal/repository"
)

// MockCapsuleRepository is a mock implementation of CapsuleRepository.
type MockCapsuleRepository struct {
	mock.Mock
}

func (m *MockCapsuleRepository) Create(ctx context.Context, capsule *model.Capsule) error {
	args := m.Called(ctx, capsule)
	return args.Error(0)
}

func (m *MockCapsuleRepository) Update(ctx context.Context, capsule *model.Capsule) error {
	args := m.Called(ctx, capsule)
	return args.Error(0)
}

func (m *MockCapsuleRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCapsuleRepository) FindByID(ctx context.Context, id uint) (*model.Capsule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Capsule), args.Error(1)
}

func (m *MockCapsuleRepository) ListByOwner(ctx context.Context, ownerID uint, offset, limit int) ([]model.Capsule, int64, error) {
	args := m.Called(ctx, ownerID, offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.Capsule), args.Get(1).(int64), args.Error(2)
}

func (m *MockCapsuleRepository) ListUnexpired(ctx context.Context) ([]model.Capsule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Capsule), args.Error(1)
}

func (m *MockCapsuleRepository) MarkExpired(ctx context.Context, ids []uint) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCapsuleRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.CapsuleRepository) error) error {
	return fn(ctx, m)
}

var sweepNow = time.Date(2025, 6, 1, 12, 0, 0, 0, clock.IST)

func newSweeper(repo *MockCapsuleRepository) *Sweeper {
	s := New(repo, time.Minute)
	s.now = func() time.Time { return sweepNow }
	return s
}

func TestSweepMarksOnlyDerivedExpired(t *testing.T) {
	repo := new(MockCapsuleRepository)
	repo.On("ListUnexpired", mock.Anything).Return([]model.Capsule{
		{ID: 1, UnlockAt: sweepNow.Add(time.Hour)},                        // locked
		{ID: 2, UnlockAt: sweepNow.Add(-time.Hour)},                       // unlockable
		{ID: 3, UnlockAt: sweepNow.Add(-lifecycle.Retention)},             // exactly at the boundary
		{ID: 4, UnlockAt: sweepNow.Add(-lifecycle.Retention - time.Hour)}, // well past it
	}, nil)
	repo.On("MarkExpired", mock.Anything, []uint{3, 4}).Return(int64(2), nil)

	count, err := newSweeper(repo).Sweep(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)
	repo.AssertExpectations(t)
}

func TestSweepNothingToDo(t *testing.T) {
	repo := new(MockCapsuleRepository)
	repo.On("ListUnexpired", mock.Anything).Return([]model.Capsule{
		{ID: 1, UnlockAt: sweepNow.Add(time.Hour)},
	}, nil)

	count, err := newSweeper(repo).Sweep(context.Background())

	assert.NoError(t, err)
	assert.Zero(t, count)
	repo.AssertNotCalled(t, "MarkExpired", mock.Anything, mock.Anything)
}

func TestSweepConcurrentCyclesStayIdempotent(t *testing.T) {
	// Two cycles observe the same stale capsule; the second flip touches no
	// rows and raises no error.
	stale := []model.Capsule{{ID: 9, UnlockAt: sweepNow.Add(-2 * lifecycle.Retention)}}

	repo := new(MockCapsuleRepository)
	repo.On("ListUnexpired", mock.Anything).Return(stale, nil).Twice()
	repo.On("MarkExpired", mock.Anything, []uint{9}).Return(int64(1), nil).Once()
	repo.On("MarkExpired", mock.Anything, []uint{9}).Return(int64(0), nil).Once()

	s := newSweeper(repo)

	count, err := s.Sweep(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = s.Sweep(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, count)

	repo.AssertExpectations(t)
}

func TestSweepFailureDoesNotStopLaterCycles(t *testing.T) {
	repo := new(MockCapsuleRepository)
	repo.On("ListUnexpired", mock.Anything).Return(nil, errors.New("connection reset")).Once()
	repo.On("ListUnexpired", mock.Anything).Return([]model.Capsule{
		{ID: 5, UnlockAt: sweepNow.Add(-2 * lifecycle.Retention)},
	}, nil).Once()
	repo.On("MarkExpired", mock.Anything, []uint{5}).Return(int64(1), nil)

	s := newSweeper(repo)

	_, err := s.Sweep(context.Background())
	assert.Error(t, err)

	count, err := s.Sweep(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	repo.AssertExpectations(t)
}

func TestStartStopsOnCancel(t *testing.T) {
	repo := new(MockCapsuleRepository)
	repo.On("ListUnexpired", mock.Anything).Return([]model.Capsule{}, nil).Maybe()

	s := New(repo, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)

	calls := len(repo.Calls)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, len(repo.Calls), "sweeper kept running after cancel")
}
