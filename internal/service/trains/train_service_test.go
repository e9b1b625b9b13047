package trains

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/trainbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTrainRepository struct {
	mock.Mock
}

func (m *MockTrainRepository) Create(ctx context.Context, train *domain.Train) error {
	args := m.Called(ctx, train)
	return args.Error(0)
}

func (m *MockTrainRepository) GetByID(ctx context.Context, id int64) (*domain.Train, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Train), args.Error(1)
}

func (m *MockTrainRepository) FindAvailability(ctx context.Context, source, destination string) ([]domain.TrainAvailability, error) {
	args := m.Called(ctx, source, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TrainAvailability), args.Error(1)
}

type MockSeatRepository struct {
	mock.Mock
}

func (m *MockSeatRepository) CreateFromTrain(ctx context.Context, train *domain.Train) (*domain.SeatAvailability, error) {
	args := m.Called(ctx, train)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SeatAvailability), args.Error(1)
}

func (m *MockSeatRepository) GetAvailability(ctx context.Context, trainID int64) (int, error) {
	args := m.Called(ctx, trainID)
	return args.Int(0), args.Error(1)
}

func (m *MockSeatRepository) GetForUpdate(ctx context.Context, trainID int64) (*domain.SeatAvailability, error) {
	args := m.Called(ctx, trainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SeatAvailability), args.Error(1)
}

func (m *MockSeatRepository) Decrement(ctx context.Context, entryID int64) (int, error) {
	args := m.Called(ctx, entryID)
	return args.Int(0), args.Error(1)
}

func (m *MockSeatRepository) Increment(ctx context.Context, entryID int64) (int, error) {
	args := m.Called(ctx, entryID)
	return args.Int(0), args.Error(1)
}

func (m *MockSeatRepository) ListSnapshots(ctx context.Context) ([]domain.LedgerSnapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.LedgerSnapshot), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetAvailability(ctx context.Context, source, destination string) ([]domain.TrainAvailability, int64, error) {
	args := m.Called(ctx, source, destination)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]domain.TrainAvailability), args.Get(1).(int64), args.Error(2)
}

func (m *MockCache) SetAvailability(ctx context.Context, source, destination string, version int64, trains []domain.TrainAvailability) error {
	args := m.Called(ctx, source, destination, version, trains)
	return args.Error(0)
}

// versionedCache keeps results per route version, the way the redis cache does.
type versionedCache struct {
	mu       sync.Mutex
	versions map[string]int64
	entries  map[string][]domain.TrainAvailability
}

func newVersionedCache() *versionedCache {
	return &versionedCache{versions: map[string]int64{}, entries: map[string][]domain.TrainAvailability{}}
}

func (c *versionedCache) key(source, destination string, version int64) string {
	return fmt.Sprintf("%s|%s|%d", source, destination, version)
}

func (c *versionedCache) GetAvailability(_ context.Context, source, destination string) ([]domain.TrainAvailability, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.versions[source+"|"+destination]
	return c.entries[c.key(source, destination, v)], v, nil
}

func (c *versionedCache) SetAvailability(_ context.Context, source, destination string, version int64, trains []domain.TrainAvailability) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.key(source, destination, version)] = trains
	return nil
}

func (c *versionedCache) InvalidateAvailability(_ context.Context, source, destination string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[source+"|"+destination]++
	return nil
}

func (m *MockCache) InvalidateAvailability(ctx context.Context, source, destination string) error {
	args := m.Called(ctx, source, destination)
	return args.Error(0)
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func express101(available int) []domain.TrainAvailability {
	return []domain.TrainAvailability{{
		Train:        domain.Train{ID: 1, Name: "Express 101", Source: "Mumbai", Destination: "Delhi", TotalSeats: 100},
		Availability: domain.SeatAvailability{ID: 1, TrainID: 1, Source: "Mumbai", Destination: "Delhi", AvailableSeats: available},
	}}
}

func TestTrainService_FindAvailability_CacheMiss(t *testing.T) {
	repo := &MockTrainRepository{}
	cache := &MockCache{}
	service := NewTrainService(passthroughTx{}, repo, &MockSeatRepository{}, cache)

	ctx := context.Background()
	want := express101(100)

	cache.On("GetAvailability", ctx, "Mumbai", "Delhi").Return(nil, int64(4), nil).Once()
	repo.On("FindAvailability", ctx, "Mumbai", "Delhi").Return(want, nil).Once()
	cache.On("SetAvailability", ctx, "Mumbai", "Delhi", int64(4), want).Return(nil).Once()

	got, err := service.FindAvailability(ctx, "Mumbai", "Delhi")

	require.NoError(t, err)
	assert.Equal(t, want, got)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestTrainService_FindAvailability_CacheHit(t *testing.T) {
	repo := &MockTrainRepository{}
	cache := &MockCache{}
	service := NewTrainService(passthroughTx{}, repo, &MockSeatRepository{}, cache)

	ctx := context.Background()
	cache.On("GetAvailability", ctx, "Mumbai", "Delhi").Return(express101(42), int64(1), nil).Once()

	got, err := service.FindAvailability(ctx, "Mumbai", "Delhi")

	require.NoError(t, err)
	assert.Equal(t, 42, got[0].Availability.AvailableSeats)
	repo.AssertNotCalled(t, "FindAvailability", mock.Anything, mock.Anything, mock.Anything)
}

func TestTrainService_FindAvailability_CacheErrorFallsBack(t *testing.T) {
	repo := &MockTrainRepository{}
	cache := &MockCache{}
	service := NewTrainService(passthroughTx{}, repo, &MockSeatRepository{}, cache)

	ctx := context.Background()
	cache.On("GetAvailability", ctx, "Mumbai", "Delhi").Return(nil, int64(0), errors.New("redis down")).Once()
	repo.On("FindAvailability", ctx, "Mumbai", "Delhi").Return(express101(100), nil).Once()

	got, err := service.FindAvailability(ctx, "Mumbai", "Delhi")

	require.NoError(t, err)
	assert.Len(t, got, 1)
	cache.AssertNotCalled(t, "SetAvailability", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTrainService_FindAvailability_FillErrorIsIgnored(t *testing.T) {
	repo := &MockTrainRepository{}
	cache := &MockCache{}
	service := NewTrainService(passthroughTx{}, repo, &MockSeatRepository{}, cache)

	cache.On("GetAvailability", mock.Anything, "Mumbai", "Delhi").Return(nil, int64(0), nil).Once()
	repo.On("FindAvailability", mock.Anything, "Mumbai", "Delhi").Return(express101(100), nil).Once()
	cache.On("SetAvailability", mock.Anything, "Mumbai", "Delhi", int64(0), mock.Anything).Return(errors.New("redis down")).Once()

	got, err := service.FindAvailability(context.Background(), "Mumbai", "Delhi")

	require.NoError(t, err)
	assert.Len(t, got, 1)
	cache.AssertExpectations(t)
}

func TestTrainService_FindAvailability_FillRacingLedgerChangeIsNotServed(t *testing.T) {
	repo := &MockTrainRepository{}
	cache := newVersionedCache()
	service := NewTrainService(passthroughTx{}, repo, &MockSeatRepository{}, cache)

	ctx := context.Background()
	// A reservation commits and invalidates the route while the first read
	// is still holding the pre-reservation result.
	repo.On("FindAvailability", ctx, "Mumbai", "Delhi").
		Run(func(mock.Arguments) { _ = cache.InvalidateAvailability(ctx, "Mumbai", "Delhi") }).
		Return(express101(100), nil).Once()
	repo.On("FindAvailability", ctx, "Mumbai", "Delhi").Return(express101(99), nil).Once()

	first, err := service.FindAvailability(ctx, "Mumbai", "Delhi")
	require.NoError(t, err)
	assert.Equal(t, 100, first[0].Availability.AvailableSeats)

	second, err := service.FindAvailability(ctx, "Mumbai", "Delhi")
	require.NoError(t, err)
	assert.Equal(t, 99, second[0].Availability.AvailableSeats)

	third, err := service.FindAvailability(ctx, "Mumbai", "Delhi")
	require.NoError(t, err)
	assert.Equal(t, 99, third[0].Availability.AvailableSeats)
	repo.AssertExpectations(t)
}

func TestTrainService_FindAvailability_NoMatchesIsEmpty(t *testing.T) {
	repo := &MockTrainRepository{}
	service := NewTrainService(passthroughTx{}, repo, &MockSeatRepository{}, nil)

	repo.On("FindAvailability", mock.Anything, "Mumbai", "Del").Return([]domain.TrainAvailability{}, nil).Once()

	got, err := service.FindAvailability(context.Background(), "Mumbai", "Del")

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTrainService_FindAvailability_RequiresRoute(t *testing.T) {
	service := NewTrainService(passthroughTx{}, &MockTrainRepository{}, &MockSeatRepository{}, nil)

	_, err := service.FindAvailability(context.Background(), "Mumbai", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = service.FindAvailability(context.Background(), "", "Delhi")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func validInput() CreateTrainInput {
	dep := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	return CreateTrainInput{
		Name:          "Express 101",
		Source:        "Mumbai",
		Destination:   "Delhi",
		TotalSeats:    100,
		DepartureTime: dep,
		ArrivalTime:   dep.Add(12 * time.Hour),
	}
}

func TestTrainService_CreateTrain_Success(t *testing.T) {
	repo := &MockTrainRepository{}
	seats := &MockSeatRepository{}
	cache := &MockCache{}
	service := NewTrainService(passthroughTx{}, repo, seats, cache)

	ctx := context.Background()
	repo.On("Create", ctx, mock.AnythingOfType("*domain.Train")).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Train).ID = 7 }).
		Return(nil).Once()
	seats.On("CreateFromTrain", ctx, mock.MatchedBy(func(t *domain.Train) bool { return t.ID == 7 && t.TotalSeats == 100 })).
		Return(&domain.SeatAvailability{ID: 3, TrainID: 7, AvailableSeats: 100}, nil).Once()
	cache.On("InvalidateAvailability", ctx, "Mumbai", "Delhi").Return(nil).Once()

	train, err := service.CreateTrain(ctx, validInput())

	require.NoError(t, err)
	assert.Equal(t, int64(7), train.ID)
	repo.AssertExpectations(t)
	seats.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestTrainService_CreateTrain_SeedFailure(t *testing.T) {
	repo := &MockTrainRepository{}
	seats := &MockSeatRepository{}
	service := NewTrainService(passthroughTx{}, repo, seats, nil)

	repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	seats.On("CreateFromTrain", mock.Anything, mock.Anything).Return(nil, errors.New("insert failed")).Once()

	_, err := service.CreateTrain(context.Background(), validInput())

	assert.ErrorContains(t, err, "seed seat ledger: insert failed")
}

func TestTrainService_CreateTrain_ValidationErrors(t *testing.T) {
	service := NewTrainService(passthroughTx{}, &MockTrainRepository{}, &MockSeatRepository{}, nil)

	testCases := []struct {
		name        string
		mutate      func(*CreateTrainInput)
		expectedErr string
	}{
		{"missing name", func(in *CreateTrainInput) { in.Name = " " }, "name is required"},
		{"missing destination", func(in *CreateTrainInput) { in.Destination = "" }, "source and destination are required"},
		{"same endpoints", func(in *CreateTrainInput) { in.Destination = in.Source }, "source and destination must differ"},
		{"zero seats", func(in *CreateTrainInput) { in.TotalSeats = 0 }, "total seats must be positive"},
		{"missing times", func(in *CreateTrainInput) { in.ArrivalTime = time.Time{} }, "departure and arrival times are required"},
		{"arrives before departure", func(in *CreateTrainInput) { in.ArrivalTime = in.DepartureTime.Add(-time.Hour) }, "arrival must be after departure"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)

			train, err := service.CreateTrain(context.Background(), in)

			assert.Nil(t, train)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.ErrorContains(t, err, tc.expectedErr)
		})
	}
}

func TestTrainService_GetByID(t *testing.T) {
	repo := &MockTrainRepository{}
	service := NewTrainService(passthroughTx{}, repo, &MockSeatRepository{}, nil)

	repo.On("GetByID", mock.Anything, int64(9)).Return(nil, domain.ErrTrainNotFound).Once()

	_, err := service.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, domain.ErrTrainNotFound)
}
