package api

import (
	"context"

	"github.com/Domenick1991/trainbooking/internal/auth"
	"github.com/Domenick1991/trainbooking/internal/domain"
	"github.com/Domenick1991/trainbooking/internal/service/trains"
	"github.com/stretchr/testify/mock"
)

type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) Reserve(ctx context.Context, requester domain.Principal, trainID int64) (*domain.Booking, error) {
	args := m.Called(ctx, requester, trainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, id string, requester domain.Principal) (*domain.BookingDetails, error) {
	args := m.Called(ctx, id, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingDetails), args.Error(1)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, id string, requester domain.Principal) (*domain.Booking, error) {
	args := m.Called(ctx, id, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) AuditLedger(ctx context.Context) ([]domain.LedgerViolation, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.LedgerViolation), args.Error(1)
}

type MockTrainUseCase struct {
	mock.Mock
}

func (m *MockTrainUseCase) CreateTrain(ctx context.Context, input trains.CreateTrainInput) (*domain.Train, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Train), args.Error(1)
}

func (m *MockTrainUseCase) GetByID(ctx context.Context, id int64) (*domain.Train, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Train), args.Error(1)
}

func (m *MockTrainUseCase) FindAvailability(ctx context.Context, source, destination string) ([]domain.TrainAvailability, error) {
	args := m.Called(ctx, source, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TrainAvailability), args.Error(1)
}

type MockUserUseCase struct {
	mock.Mock
}

func (m *MockUserUseCase) Register(ctx context.Context, input auth.RegisterInput) (*domain.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserUseCase) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

// staticTokens admits the tokens it was built with.
type staticTokens map[string]domain.Principal

func (s staticTokens) Authenticate(token string) (domain.Principal, error) {
	p, ok := s[token]
	if !ok {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	return p, nil
}
