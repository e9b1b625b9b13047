package trains

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/trainbooking/internal/domain"
	"github.com/Domenick1991/trainbooking/internal/repository"
	"github.com/rs/zerolog/log"
)

type TrainUseCase interface {
	CreateTrain(ctx context.Context, input CreateTrainInput) (*domain.Train, error)
	GetByID(ctx context.Context, id int64) (*domain.Train, error)
	FindAvailability(ctx context.Context, source, destination string) ([]domain.TrainAvailability, error)
}

type AvailabilityCache interface {
	GetAvailability(ctx context.Context, source, destination string) ([]domain.TrainAvailability, int64, error)
	SetAvailability(ctx context.Context, source, destination string, version int64, trains []domain.TrainAvailability) error
	InvalidateAvailability(ctx context.Context, source, destination string) error
}

type CreateTrainInput struct {
	Name          string    `json:"name"`
	Source        string    `json:"source"`
	Destination   string    `json:"destination"`
	TotalSeats    int       `json:"total_seats"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
}

func (in CreateTrainInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return domain.Validation("name is required")
	case strings.TrimSpace(in.Source) == "" || strings.TrimSpace(in.Destination) == "":
		return domain.Validation("source and destination are required")
	case in.Source == in.Destination:
		return domain.Validation("source and destination must differ")
	case in.TotalSeats <= 0:
		return domain.Validation("total seats must be positive")
	case in.DepartureTime.IsZero() || in.ArrivalTime.IsZero():
		return domain.Validation("departure and arrival times are required")
	case !in.ArrivalTime.After(in.DepartureTime):
		return domain.Validation("arrival must be after departure")
	}
	return nil
}

type TrainService struct {
	tx     repository.Transactor
	trains repository.TrainRepository
	seats  repository.SeatRepository
	cache  AvailabilityCache
}

func NewTrainService(tx repository.Transactor, trains repository.TrainRepository, seats repository.SeatRepository, cache AvailabilityCache) *TrainService {
	return &TrainService{tx: tx, trains: trains, seats: seats, cache: cache}
}

// CreateTrain stores the train and seeds its seat ledger entry with every
// seat available, in one transaction.
func (s *TrainService) CreateTrain(ctx context.Context, input CreateTrainInput) (*domain.Train, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	train := &domain.Train{
		Name:          input.Name,
		Source:        input.Source,
		Destination:   input.Destination,
		TotalSeats:    input.TotalSeats,
		DepartureTime: input.DepartureTime,
		ArrivalTime:   input.ArrivalTime,
	}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.trains.Create(ctx, train); err != nil {
			return fmt.Errorf("create train: %w", err)
		}
		if _, err := s.seats.CreateFromTrain(ctx, train); err != nil {
			return fmt.Errorf("seed seat ledger: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int64("train_id", train.ID).Str("name", train.Name).Int("seats", train.TotalSeats).Msg("train added")
	if s.cache != nil {
		if err := s.cache.InvalidateAvailability(ctx, train.Source, train.Destination); err != nil {
			log.Warn().Err(err).Msg("invalidate availability cache")
		}
	}
	return train, nil
}

func (s *TrainService) GetByID(ctx context.Context, id int64) (*domain.Train, error) {
	return s.trains.GetByID(ctx, id)
}

// FindAvailability lists trains whose seat ledger entry matches the route
// exactly. Cache failures fall through to the database. A miss is filled
// under the route version read before the query, so a ledger change that
// commits meanwhile keeps the stale result from being served.
func (s *TrainService) FindAvailability(ctx context.Context, source, destination string) ([]domain.TrainAvailability, error) {
	if source == "" || destination == "" {
		return nil, domain.Validation("source and destination are required")
	}

	var (
		version int64
		fill    bool
	)
	if s.cache != nil {
		cached, v, err := s.cache.GetAvailability(ctx, source, destination)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("read availability cache")
		case cached != nil:
			return cached, nil
		default:
			version, fill = v, true
		}
	}

	result, err := s.trains.FindAvailability(ctx, source, destination)
	if err != nil {
		return nil, err
	}
	if fill {
		if err := s.cache.SetAvailability(ctx, source, destination, version, result); err != nil {
			log.Warn().Err(err).Msg("write availability cache")
		}
	}
	return result, nil
}

var _ TrainUseCase = (*TrainService)(nil)
