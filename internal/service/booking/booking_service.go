package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/trainbooking/internal/domain"
	"github.com/Domenick1991/trainbooking/internal/kafka"
	"github.com/Domenick1991/trainbooking/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrLedgerInconsistent is returned when the seat ledger reports free seats
// but every seat number of the train is held by a confirmed booking.
var ErrLedgerInconsistent = errors.New("seat ledger out of sync with confirmed bookings")

type BookingUseCase interface {
	Reserve(ctx context.Context, requester domain.Principal, trainID int64) (*domain.Booking, error)
	GetBooking(ctx context.Context, id string, requester domain.Principal) (*domain.BookingDetails, error)
	CancelBooking(ctx context.Context, id string, requester domain.Principal) (*domain.Booking, error)
	AuditLedger(ctx context.Context) ([]domain.LedgerViolation, error)
}

type Cache interface {
	InvalidateAvailability(ctx context.Context, source, destination string) error
}

type Producer interface {
	PublishWithRetry(ctx context.Context, topic, key string, value any, attempts int) error
}

// BookingService is the only writer of the seat and booking ledgers.
type BookingService struct {
	tx                 repository.Transactor
	seats              repository.SeatRepository
	bookings           repository.BookingRepository
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	reserveTimeout     time.Duration
	maxAttempts        int
	retryBackoff       time.Duration
	publishAttempts    int
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

// WithRetry bounds how many times a reservation that lost a race is attempted.
func WithRetry(maxAttempts int, backoff time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
		s.retryBackoff = backoff
	}
}

// WithPublishAttempts sets how many times each booking event is sent before
// the failure is logged and dropped.
func WithPublishAttempts(attempts int) BookingServiceOption {
	return func(s *BookingService) {
		if attempts > 0 {
			s.publishAttempts = attempts
		}
	}
}

// WithReserveTimeout caps each reservation attempt, lock wait included.
func WithReserveTimeout(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.reserveTimeout = d
	}
}

func NewBookingService(
	tx repository.Transactor,
	seats repository.SeatRepository,
	bookings repository.BookingRepository,
	cache Cache,
	producer Producer,
	bookingTopic string,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		tx:              tx,
		seats:           seats,
		bookings:        bookings,
		cache:           cache,
		producer:        producer,
		bookingTopic:    bookingTopic,
		maxAttempts:     1,
		publishAttempts: 1,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Reserve books one seat on the train for the requester. The ledger check,
// seat assignment, booking insert and ledger decrement commit together or not
// at all. Lost races are retried up to the configured number of attempts.
func (s *BookingService) Reserve(ctx context.Context, requester domain.Principal, trainID int64) (*domain.Booking, error) {
	if requester.UserID <= 0 {
		return nil, domain.ErrUnauthorized
	}
	if trainID <= 0 {
		return nil, domain.Validation("train id must be positive")
	}

	var (
		booking *domain.Booking
		entry   *domain.SeatAvailability
		err     error
	)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		booking, entry, err = s.reserveOnce(ctx, requester.UserID, trainID)
		if !errors.Is(err, domain.ErrConcurrentConflict) {
			break
		}
		log.Warn().Err(err).Int64("train_id", trainID).Int("attempt", attempt).Msg("reservation conflict")
		if attempt == s.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrTimeout, ctx.Err())
		case <-time.After(time.Duration(attempt) * s.retryBackoff):
		}
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("booking_id", booking.ID).Int64("train_id", trainID).Int64("user_id", requester.UserID).Int("seat", booking.SeatNumber).Msg("seat reserved")
	s.afterLedgerChange(ctx, entry, kafka.EventBookingConfirmed, booking)
	return booking, nil
}

func (s *BookingService) reserveOnce(ctx context.Context, userID, trainID int64) (*domain.Booking, *domain.SeatAvailability, error) {
	if s.reserveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.reserveTimeout)
		defer cancel()
	}

	var (
		booking *domain.Booking
		entry   *domain.SeatAvailability
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.seats.GetForUpdate(ctx, trainID)
		if err != nil {
			return err
		}
		if e.AvailableSeats <= 0 {
			return domain.ErrNoSeatsAvailable
		}

		taken, err := s.bookings.ListConfirmedSeatNumbers(ctx, trainID)
		if err != nil {
			return fmt.Errorf("list confirmed seats: %w", err)
		}
		seat, err := assignSeat(e.TotalSeats, taken)
		if err != nil {
			return fmt.Errorf("train %d: %w", trainID, err)
		}

		b, err := s.bookings.Create(ctx, userID, trainID, seat)
		if err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		if _, err := s.seats.Decrement(ctx, e.ID); err != nil {
			return fmt.Errorf("decrement seats: %w", err)
		}

		booking, entry = b, e
		return nil
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
			err = fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		return nil, nil, err
	}
	return booking, entry, nil
}

// assignSeat returns the lowest seat number in 1..totalSeats not held by a
// confirmed booking. Callers must hold the ledger lock while taken is read.
func assignSeat(totalSeats int, taken map[int]struct{}) (int, error) {
	for seat := 1; seat <= totalSeats; seat++ {
		if _, ok := taken[seat]; !ok {
			return seat, nil
		}
	}
	return 0, ErrLedgerInconsistent
}

// canonicalID returns the hyphenated form of a booking id, or
// ErrBookingNotFound if id is not a UUID in any form uuid.Parse accepts.
func canonicalID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", domain.ErrBookingNotFound
	}
	return parsed.String(), nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string, requester domain.Principal) (*domain.BookingDetails, error) {
	id, err := canonicalID(id)
	if err != nil {
		return nil, err
	}
	return s.bookings.GetByID(ctx, id, requester)
}

// CancelBooking marks a confirmed booking cancelled and returns its seat to
// the ledger. Cancelling an already cancelled booking returns it unchanged.
func (s *BookingService) CancelBooking(ctx context.Context, id string, requester domain.Principal) (*domain.Booking, error) {
	id, err := canonicalID(id)
	if err != nil {
		return nil, err
	}

	var (
		updated *domain.Booking
		entry   *domain.SeatAvailability
	)
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.bookings.GetForUpdate(ctx, id, requester)
		if err != nil {
			return err
		}
		if current.Status != domain.BookingStatusConfirmed {
			updated = current
			return nil
		}

		e, err := s.seats.GetForUpdate(ctx, current.TrainID)
		if err != nil {
			return err
		}
		b, err := s.bookings.UpdateStatus(ctx, id, domain.BookingStatusCancelled)
		if err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}
		if _, err := s.seats.Increment(ctx, e.ID); err != nil {
			return fmt.Errorf("increment seats: %w", err)
		}

		updated, entry = b, e
		return nil
	})
	if err != nil {
		return nil, err
	}

	if entry != nil {
		log.Info().Str("booking_id", id).Int64("train_id", updated.TrainID).Int("seat", updated.SeatNumber).Msg("booking cancelled")
		s.afterLedgerChange(ctx, entry, kafka.EventBookingCancelled, updated)
	}
	return updated, nil
}

// AuditLedger checks every seat ledger entry against its train capacity and
// confirmed bookings.
func (s *BookingService) AuditLedger(ctx context.Context) ([]domain.LedgerViolation, error) {
	snapshots, err := s.seats.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ledger snapshots: %w", err)
	}

	var violations []domain.LedgerViolation
	for _, snap := range snapshots {
		if reason := snap.Check(); reason != "" {
			log.Error().
				Int64("entry_id", snap.EntryID).
				Int64("train_id", snap.TrainID).
				Int("available", snap.AvailableSeats).
				Int("total", snap.TotalSeats).
				Int("confirmed", snap.ConfirmedSeats).
				Msg(reason)
			violations = append(violations, domain.LedgerViolation{Snapshot: snap, Reason: reason})
		}
	}
	return violations, nil
}

// afterLedgerChange runs once the transaction has committed. Failures here do
// not undo the booking and are only logged.
func (s *BookingService) afterLedgerChange(ctx context.Context, entry *domain.SeatAvailability, eventType string, booking *domain.Booking) {
	if s.cache != nil {
		if err := s.cache.InvalidateAvailability(ctx, entry.Source, entry.Destination); err != nil {
			log.Warn().Err(err).Str("source", entry.Source).Str("destination", entry.Destination).Msg("invalidate availability cache")
		}
	}
	if err := s.publish(ctx, eventType, booking); err != nil {
		log.Warn().Err(err).Str("booking_id", booking.ID).Str("event", eventType).Msg("publish booking event")
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) error {
	if s.producer == nil || s.bookingTopic == "" {
		return nil
	}
	event := kafka.NewBookingEvent(eventType, booking)
	if err := s.producer.PublishWithRetry(ctx, s.bookingTopic, booking.ID, event, s.publishAttempts); err != nil {
		return err
	}
	if s.notificationsTopic != "" {
		return s.producer.PublishWithRetry(ctx, s.notificationsTopic, booking.ID, event, s.publishAttempts)
	}
	return nil
}

var _ BookingUseCase = (*BookingService)(nil)
