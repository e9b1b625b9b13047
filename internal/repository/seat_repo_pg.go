package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/trainbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SeatRepository is the seat ledger. Every mutation must run inside the
// transaction of the caller that also writes the matching booking.
type SeatRepository interface {
	CreateFromTrain(ctx context.Context, train *domain.Train) (*domain.SeatAvailability, error)
	GetAvailability(ctx context.Context, trainID int64) (int, error)
	GetForUpdate(ctx context.Context, trainID int64) (*domain.SeatAvailability, error)
	Decrement(ctx context.Context, entryID int64) (int, error)
	Increment(ctx context.Context, entryID int64) (int, error)
	ListSnapshots(ctx context.Context) ([]domain.LedgerSnapshot, error)
}

type PGSeatRepository struct {
	db *pgxpool.Pool
}

func NewSeatRepository(db *pgxpool.Pool) SeatRepository {
	return &PGSeatRepository{db: db}
}

func (r *PGSeatRepository) CreateFromTrain(ctx context.Context, train *domain.Train) (*domain.SeatAvailability, error) {
	sa := domain.SeatAvailability{
		TrainID:        train.ID,
		Source:         train.Source,
		Destination:    train.Destination,
		AvailableSeats: train.TotalSeats,
		TotalSeats:     train.TotalSeats,
	}
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO seat_availability (train_id, source, destination, available_seats)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`, sa.TrainID, sa.Source, sa.Destination, sa.AvailableSeats).
		Scan(&sa.ID, &sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &sa, nil
}

func (r *PGSeatRepository) GetAvailability(ctx context.Context, trainID int64) (int, error) {
	var available int
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT available_seats FROM seat_availability WHERE train_id=$1 ORDER BY id LIMIT 1`, trainID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrTrainNotFound
	}
	return available, translate(err)
}

// GetForUpdate locks the train's ledger entry until the surrounding
// transaction ends.
func (r *PGSeatRepository) GetForUpdate(ctx context.Context, trainID int64) (*domain.SeatAvailability, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT sa.id, sa.train_id, sa.source, sa.destination, sa.available_seats, sa.created_at, sa.updated_at, t.total_seats
		FROM seat_availability sa
		JOIN trains t ON t.id = sa.train_id
		WHERE sa.train_id=$1
		ORDER BY sa.id
		LIMIT 1
		FOR UPDATE OF sa`, trainID)
	var sa domain.SeatAvailability
	if err := row.Scan(&sa.ID, &sa.TrainID, &sa.Source, &sa.Destination, &sa.AvailableSeats, &sa.CreatedAt, &sa.UpdatedAt, &sa.TotalSeats); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTrainNotFound
		}
		return nil, translate(err)
	}
	return &sa, nil
}

func (r *PGSeatRepository) Decrement(ctx context.Context, entryID int64) (int, error) {
	var available int
	err := conn(ctx, r.db).QueryRow(ctx, `UPDATE seat_availability SET available_seats = available_seats - 1, updated_at = now() WHERE id=$1 AND available_seats > 0 RETURNING available_seats`, entryID).
		Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNoSeatsAvailable
	}
	return available, translate(err)
}

func (r *PGSeatRepository) Increment(ctx context.Context, entryID int64) (int, error) {
	var available int
	err := conn(ctx, r.db).QueryRow(ctx, `UPDATE seat_availability sa SET available_seats = sa.available_seats + 1, updated_at = now()
		FROM trains t
		WHERE sa.id=$1 AND t.id = sa.train_id AND sa.available_seats < t.total_seats
		RETURNING sa.available_seats`, entryID).
		Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.Validation("seat ledger entry %d is already at capacity", entryID)
	}
	return available, translate(err)
}

// ListSnapshots reads every ledger entry with its confirmed booking count in a
// single statement, so each snapshot is internally consistent.
func (r *PGSeatRepository) ListSnapshots(ctx context.Context) ([]domain.LedgerSnapshot, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT sa.id, sa.train_id, sa.source, sa.destination, sa.available_seats, t.total_seats,
			(SELECT count(*) FROM bookings b WHERE b.train_id = sa.train_id AND b.booking_status = $1)
		FROM seat_availability sa
		JOIN trains t ON t.id = sa.train_id
		ORDER BY sa.id`, domain.BookingStatusConfirmed)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var snapshots []domain.LedgerSnapshot
	for rows.Next() {
		var s domain.LedgerSnapshot
		if err := rows.Scan(&s.EntryID, &s.TrainID, &s.Source, &s.Destination, &s.AvailableSeats, &s.TotalSeats, &s.ConfirmedSeats); err != nil {
			return nil, translate(err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, translate(rows.Err())
}

var _ SeatRepository = (*PGSeatRepository)(nil)
