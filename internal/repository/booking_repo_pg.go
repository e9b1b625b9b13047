package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/trainbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookingRepository is the booking ledger. Reads that take a principal only
// return bookings owned by that principal unless it is an admin.
type BookingRepository interface {
	Create(ctx context.Context, userID, trainID int64, seatNumber int) (*domain.Booking, error)
	GetByID(ctx context.Context, id string, requester domain.Principal) (*domain.BookingDetails, error)
	GetForUpdate(ctx context.Context, id string, requester domain.Principal) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) (*domain.Booking, error)
	ListConfirmedSeatNumbers(ctx context.Context, trainID int64) (map[int]struct{}, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `b.id, b.user_id, b.train_id, b.seat_number, b.booking_status, b.created_at, b.updated_at`

func scanBooking(row pgx.Row, b *domain.Booking) error {
	return row.Scan(&b.ID, &b.UserID, &b.TrainID, &b.SeatNumber, &b.Status, &b.CreatedAt, &b.UpdatedAt)
}

func (r *PGBookingRepository) Create(ctx context.Context, userID, trainID int64, seatNumber int) (*domain.Booking, error) {
	b := domain.Booking{
		ID:         uuid.NewString(),
		UserID:     userID,
		TrainID:    trainID,
		SeatNumber: seatNumber,
		Status:     domain.BookingStatusConfirmed,
	}
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO bookings (id, user_id, train_id, seat_number, booking_status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`, b.ID, b.UserID, b.TrainID, b.SeatNumber, b.Status).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string, requester domain.Principal) (*domain.BookingDetails, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+bookingColumns+`,
			t.id, t.name, t.source, t.destination, t.total_seats, t.departure_time, t.arrival_time, t.created_at, t.updated_at
		FROM bookings b
		JOIN trains t ON t.id = b.train_id
		WHERE b.id=$1 AND (b.user_id=$2 OR $3)`, id, requester.UserID, requester.IsAdmin())

	var d domain.BookingDetails
	b, t := &d.Booking, &d.Train
	if err := row.Scan(&b.ID, &b.UserID, &b.TrainID, &b.SeatNumber, &b.Status, &b.CreatedAt, &b.UpdatedAt,
		&t.ID, &t.Name, &t.Source, &t.Destination, &t.TotalSeats, &t.DepartureTime, &t.ArrivalTime, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, translate(err)
	}
	return &d, nil
}

func (r *PGBookingRepository) GetForUpdate(ctx context.Context, id string, requester domain.Principal) (*domain.Booking, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id=$1 AND (b.user_id=$2 OR $3) FOR UPDATE`, id, requester.UserID, requester.IsAdmin())
	var b domain.Booking
	if err := scanBooking(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, translate(err)
	}
	return &b, nil
}

func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) (*domain.Booking, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `UPDATE bookings b SET booking_status=$1, updated_at=now() WHERE b.id=$2 RETURNING `+bookingColumns, status, id)
	var b domain.Booking
	if err := scanBooking(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, translate(err)
	}
	return &b, nil
}

func (r *PGBookingRepository) ListConfirmedSeatNumbers(ctx context.Context, trainID int64) (map[int]struct{}, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT seat_number FROM bookings WHERE train_id=$1 AND booking_status=$2`, trainID, domain.BookingStatusConfirmed)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	seats := make(map[int]struct{})
	for rows.Next() {
		var seat int
		if err := rows.Scan(&seat); err != nil {
			return nil, translate(err)
		}
		seats[seat] = struct{}{}
	}
	return seats, translate(rows.Err())
}

var _ BookingRepository = (*PGBookingRepository)(nil)
