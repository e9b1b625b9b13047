package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/trainbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TrainRepository interface {
	Create(ctx context.Context, train *domain.Train) error
	GetByID(ctx context.Context, id int64) (*domain.Train, error)
	FindAvailability(ctx context.Context, source, destination string) ([]domain.TrainAvailability, error)
}

type PGTrainRepository struct {
	db *pgxpool.Pool
}

func NewTrainRepository(db *pgxpool.Pool) TrainRepository {
	return &PGTrainRepository{db: db}
}

func (r *PGTrainRepository) Create(ctx context.Context, train *domain.Train) error {
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO trains (name, source, destination, total_seats, departure_time, arrival_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`, train.Name, train.Source, train.Destination, train.TotalSeats, train.DepartureTime, train.ArrivalTime).
		Scan(&train.ID, &train.CreatedAt, &train.UpdatedAt)
	return translate(err)
}

func (r *PGTrainRepository) GetByID(ctx context.Context, id int64) (*domain.Train, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT id, name, source, destination, total_seats, departure_time, arrival_time, created_at, updated_at FROM trains WHERE id=$1`, id)
	var t domain.Train
	if err := row.Scan(&t.ID, &t.Name, &t.Source, &t.Destination, &t.TotalSeats, &t.DepartureTime, &t.ArrivalTime, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTrainNotFound
		}
		return nil, translate(err)
	}
	return &t, nil
}

func (r *PGTrainRepository) FindAvailability(ctx context.Context, source, destination string) ([]domain.TrainAvailability, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT t.id, t.name, t.source, t.destination, t.total_seats, t.departure_time, t.arrival_time, t.created_at, t.updated_at,
			sa.id, sa.train_id, sa.source, sa.destination, sa.available_seats, sa.created_at, sa.updated_at
		FROM trains t
		JOIN seat_availability sa ON sa.train_id = t.id
		WHERE sa.source = $1 AND sa.destination = $2
		ORDER BY t.departure_time, t.id`, source, destination)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	result := make([]domain.TrainAvailability, 0)
	for rows.Next() {
		var ta domain.TrainAvailability
		t, sa := &ta.Train, &ta.Availability
		if err := rows.Scan(&t.ID, &t.Name, &t.Source, &t.Destination, &t.TotalSeats, &t.DepartureTime, &t.ArrivalTime, &t.CreatedAt, &t.UpdatedAt,
			&sa.ID, &sa.TrainID, &sa.Source, &sa.Destination, &sa.AvailableSeats, &sa.CreatedAt, &sa.UpdatedAt); err != nil {
			return nil, translate(err)
		}
		sa.TotalSeats = t.TotalSeats
		result = append(result, ta)
	}
	return result, translate(rows.Err())
}

var _ TrainRepository = (*PGTrainRepository)(nil)
