package domain

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID         string        `json:"id"`
	UserID     int64         `json:"user_id"`
	TrainID    int64         `json:"train_id"`
	SeatNumber int           `json:"seat_number"`
	Status     BookingStatus `json:"booking_status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// BookingDetails is a booking joined with the train it was made on.
type BookingDetails struct {
	Booking Booking `json:"booking"`
	Train   Train   `json:"train"`
}
