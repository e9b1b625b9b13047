package kafka

import (
	"time"

	"github.com/Domenick1991/trainbooking/internal/domain"
)

const (
	EventBookingConfirmed = "booking_confirmed"
	EventBookingCancelled = "booking_cancelled"
)

type BookingEvent struct {
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id"`
	UserID     int64     `json:"user_id"`
	TrainID    int64     `json:"train_id"`
	SeatNumber int       `json:"seat_number"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b *domain.Booking) BookingEvent {
	return BookingEvent{
		Type:       eventType,
		BookingID:  b.ID,
		UserID:     b.UserID,
		TrainID:    b.TrainID,
		SeatNumber: b.SeatNumber,
		Status:     string(b.Status),
		OccurredAt: b.UpdatedAt,
	}
}
