package notify

import (
	"context"
	"sync/atomic"

	"github.com/Domenick1991/trainbooking/internal/kafka"
	"github.com/rs/zerolog/log"
)

// Sender delivers booking notifications to passengers. Delivery is a log line
// until a mail or push provider is configured.
type Sender struct {
	sent atomic.Int64
}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Info().
		Int64("user_id", event.UserID).
		Str("event", event.Type).
		Int64("train_id", event.TrainID).
		Int("seat", event.SeatNumber).
		Str("booking_id", event.BookingID).
		Msg("notify passenger")
	s.sent.Add(1)
	return nil
}

func (s *Sender) Sent() int {
	return int(s.sent.Load())
}
