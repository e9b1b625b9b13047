package domain

import "time"

// SeatAvailability is one seat ledger entry: the remaining bookable seats of a train
// on a (source, destination) route.
type SeatAvailability struct {
	ID             int64     `json:"id"`
	TrainID        int64     `json:"train_id"`
	Source         string    `json:"source"`
	Destination    string    `json:"destination"`
	AvailableSeats int       `json:"available_seats"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// TotalSeats is copied from the train when the entry is read under lock.
	TotalSeats int `json:"-"`
}

// LedgerSnapshot is a consistent read of one ledger entry together with the
// number of confirmed bookings held against its train.
type LedgerSnapshot struct {
	EntryID        int64
	TrainID        int64
	Source         string
	Destination    string
	AvailableSeats int
	TotalSeats     int
	ConfirmedSeats int
}

// LedgerViolation describes a snapshot that breaks the seat accounting invariant.
type LedgerViolation struct {
	Snapshot LedgerSnapshot
	Reason   string
}

// Check reports why the snapshot is inconsistent, or an empty string if it is not.
func (s LedgerSnapshot) Check() string {
	switch {
	case s.AvailableSeats < 0:
		return "available seats below zero"
	case s.AvailableSeats > s.TotalSeats:
		return "available seats above train capacity"
	case s.TotalSeats-s.AvailableSeats != s.ConfirmedSeats:
		return "booked seats do not match confirmed bookings"
	}
	return ""
}
