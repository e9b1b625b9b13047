package domain

import "time"

type Train struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Source        string    `json:"source"`
	Destination   string    `json:"destination"`
	TotalSeats    int       `json:"total_seats"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TrainAvailability pairs a train with the seat ledger entry matching a route query.
type TrainAvailability struct {
	Train        Train            `json:"trains"`
	Availability SeatAvailability `json:"seat_availability"`
}
