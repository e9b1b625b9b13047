package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/trainbooking/internal/domain"
	"github.com/google/uuid"
)

// memLedger is an in-memory seat and booking ledger. A transaction holds one
// mutex for its whole duration and restores a snapshot when it fails, which
// gives the same serialization and rollback guarantees the row lock gives
// against postgres.
type memLedger struct {
	mu       sync.Mutex
	trains   map[int64]domain.Train
	entries  map[int64]domain.SeatAvailability
	bookings map[string]domain.Booking
	nextID   int64

	// Fault injection.
	failCreate   error
	beforeCommit func() error
}

type memTxKey struct{}

// memSeats and memBookings expose the two ledgers of one memLedger.
type memSeats struct{ *memLedger }

type memBookings struct{ *memLedger }

type memTrains struct{ *memLedger }

func (m *memLedger) seatLedger() memSeats { return memSeats{m} }

func (m *memLedger) bookingLedger() memBookings { return memBookings{m} }

func (m *memLedger) trainLedger() memTrains { return memTrains{m} }

func newMemLedger() *memLedger {
	return &memLedger{
		trains:   make(map[int64]domain.Train),
		entries:  make(map[int64]domain.SeatAvailability),
		bookings: make(map[string]domain.Booking),
	}
}

func (m *memLedger) addTrain(name, source, destination string, totalSeats int) domain.Train {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	t := domain.Train{ID: m.nextID, Name: name, Source: source, Destination: destination, TotalSeats: totalSeats}
	m.trains[t.ID] = t
	m.nextID++
	m.entries[m.nextID] = domain.SeatAvailability{ID: m.nextID, TrainID: t.ID, Source: source, Destination: destination, AvailableSeats: totalSeats}
	return t
}

func (m *memLedger) guard(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *memLedger) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	trains := make(map[int64]domain.Train, len(m.trains))
	for k, v := range m.trains {
		trains[k] = v
	}
	entries := make(map[int64]domain.SeatAvailability, len(m.entries))
	for k, v := range m.entries {
		entries[k] = v
	}
	bookings := make(map[string]domain.Booking, len(m.bookings))
	for k, v := range m.bookings {
		bookings[k] = v
	}

	err := fn(context.WithValue(ctx, memTxKey{}, true))
	if err == nil && m.beforeCommit != nil {
		err = m.beforeCommit()
	}
	if err != nil {
		m.trains, m.entries, m.bookings = trains, entries, bookings
		return err
	}
	return nil
}

func (m *memLedger) entryForTrain(trainID int64) (domain.SeatAvailability, bool) {
	var found domain.SeatAvailability
	ok := false
	for _, e := range m.entries {
		if e.TrainID == trainID && (!ok || e.ID < found.ID) {
			found, ok = e, true
		}
	}
	return found, ok
}

// Trains.

func (m memTrains) Create(ctx context.Context, train *domain.Train) error {
	defer m.guard(ctx)()
	m.nextID++
	train.ID = m.nextID
	train.CreatedAt = time.Now()
	train.UpdatedAt = train.CreatedAt
	m.trains[train.ID] = *train
	return nil
}

func (m memTrains) GetByID(ctx context.Context, id int64) (*domain.Train, error) {
	defer m.guard(ctx)()
	t, ok := m.trains[id]
	if !ok {
		return nil, domain.ErrTrainNotFound
	}
	return &t, nil
}

func (m memTrains) FindAvailability(ctx context.Context, source, destination string) ([]domain.TrainAvailability, error) {
	defer m.guard(ctx)()
	out := []domain.TrainAvailability{}
	for _, e := range m.entries {
		if e.Source == source && e.Destination == destination {
			out = append(out, domain.TrainAvailability{Train: m.trains[e.TrainID], Availability: e})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Train.ID < out[j].Train.ID })
	return out, nil
}

// Seat ledger.

func (m memSeats) CreateFromTrain(ctx context.Context, train *domain.Train) (*domain.SeatAvailability, error) {
	defer m.guard(ctx)()
	m.nextID++
	e := domain.SeatAvailability{ID: m.nextID, TrainID: train.ID, Source: train.Source, Destination: train.Destination, AvailableSeats: train.TotalSeats, TotalSeats: train.TotalSeats}
	m.entries[e.ID] = e
	return &e, nil
}

func (m memSeats) GetAvailability(ctx context.Context, trainID int64) (int, error) {
	defer m.guard(ctx)()
	e, ok := m.entryForTrain(trainID)
	if !ok {
		return 0, domain.ErrTrainNotFound
	}
	return e.AvailableSeats, nil
}

func (m memSeats) GetForUpdate(ctx context.Context, trainID int64) (*domain.SeatAvailability, error) {
	defer m.guard(ctx)()
	e, ok := m.entryForTrain(trainID)
	if !ok {
		return nil, domain.ErrTrainNotFound
	}
	e.TotalSeats = m.trains[trainID].TotalSeats
	return &e, nil
}

func (m memSeats) Decrement(ctx context.Context, entryID int64) (int, error) {
	defer m.guard(ctx)()
	e := m.entries[entryID]
	if e.AvailableSeats <= 0 {
		return 0, domain.ErrNoSeatsAvailable
	}
	e.AvailableSeats--
	m.entries[entryID] = e
	return e.AvailableSeats, nil
}

func (m memSeats) Increment(ctx context.Context, entryID int64) (int, error) {
	defer m.guard(ctx)()
	e := m.entries[entryID]
	if e.AvailableSeats >= m.trains[e.TrainID].TotalSeats {
		return 0, domain.Validation("seat ledger entry %d is already at capacity", entryID)
	}
	e.AvailableSeats++
	m.entries[entryID] = e
	return e.AvailableSeats, nil
}

func (m memSeats) ListSnapshots(ctx context.Context) ([]domain.LedgerSnapshot, error) {
	defer m.guard(ctx)()
	var out []domain.LedgerSnapshot
	for _, e := range m.entries {
		confirmed := 0
		for _, b := range m.bookings {
			if b.TrainID == e.TrainID && b.Status == domain.BookingStatusConfirmed {
				confirmed++
			}
		}
		out = append(out, domain.LedgerSnapshot{
			EntryID:        e.ID,
			TrainID:        e.TrainID,
			Source:         e.Source,
			Destination:    e.Destination,
			AvailableSeats: e.AvailableSeats,
			TotalSeats:     m.trains[e.TrainID].TotalSeats,
			ConfirmedSeats: confirmed,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryID < out[j].EntryID })
	return out, nil
}

// Booking ledger.

func (m memBookings) Create(ctx context.Context, userID, trainID int64, seatNumber int) (*domain.Booking, error) {
	defer m.guard(ctx)()
	if m.failCreate != nil {
		return nil, m.failCreate
	}
	for _, b := range m.bookings {
		if b.TrainID == trainID && b.SeatNumber == seatNumber && b.Status == domain.BookingStatusConfirmed {
			return nil, domain.ErrConcurrentConflict
		}
	}
	now := time.Now()
	b := domain.Booking{ID: uuid.NewString(), UserID: userID, TrainID: trainID, SeatNumber: seatNumber, Status: domain.BookingStatusConfirmed, CreatedAt: now, UpdatedAt: now}
	m.bookings[b.ID] = b
	return &b, nil
}

func (m *memLedger) visible(id string, requester domain.Principal) (domain.Booking, bool) {
	b, ok := m.bookings[id]
	if !ok || (b.UserID != requester.UserID && !requester.IsAdmin()) {
		return domain.Booking{}, false
	}
	return b, true
}

func (m memBookings) GetByID(ctx context.Context, id string, requester domain.Principal) (*domain.BookingDetails, error) {
	defer m.guard(ctx)()
	b, ok := m.visible(id, requester)
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return &domain.BookingDetails{Booking: b, Train: m.trains[b.TrainID]}, nil
}

func (m memBookings) GetForUpdate(ctx context.Context, id string, requester domain.Principal) (*domain.Booking, error) {
	defer m.guard(ctx)()
	b, ok := m.visible(id, requester)
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return &b, nil
}

func (m memBookings) UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) (*domain.Booking, error) {
	defer m.guard(ctx)()
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	b.Status = status
	b.UpdatedAt = time.Now()
	m.bookings[id] = b
	return &b, nil
}

func (m memBookings) ListConfirmedSeatNumbers(ctx context.Context, trainID int64) (map[int]struct{}, error) {
	defer m.guard(ctx)()
	seats := make(map[int]struct{})
	for _, b := range m.bookings {
		if b.TrainID == trainID && b.Status == domain.BookingStatusConfirmed {
			seats[b.SeatNumber] = struct{}{}
		}
	}
	return seats, nil
}

func (m *memLedger) confirmedSeats(trainID int64) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var seats []int
	for _, b := range m.bookings {
		if b.TrainID == trainID && b.Status == domain.BookingStatusConfirmed {
			seats = append(seats, b.SeatNumber)
		}
	}
	sort.Ints(seats)
	return seats
}
