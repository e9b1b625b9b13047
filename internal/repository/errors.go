package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/trainbooking/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
)

const confirmedSeatIndex = "bookings_confirmed_seat_uidx"

// translate maps driver errors onto the domain taxonomy. Errors it does not
// recognise are returned unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return fmt.Errorf("%w: %s", domain.ErrConcurrentConflict, pgErr.Message)
	case pgQueryCanceled:
		return fmt.Errorf("%w: %s", domain.ErrTimeout, pgErr.Message)
	case pgUniqueViolation:
		if pgErr.ConstraintName == confirmedSeatIndex {
			return fmt.Errorf("%w: seat already taken", domain.ErrConcurrentConflict)
		}
	}
	return err
}
