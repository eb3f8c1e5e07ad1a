package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/event-registration/internal/model"
)

// SeatLedgerRepo owns the seat_ledgers table and is the only component
// allowed to mutate it.  Every mutation is a single guarded UPDATE so
// the capacity check and the counter change happen atomically inside
// the database; there is never a read-then-write window for concurrent
// requests to slip through.
type SeatLedgerRepo struct {
	db *sql.DB
}

// NewSeatLedgerRepo returns a SeatLedgerRepo bound to the given database.
func NewSeatLedgerRepo(db *sql.DB) *SeatLedgerRepo { return &SeatLedgerRepo{db: db} }

// Reserve takes one seat for the event, or returns ErrSoldOut when the
// ledger is full.  The capacity comes from a fresh catalog snapshot and
// is upserted first so the ledger row always reflects the latest
// editorial value.  The reserve itself is a conditional increment:
//
//	UPDATE ... SET reserved_count = reserved_count + 1
//	WHERE event_slug = ? AND reserved_count + confirmed_count < capacity
//
// Zero affected rows means the event is full.
func (r *SeatLedgerRepo) Reserve(ctx context.Context, eventSlug string, capacity int) (model.ReservationToken, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO seat_ledgers (event_slug, capacity, reserved_count, confirmed_count)
		 VALUES (?, ?, 0, 0)
		 ON DUPLICATE KEY UPDATE capacity = VALUES(capacity)`,
		eventSlug, capacity,
	)
	if err != nil {
		return model.ReservationToken{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE seat_ledgers
		 SET reserved_count = reserved_count + 1
		 WHERE event_slug = ? AND reserved_count + confirmed_count < capacity`,
		eventSlug,
	)
	if err != nil {
		return model.ReservationToken{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.ReservationToken{}, err
	}
	if n == 0 {
		return model.ReservationToken{}, ErrSoldOut
	}
	return model.ReservationToken{EventSlug: eventSlug, ReservedAt: time.Now().UTC()}, nil
}

// Commit moves one unit from reserved to confirmed.  Callers invoke it
// only after winning the registration status transition, which makes
// each token commit at most once; the reserved_count > 0 guard protects
// the counters from underflow regardless.
func (r *SeatLedgerRepo) Commit(ctx context.Context, token model.ReservationToken) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE seat_ledgers
		 SET reserved_count = reserved_count - 1, confirmed_count = confirmed_count + 1
		 WHERE event_slug = ? AND reserved_count > 0`,
		token.EventSlug,
	)
	return err
}

// Release returns one reserved unit to the pool.  Like Commit it is
// effectively idempotent: the caller's status guard ensures a token is
// released at most once, and the reserved_count > 0 guard keeps a stray
// call from driving the counter negative.
func (r *SeatLedgerRepo) Release(ctx context.Context, token model.ReservationToken) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE seat_ledgers
		 SET reserved_count = reserved_count - 1
		 WHERE event_slug = ? AND reserved_count > 0`,
		token.EventSlug,
	)
	return err
}

// Get reads the ledger row for an event.  Used by tests and by ops
// tooling to inspect remaining capacity.
func (r *SeatLedgerRepo) Get(ctx context.Context, eventSlug string) (model.SeatLedger, error) {
	var l model.SeatLedger
	err := r.db.QueryRowContext(ctx,
		`SELECT event_slug, capacity, reserved_count, confirmed_count
		 FROM seat_ledgers WHERE event_slug = ?`,
		eventSlug,
	).Scan(&l.EventSlug, &l.Capacity, &l.ReservedCount, &l.ConfirmedCount)
	return l, err
}
