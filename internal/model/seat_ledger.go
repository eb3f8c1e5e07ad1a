package model

import "time"

// SeatLedger is the per-event seat accounting row.  The whole subsystem
// exists to protect its invariant:
//
//	reserved_count + confirmed_count <= capacity
//
// at all times, under arbitrary concurrent access.  Only the seat
// allocator mutates this row, and only through single guarded UPDATE
// statements so the check-and-increment is atomic.
//
// Fields:
//  EventSlug      – event this ledger accounts for (primary key).
//  Capacity       – maximum number of attendees.
//  ReservedCount  – seats held by unconfirmed registrations.
//  ConfirmedCount – seats taken by confirmed registrations.
type SeatLedger struct {
	EventSlug      string // seat_ledgers.event_slug
	Capacity       int    // seat_ledgers.capacity
	ReservedCount  int    // seat_ledgers.reserved_count
	ConfirmedCount int    // seat_ledgers.confirmed_count
}

// ReservationToken is the handle returned by a successful seat
// reservation.  It carries enough state for the later commit or
// release, and for TTL expiry decisions by the sweeper.
type ReservationToken struct {
	EventSlug  string    // event whose ledger holds the reserved unit
	ReservedAt time.Time // when the reservation was taken, UTC
}

// Expired reports whether the reservation has outlived the given TTL at
// the supplied instant.
func (t ReservationToken) Expired(ttl time.Duration, now time.Time) bool {
	return now.After(t.ReservedAt.Add(ttl))
}
