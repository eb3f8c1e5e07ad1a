package service

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/event-registration/internal/clock"
	"github.com/iliyamo/event-registration/internal/model"
)

// ReservationSweeper periodically releases reservations whose TTL
// elapsed without a payment confirmation.  It goes through the same
// guarded MarkReleased transition as the main path, so racing a
// late-arriving confirmation is safe: whichever transaction wins the
// status guard performs its transition, the loser becomes a no-op.
type ReservationSweeper struct {
	store    RegistrationStore
	seats    SeatAllocator
	ttl      time.Duration
	interval time.Duration
	clock    clock.Clock
}

// NewReservationSweeper constructs a sweeper with the given reservation
// TTL and sweep interval.
func NewReservationSweeper(store RegistrationStore, seats SeatAllocator, ttl, interval time.Duration, clk clock.Clock) *ReservationSweeper {
	if store == nil || seats == nil || clk == nil {
		panic("nil dependency passed to NewReservationSweeper")
	}
	return &ReservationSweeper{store: store, seats: seats, ttl: ttl, interval: interval, clock: clk}
}

// Run sweeps on a fixed interval until the context is cancelled.  It is
// meant to be launched as a goroutine from main.
func (s *ReservationSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	log.Printf("sweeper: running every %s with ttl %s", s.interval, s.ttl)
	for {
		select {
		case <-ctx.Done():
			log.Printf("sweeper: stopped")
			return
		case <-ticker.C:
			if released, err := s.SweepOnce(ctx); err != nil {
				log.Printf("sweeper: sweep failed: %v", err)
			} else if released > 0 {
				log.Printf("sweeper: released %d expired reservations", released)
			}
		}
	}
}

// SweepOnce releases every reservation that expired before now and
// returns how many were released.  Rows that change state under our
// feet (a confirmation winning the race mid-sweep) are skipped.
func (s *ReservationSweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.ttl)
	expired, err := s.store.ListExpiredReserved(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, reg := range expired {
		transitioned, err := s.store.MarkReleased(ctx, reg.ID)
		if err != nil {
			log.Printf("sweeper: release registration %s: %v", reg.ID, err)
			continue
		}
		if !transitioned {
			continue // confirmed in the meantime
		}
		token := model.ReservationToken{EventSlug: reg.EventSlug, ReservedAt: reg.ReservedAt}
		if err := s.seats.Release(ctx, token); err != nil {
			log.Printf("sweeper: release seat for %s: %v", reg.EventSlug, err)
			continue
		}
		released++
	}
	return released, nil
}
