// Package service contains the orchestration logic of the registration
// subsystem: opening paid orders, confirming payments idempotently and
// sweeping abandoned reservations.  Services depend on small interfaces
// rather than concrete repositories and clients so the flows can be
// tested without a live database, gateway or content store.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/event-registration/internal/client"
	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/queue"
)

// EventCatalog looks up an event's fee and capacity in the content
// store.  Implemented by client.CatalogClient.
type EventCatalog interface {
	GetEventSnapshot(ctx context.Context, eventSlug string) (model.EventSnapshot, error)
}

// PaymentGateway creates orders with the external payment processor.
// Implemented by client.GatewayClient.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount float64, currency, receipt string) (client.GatewayOrder, error)
}

// SeatAllocator owns the per-event capacity invariant.  Implemented by
// repository.SeatLedgerRepo.  Reserve must be atomic: it either takes a
// seat or fails with repository.ErrSoldOut, never observing a stale
// count.
type SeatAllocator interface {
	Reserve(ctx context.Context, eventSlug string, capacity int) (model.ReservationToken, error)
	Commit(ctx context.Context, token model.ReservationToken) error
	Release(ctx context.Context, token model.ReservationToken) error
}

// RegistrationStore persists registrations and payment orders and
// applies their guarded state transitions.  Implemented by
// repository.RegistrationRepo.
type RegistrationStore interface {
	CreateWithOrder(ctx context.Context, reg *model.Registration, order *model.PaymentOrder) error
	CreateConfirmed(ctx context.Context, reg *model.Registration) error
	FindOrderByGatewayID(ctx context.Context, gatewayOrderID string) (model.PaymentOrder, error)
	ConfirmPayment(ctx context.Context, gatewayOrderID, gatewayPaymentID string, now time.Time) (model.Registration, bool, error)
	MarkReleased(ctx context.Context, registrationID string) (bool, error)
	SetMirrorStatus(ctx context.Context, registrationID, mirrorStatus string) error
	ListExpiredReserved(ctx context.Context, cutoff time.Time) ([]model.Registration, error)
}

// ContentMirror copies confirmed registrations into the content store,
// best-effort.  Implemented by client.MirrorClient.
type ContentMirror interface {
	CreateRegistrationRecord(ctx context.Context, reg model.Registration) (string, error)
}

// MirrorRetryQueue enqueues failed mirror writes for retry by the
// background consumer.  Implemented by queue.Publisher.
type MirrorRetryQueue interface {
	PublishMirrorSync(ctx context.Context, event queue.MirrorSyncEvent) error
}
