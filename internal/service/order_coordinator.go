package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/event-registration/internal/clock"
	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/repository"
)

// orderCurrency is the only currency the gateway integration supports.
const orderCurrency = "INR"

// releaseTimeout bounds the compensating seat release so a dead
// database cannot hang the error path.
const releaseTimeout = 5 * time.Second

// OrderCoordinator turns a registration request into a reserved seat
// plus a pending gateway order, or into an immediately confirmed
// registration for free events.  Every failure after the seat was
// reserved triggers a compensating release before the error is
// returned, so the subsystem never leaks a reserved-but-unrecoverable
// seat.
type OrderCoordinator struct {
	catalog EventCatalog
	gateway PaymentGateway
	seats   SeatAllocator
	store   RegistrationStore
	clock   clock.Clock
}

// NewOrderCoordinator constructs an OrderCoordinator.  All dependencies
// must be non-nil.
func NewOrderCoordinator(catalog EventCatalog, gateway PaymentGateway, seats SeatAllocator, store RegistrationStore, clk clock.Clock) *OrderCoordinator {
	if catalog == nil || gateway == nil || seats == nil || store == nil || clk == nil {
		panic("nil dependency passed to NewOrderCoordinator")
	}
	return &OrderCoordinator{catalog: catalog, gateway: gateway, seats: seats, store: store, clock: clk}
}

// CreateOrderInput is the attendee-supplied payload for create-order
// and for the free-event endpoint.
type CreateOrderInput struct {
	EventSlug  string
	EventTitle string
	FullName   string
	Email      string
	Phone      *string
}

// validate rejects obviously malformed input before any side effect.
func (in CreateOrderInput) validate() error {
	if strings.TrimSpace(in.EventSlug) == "" ||
		strings.TrimSpace(in.EventTitle) == "" ||
		strings.TrimSpace(in.FullName) == "" ||
		strings.TrimSpace(in.Email) == "" ||
		!strings.Contains(in.Email, "@") {
		return ErrValidation
	}
	return nil
}

// CreateOrderResult is returned to the caller so the frontend can open
// the gateway checkout.  For free events Confirmed is true, OrderID is
// empty and no payment is expected.
type CreateOrderResult struct {
	OrderID        string
	Amount         float64
	Currency       string
	RegistrationID string
	Confirmed      bool
}

// CreateOrder runs the paid-registration workflow:
//
//	snapshot -> reserve seat -> gateway order -> persist pending rows
//
// A catalog miss returns client.ErrEventNotFound before any side
// effect.  A full event returns repository.ErrSoldOut, likewise without
// side effects.  A gateway or persistence failure releases the reserved
// seat and propagates; the orphaned gateway order, if any, expires
// unpaid on the gateway side.  Events with a zero fee skip the gateway
// entirely and come back already confirmed.
func (oc *OrderCoordinator) CreateOrder(ctx context.Context, in CreateOrderInput) (CreateOrderResult, error) {
	if err := in.validate(); err != nil {
		return CreateOrderResult{}, err
	}
	snapshot, err := oc.catalog.GetEventSnapshot(ctx, in.EventSlug)
	if err != nil {
		return CreateOrderResult{}, err
	}
	token, err := oc.seats.Reserve(ctx, in.EventSlug, snapshot.Capacity)
	if err != nil {
		return CreateOrderResult{}, err
	}
	if snapshot.Free() {
		return oc.confirmFree(ctx, in, token)
	}

	receipt := fmt.Sprintf("event_%s_%d", in.EventSlug, oc.clock.Now().UnixMilli())
	order, err := oc.gateway.CreateOrder(ctx, snapshot.Fee, orderCurrency, receipt)
	if err != nil {
		oc.release(ctx, token)
		return CreateOrderResult{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	id, err := repository.NewRegistrationID()
	if err != nil {
		oc.release(ctx, token)
		return CreateOrderResult{}, err
	}
	reg := model.Registration{
		ID:             id,
		EventSlug:      in.EventSlug,
		EventTitle:     in.EventTitle,
		FullName:       in.FullName,
		Email:          in.Email,
		Phone:          in.Phone,
		GatewayOrderID: &order.ID,
		PaymentStatus:  model.PaymentStatusPending,
		Status:         model.StatusReserved,
		MirrorStatus:   model.MirrorUnsynced,
		ReservedAt:     token.ReservedAt,
	}
	po := model.PaymentOrder{
		GatewayOrderID: order.ID,
		RegistrationID: id,
		Amount:         snapshot.Fee,
		Currency:       orderCurrency,
		Status:         model.PaymentStatusPending,
	}
	if err := oc.store.CreateWithOrder(ctx, &reg, &po); err != nil {
		oc.release(ctx, token)
		return CreateOrderResult{}, fmt.Errorf("persist order: %w", err)
	}
	return CreateOrderResult{
		OrderID:        order.ID,
		Amount:         snapshot.Fee,
		Currency:       orderCurrency,
		RegistrationID: id,
	}, nil
}

// RegisterFree runs the free-event workflow.  Unlike CreateOrder it
// refuses paid events with ErrFeeRequired instead of silently opening a
// gateway order the caller did not ask for.
func (oc *OrderCoordinator) RegisterFree(ctx context.Context, in CreateOrderInput) (CreateOrderResult, error) {
	if err := in.validate(); err != nil {
		return CreateOrderResult{}, err
	}
	snapshot, err := oc.catalog.GetEventSnapshot(ctx, in.EventSlug)
	if err != nil {
		return CreateOrderResult{}, err
	}
	if !snapshot.Free() {
		return CreateOrderResult{}, ErrFeeRequired
	}
	token, err := oc.seats.Reserve(ctx, in.EventSlug, snapshot.Capacity)
	if err != nil {
		return CreateOrderResult{}, err
	}
	return oc.confirmFree(ctx, in, token)
}

// confirmFree persists an already-confirmed registration and commits
// the reserved seat.  No gateway order exists on this path.
func (oc *OrderCoordinator) confirmFree(ctx context.Context, in CreateOrderInput, token model.ReservationToken) (CreateOrderResult, error) {
	id, err := repository.NewRegistrationID()
	if err != nil {
		oc.release(ctx, token)
		return CreateOrderResult{}, err
	}
	now := oc.clock.Now()
	reg := model.Registration{
		ID:            id,
		EventSlug:     in.EventSlug,
		EventTitle:    in.EventTitle,
		FullName:      in.FullName,
		Email:         in.Email,
		Phone:         in.Phone,
		PaymentStatus: model.PaymentStatusPaid,
		Status:        model.StatusConfirmed,
		MirrorStatus:  model.MirrorUnsynced,
		ReservedAt:    token.ReservedAt,
		ConfirmedAt:   &now,
	}
	if err := oc.store.CreateConfirmed(ctx, &reg); err != nil {
		oc.release(ctx, token)
		return CreateOrderResult{}, fmt.Errorf("persist registration: %w", err)
	}
	if err := oc.seats.Commit(ctx, token); err != nil {
		// The registration is durable; the miscredited ledger unit stays
		// within capacity, so log instead of failing the caller.
		log.Printf("coordinator: commit free reservation for %s: %v", in.EventSlug, err)
	}
	return CreateOrderResult{
		Amount:         0,
		Currency:       orderCurrency,
		RegistrationID: id,
		Confirmed:      true,
	}, nil
}

// release is the compensating action for a reserved seat.  It runs on a
// context detached from the inbound request so a client disconnect
// cannot skip the compensation.
func (oc *OrderCoordinator) release(ctx context.Context, token model.ReservationToken) {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := oc.seats.Release(detached, token); err != nil {
		log.Printf("coordinator: release seat for %s: %v", token.EventSlug, err)
	}
}
