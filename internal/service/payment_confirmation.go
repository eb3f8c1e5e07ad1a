package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/event-registration/internal/clock"
	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/queue"
	"github.com/iliyamo/event-registration/internal/utils"
)

// PaymentConfirmation handles the verify-payment callback from the
// gateway checkout.  The flow is idempotent end to end: gateways and
// clients may deliver the same confirmation more than once, and a
// replay must return success without mutating anything further.
type PaymentConfirmation struct {
	store  RegistrationStore
	seats  SeatAllocator
	mirror ContentMirror
	retry  MirrorRetryQueue
	secret string
	clock  clock.Clock
}

// NewPaymentConfirmation constructs a PaymentConfirmation.  The retry
// queue may be nil, in which case failed mirror writes stay in the
// sync_failed state until re-driven manually.
func NewPaymentConfirmation(store RegistrationStore, seats SeatAllocator, mirror ContentMirror, retry MirrorRetryQueue, secret string, clk clock.Clock) *PaymentConfirmation {
	if store == nil || seats == nil || mirror == nil || clk == nil {
		panic("nil dependency passed to NewPaymentConfirmation")
	}
	return &PaymentConfirmation{store: store, seats: seats, mirror: mirror, retry: retry, secret: secret, clock: clk}
}

// VerifyPayment authenticates and applies a payment confirmation.
//
// Ordering matters: the signature is checked before any state change,
// and the paid/confirmed transition is a single guarded transaction, so
// a forged callback mutates nothing and a raced or replayed callback
// lands on the already-changed state and becomes a no-op.  The mirror
// write at the end is best-effort; its failure is absorbed into the
// mirror status and a retry event, never into the caller's result.
func (p *PaymentConfirmation) VerifyPayment(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string) error {
	if gatewayOrderID == "" || gatewayPaymentID == "" || signature == "" {
		return ErrValidation
	}
	order, err := p.store.FindOrderByGatewayID(ctx, gatewayOrderID)
	if err != nil {
		return err
	}
	if order.Status == model.PaymentStatusPaid {
		// Replay of an already-processed confirmation.
		return nil
	}
	if !utils.VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature, p.secret) {
		return ErrBadSignature
	}

	reg, transitioned, err := p.store.ConfirmPayment(ctx, gatewayOrderID, gatewayPaymentID, p.clock.Now())
	if err != nil {
		return fmt.Errorf("confirm payment: %w", err)
	}
	if !transitioned {
		switch reg.Status {
		case model.StatusConfirmed:
			// Lost a race against an identical confirmation; that one
			// already committed the seat and mirrored the record.
			return nil
		case model.StatusReleased:
			// The sweeper expired the reservation before the payment
			// arrived.  Surface it so the caller can refund.
			return ErrReservationExpired
		default:
			return fmt.Errorf("registration %s in unexpected state %q", reg.ID, reg.Status)
		}
	}

	token := model.ReservationToken{EventSlug: reg.EventSlug, ReservedAt: reg.ReservedAt}
	if err := p.seats.Commit(ctx, token); err != nil {
		// The payment is durable; never undo it over a ledger error.
		log.Printf("confirmation: commit seat for %s: %v", reg.EventSlug, err)
	}

	p.mirrorRegistration(ctx, reg)
	return nil
}

// mirrorRegistration pushes the confirmed registration into the content
// store.  On failure the registration is flagged sync_failed and a
// retry event is enqueued; the error never reaches the paying user.
func (p *PaymentConfirmation) mirrorRegistration(ctx context.Context, reg model.Registration) {
	if _, err := p.mirror.CreateRegistrationRecord(ctx, reg); err != nil {
		log.Printf("confirmation: mirror registration %s: %v", reg.ID, err)
		if err := p.store.SetMirrorStatus(ctx, reg.ID, model.MirrorSyncFailed); err != nil {
			log.Printf("confirmation: flag mirror failure for %s: %v", reg.ID, err)
		}
		if p.retry != nil {
			event := queue.MirrorSyncEvent{
				RegistrationID: reg.ID,
				Attempt:        1,
				FailedAt:       p.clock.Now().Format(time.RFC3339),
			}
			if err := p.retry.PublishMirrorSync(ctx, event); err != nil {
				log.Printf("confirmation: enqueue mirror retry for %s: %v", reg.ID, err)
			}
		}
		return
	}
	if err := p.store.SetMirrorStatus(ctx, reg.ID, model.MirrorSynced); err != nil {
		log.Printf("confirmation: flag mirror success for %s: %v", reg.ID, err)
	}
}
