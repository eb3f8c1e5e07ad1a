package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/event-registration/internal/clock"
	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/repository"
	"github.com/iliyamo/event-registration/internal/utils"
)

const testSecret = "integration-secret"

// seedOrder places a reserved registration with a pending payment order
// into the store and ledger, as CreateOrder would have left them.
func seedOrder(t *testing.T, store *memStore, seats *memLedger, slug, orderID string, reservedAt time.Time) model.Registration {
	t.Helper()
	if _, err := seats.Reserve(context.Background(), slug, 10); err != nil {
		t.Fatalf("seed reserve: %v", err)
	}
	reg := model.Registration{
		ID:             "reg_" + orderID,
		EventSlug:      slug,
		EventTitle:     "Annual Conference",
		FullName:       "Asha Rao",
		Email:          "asha@example.com",
		GatewayOrderID: &orderID,
		PaymentStatus:  model.PaymentStatusPending,
		Status:         model.StatusReserved,
		MirrorStatus:   model.MirrorUnsynced,
		ReservedAt:     reservedAt,
	}
	order := model.PaymentOrder{
		GatewayOrderID: orderID,
		RegistrationID: reg.ID,
		Amount:         500,
		Currency:       "INR",
		Status:         model.PaymentStatusPending,
	}
	if err := store.CreateWithOrder(context.Background(), &reg, &order); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return reg
}

func TestPaymentConfirmation_VerifyPayment(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

	t.Run("confirms a valid payment once", func(t *testing.T) {
		store := newMemStore()
		seats := newMemLedger()
		mirror := &fakeMirror{}
		pc := NewPaymentConfirmation(store, seats, mirror, &fakeRetryQueue{}, testSecret, clock.NewFixed(now))
		seedOrder(t, store, seats, "conf", "order_abc", now.Add(-time.Minute))

		sig := utils.PaymentSignature("order_abc", "pay_123", testSecret)
		if err := pc.VerifyPayment(context.Background(), "order_abc", "pay_123", sig); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		reg := store.byOrder("order_abc")
		if reg.Status != model.StatusConfirmed || reg.PaymentStatus != model.PaymentStatusPaid {
			t.Fatalf("expected confirmed/paid, got %s/%s", reg.Status, reg.PaymentStatus)
		}
		if reg.GatewayPaymentID == nil || *reg.GatewayPaymentID != "pay_123" {
			t.Fatalf("payment id not recorded: %+v", reg.GatewayPaymentID)
		}
		if reg.MirrorStatus != model.MirrorSynced {
			t.Fatalf("expected synced mirror status, got %s", reg.MirrorStatus)
		}
		ledger := seats.snapshot("conf")
		if ledger.ReservedCount != 0 || ledger.ConfirmedCount != 1 {
			t.Fatalf("seat not committed: %+v", ledger)
		}
	})

	t.Run("replay returns success without further mutation", func(t *testing.T) {
		store := newMemStore()
		seats := newMemLedger()
		mirror := &fakeMirror{}
		pc := NewPaymentConfirmation(store, seats, mirror, &fakeRetryQueue{}, testSecret, clock.NewFixed(now))
		seedOrder(t, store, seats, "conf", "order_abc", now.Add(-time.Minute))

		sig := utils.PaymentSignature("order_abc", "pay_123", testSecret)
		if err := pc.VerifyPayment(context.Background(), "order_abc", "pay_123", sig); err != nil {
			t.Fatalf("first call: %v", err)
		}
		if err := pc.VerifyPayment(context.Background(), "order_abc", "pay_123", sig); err != nil {
			t.Fatalf("replay: %v", err)
		}
		if mirror.calls != 1 {
			t.Fatalf("replay must not mirror again, got %d calls", mirror.calls)
		}
		ledger := seats.snapshot("conf")
		if ledger.ConfirmedCount != 1 {
			t.Fatalf("replay double-committed the seat: %+v", ledger)
		}
	})

	t.Run("bad signature mutates nothing", func(t *testing.T) {
		store := newMemStore()
		seats := newMemLedger()
		pc := NewPaymentConfirmation(store, seats, &fakeMirror{}, &fakeRetryQueue{}, testSecret, clock.NewFixed(now))
		seedOrder(t, store, seats, "conf", "order_abc", now.Add(-time.Minute))

		forged := strings.Repeat("ab", 32)
		err := pc.VerifyPayment(context.Background(), "order_abc", "pay_123", forged)
		if !errors.Is(err, ErrBadSignature) {
			t.Fatalf("expected ErrBadSignature, got %v", err)
		}
		reg := store.byOrder("order_abc")
		if reg.Status != model.StatusReserved || reg.PaymentStatus != model.PaymentStatusPending {
			t.Fatalf("forged callback mutated state: %s/%s", reg.Status, reg.PaymentStatus)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		pc := NewPaymentConfirmation(newMemStore(), newMemLedger(), &fakeMirror{}, &fakeRetryQueue{}, testSecret, clock.NewFixed(now))
		sig := utils.PaymentSignature("order_nope", "pay_123", testSecret)
		err := pc.VerifyPayment(context.Background(), "order_nope", "pay_123", sig)
		if !errors.Is(err, repository.ErrOrderNotFound) {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
	})

	t.Run("mirror failure never fails the confirmation", func(t *testing.T) {
		store := newMemStore()
		seats := newMemLedger()
		mirror := &fakeMirror{err: errBoom}
		retry := &fakeRetryQueue{}
		pc := NewPaymentConfirmation(store, seats, mirror, retry, testSecret, clock.NewFixed(now))
		seedOrder(t, store, seats, "conf", "order_abc", now.Add(-time.Minute))

		sig := utils.PaymentSignature("order_abc", "pay_123", testSecret)
		if err := pc.VerifyPayment(context.Background(), "order_abc", "pay_123", sig); err != nil {
			t.Fatalf("mirror failure leaked to the caller: %v", err)
		}
		reg := store.byOrder("order_abc")
		if reg.Status != model.StatusConfirmed {
			t.Fatalf("payment not confirmed despite mirror failure: %s", reg.Status)
		}
		if reg.MirrorStatus != model.MirrorSyncFailed {
			t.Fatalf("expected sync_failed, got %s", reg.MirrorStatus)
		}
		if len(retry.events) != 1 || retry.events[0].RegistrationID != reg.ID {
			t.Fatalf("expected one retry event for %s, got %+v", reg.ID, retry.events)
		}
	})

	t.Run("payment after sweeper release surfaces expiry", func(t *testing.T) {
		store := newMemStore()
		seats := newMemLedger()
		pc := NewPaymentConfirmation(store, seats, &fakeMirror{}, &fakeRetryQueue{}, testSecret, clock.NewFixed(now))
		reg := seedOrder(t, store, seats, "conf", "order_abc", now.Add(-time.Hour))

		// Sweeper wins the race before the confirmation arrives.
		if transitioned, err := store.MarkReleased(context.Background(), reg.ID); err != nil || !transitioned {
			t.Fatalf("seed release: %v %v", transitioned, err)
		}
		if err := seats.Release(context.Background(), model.ReservationToken{EventSlug: "conf", ReservedAt: reg.ReservedAt}); err != nil {
			t.Fatalf("seed seat release: %v", err)
		}

		sig := utils.PaymentSignature("order_abc", "pay_123", testSecret)
		err := pc.VerifyPayment(context.Background(), "order_abc", "pay_123", sig)
		if !errors.Is(err, ErrReservationExpired) {
			t.Fatalf("expected ErrReservationExpired, got %v", err)
		}
		ledger := seats.snapshot("conf")
		if ledger.ReservedCount != 0 && ledger.ConfirmedCount != 0 {
			t.Fatalf("late confirmation re-took the seat: %+v", ledger)
		}
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		pc := NewPaymentConfirmation(newMemStore(), newMemLedger(), &fakeMirror{}, &fakeRetryQueue{}, testSecret, clock.NewFixed(now))
		err := pc.VerifyPayment(context.Background(), "", "pay_123", "sig")
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}
