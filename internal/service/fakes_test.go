package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iliyamo/event-registration/internal/client"
	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/queue"
	"github.com/iliyamo/event-registration/internal/repository"
)

// fakeCatalog serves snapshots from a map; missing slugs behave like a
// catalog miss.
type fakeCatalog struct {
	events map[string]model.EventSnapshot
	err    error
}

func (f *fakeCatalog) GetEventSnapshot(_ context.Context, slug string) (model.EventSnapshot, error) {
	if f.err != nil {
		return model.EventSnapshot{}, f.err
	}
	snap, ok := f.events[slug]
	if !ok {
		return model.EventSnapshot{}, client.ErrEventNotFound
	}
	return snap, nil
}

// fakeGateway hands out sequential order ids, or fails when err is set.
// It records calls so tests can assert the gateway was never touched on
// the free path.
type fakeGateway struct {
	mu     sync.Mutex
	calls  int
	err    error
	nextID int
}

func (f *fakeGateway) CreateOrder(_ context.Context, _ float64, _, _ string) (client.GatewayOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return client.GatewayOrder{}, f.err
	}
	f.nextID++
	return client.GatewayOrder{ID: orderID(f.nextID)}, nil
}

func orderID(n int) string {
	return "order_" + string(rune('a'+(n-1)%26)) + string(rune('0'+n%10))
}

// memLedger is an in-memory seat allocator with the same atomicity
// contract as the SQL-backed one: reserve is a single guarded
// check-and-increment under the mutex.
type memLedger struct {
	mu      sync.Mutex
	ledgers map[string]*model.SeatLedger
}

func newMemLedger() *memLedger {
	return &memLedger{ledgers: make(map[string]*model.SeatLedger)}
}

func (m *memLedger) Reserve(_ context.Context, slug string, capacity int) (model.ReservationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[slug]
	if !ok {
		l = &model.SeatLedger{EventSlug: slug}
		m.ledgers[slug] = l
	}
	l.Capacity = capacity
	if l.ReservedCount+l.ConfirmedCount >= l.Capacity {
		return model.ReservationToken{}, repository.ErrSoldOut
	}
	l.ReservedCount++
	return model.ReservationToken{EventSlug: slug, ReservedAt: time.Now().UTC()}, nil
}

func (m *memLedger) Commit(_ context.Context, token model.ReservationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.ledgers[token.EventSlug]; ok && l.ReservedCount > 0 {
		l.ReservedCount--
		l.ConfirmedCount++
	}
	return nil
}

func (m *memLedger) Release(_ context.Context, token model.ReservationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.ledgers[token.EventSlug]; ok && l.ReservedCount > 0 {
		l.ReservedCount--
	}
	return nil
}

func (m *memLedger) snapshot(slug string) model.SeatLedger {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.ledgers[slug]; ok {
		return *l
	}
	return model.SeatLedger{EventSlug: slug}
}

// memStore is an in-memory RegistrationStore that mirrors the guarded
// transitions of the SQL repository.
type memStore struct {
	mu        sync.Mutex
	regs      map[string]*model.Registration // by registration id
	orders    map[string]*model.PaymentOrder // by gateway order id
	createErr error
}

func newMemStore() *memStore {
	return &memStore{
		regs:   make(map[string]*model.Registration),
		orders: make(map[string]*model.PaymentOrder),
	}
}

func (s *memStore) CreateWithOrder(_ context.Context, reg *model.Registration, order *model.PaymentOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	r := *reg
	o := *order
	s.regs[r.ID] = &r
	s.orders[o.GatewayOrderID] = &o
	return nil
}

func (s *memStore) CreateConfirmed(_ context.Context, reg *model.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	r := *reg
	s.regs[r.ID] = &r
	return nil
}

func (s *memStore) FindOrderByGatewayID(_ context.Context, gatewayOrderID string) (model.PaymentOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[gatewayOrderID]
	if !ok {
		return model.PaymentOrder{}, repository.ErrOrderNotFound
	}
	return *o, nil
}

func (s *memStore) ConfirmPayment(_ context.Context, gatewayOrderID, gatewayPaymentID string, now time.Time) (model.Registration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[gatewayOrderID]
	if !ok {
		return model.Registration{}, false, repository.ErrOrderNotFound
	}
	reg, ok := s.regs[o.RegistrationID]
	if !ok {
		return model.Registration{}, false, repository.ErrRegistrationNotFound
	}
	if reg.Status != model.StatusReserved {
		return *reg, false, nil
	}
	reg.Status = model.StatusConfirmed
	reg.PaymentStatus = model.PaymentStatusPaid
	reg.GatewayPaymentID = &gatewayPaymentID
	t := now
	reg.ConfirmedAt = &t
	o.Status = model.PaymentStatusPaid
	return *reg, true, nil
}

func (s *memStore) MarkReleased(_ context.Context, registrationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[registrationID]
	if !ok {
		return false, repository.ErrRegistrationNotFound
	}
	if reg.Status != model.StatusReserved {
		return false, nil
	}
	reg.Status = model.StatusReleased
	reg.PaymentStatus = model.PaymentStatusFailed
	return true, nil
}

func (s *memStore) SetMirrorStatus(_ context.Context, registrationID, mirrorStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[registrationID]
	if !ok {
		return repository.ErrRegistrationNotFound
	}
	reg.MirrorStatus = mirrorStatus
	return nil
}

func (s *memStore) ListExpiredReserved(_ context.Context, cutoff time.Time) ([]model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Registration
	for _, reg := range s.regs {
		if reg.Status == model.StatusReserved && !reg.ReservedAt.After(cutoff) {
			out = append(out, *reg)
		}
	}
	return out, nil
}

func (s *memStore) get(id string) model.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg, ok := s.regs[id]; ok {
		return *reg
	}
	return model.Registration{}
}

func (s *memStore) byOrder(gatewayOrderID string) model.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[gatewayOrderID]; ok {
		if reg, ok := s.regs[o.RegistrationID]; ok {
			return *reg
		}
	}
	return model.Registration{}
}

// fakeMirror records writes and can be told to fail.
type fakeMirror struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeMirror) CreateRegistrationRecord(_ context.Context, _ model.Registration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "42", nil
}

// fakeRetryQueue captures enqueued mirror retry events.
type fakeRetryQueue struct {
	mu     sync.Mutex
	events []queue.MirrorSyncEvent
}

func (f *fakeRetryQueue) PublishMirrorSync(_ context.Context, event queue.MirrorSyncEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

var errBoom = errors.New("boom")
