package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/iliyamo/event-registration/internal/model"
)

// RegistrationRepo owns the registrations and payment_orders tables.
// All state transitions are guarded UPDATEs conditioned on the current
// status, which enforces the forward-only state machine at the row
// level: whichever transaction wins the guard performs the transition,
// every racer observes zero affected rows and becomes a no-op.  All
// timestamps are stored in UTC.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo returns a RegistrationRepo bound to the given database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

// NewRegistrationID generates an opaque registration identifier.  The
// underlying call to crypto/rand ensures the id is unguessable, which
// matters because it doubles as the uniqueId sent to the content store.
func NewRegistrationID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "reg_" + hex.EncodeToString(b), nil
}

// CreateWithOrder persists a reserved registration together with its
// pending payment order in a single transaction, keyed by the gateway
// order id.  Either both rows exist afterwards or neither does; on
// failure the caller is expected to release the reserved seat.
func (r *RegistrationRepo) CreateWithOrder(ctx context.Context, reg *model.Registration, order *model.PaymentOrder) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := insertRegistrationTx(ctx, tx, reg); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO payment_orders (gateway_order_id, registration_id, amount, currency, status)
		 VALUES (?, ?, ?, ?, ?)`,
		order.GatewayOrderID, order.RegistrationID, order.Amount, order.Currency, order.Status,
	)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// CreateConfirmed persists a registration that is already confirmed.
// This is the free-event path: there is no payment order to pair with.
func (r *RegistrationRepo) CreateConfirmed(ctx context.Context, reg *model.Registration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := insertRegistrationTx(ctx, tx, reg); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func insertRegistrationTx(ctx context.Context, tx *sql.Tx, reg *model.Registration) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO registrations
		 (id, event_slug, event_title, full_name, email, phone,
		  gateway_order_id, gateway_payment_id, payment_status, status,
		  mirror_status, reserved_at, confirmed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.ID, reg.EventSlug, reg.EventTitle, reg.FullName, reg.Email, nullString(reg.Phone),
		nullString(reg.GatewayOrderID), nullString(reg.GatewayPaymentID), reg.PaymentStatus, reg.Status,
		reg.MirrorStatus, reg.ReservedAt.UTC(), nullTime(reg.ConfirmedAt),
	)
	return err
}

// FindOrderByGatewayID looks up the payment order created for a gateway
// order id.  Returns ErrOrderNotFound when no such order exists.
func (r *RegistrationRepo) FindOrderByGatewayID(ctx context.Context, gatewayOrderID string) (model.PaymentOrder, error) {
	var o model.PaymentOrder
	err := r.db.QueryRowContext(ctx,
		`SELECT gateway_order_id, registration_id, amount, currency, status, created_at
		 FROM payment_orders WHERE gateway_order_id = ?`,
		gatewayOrderID,
	).Scan(&o.GatewayOrderID, &o.RegistrationID, &o.Amount, &o.Currency, &o.Status, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return model.PaymentOrder{}, ErrOrderNotFound
	}
	if err != nil {
		return model.PaymentOrder{}, err
	}
	return o, nil
}

// ConfirmPayment applies the paid/confirmed transition for the
// registration and its payment order in one transaction.  The guard on
// status = 'reserved' makes the call idempotent and race-safe: a replayed
// confirmation, or one racing the sweeper, observes zero affected rows
// and reports transitioned = false without touching anything.
func (r *RegistrationRepo) ConfirmPayment(ctx context.Context, gatewayOrderID, gatewayPaymentID string, now time.Time) (model.Registration, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Registration{}, false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		`UPDATE registrations
		 SET payment_status = ?, status = ?, gateway_payment_id = ?, confirmed_at = ?
		 WHERE gateway_order_id = ? AND status = ?`,
		model.PaymentStatusPaid, model.StatusConfirmed, gatewayPaymentID, now.UTC(),
		gatewayOrderID, model.StatusReserved,
	)
	if err != nil {
		return model.Registration{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Registration{}, false, err
	}
	if n == 0 {
		// Already confirmed or already released; nothing to do.
		if err := tx.Commit(); err != nil {
			return model.Registration{}, false, err
		}
		committed = true
		reg, err := r.FindByGatewayOrderID(ctx, gatewayOrderID)
		return reg, false, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE payment_orders SET status = ? WHERE gateway_order_id = ? AND status = ?`,
		model.PaymentStatusPaid, gatewayOrderID, model.PaymentStatusPending,
	); err != nil {
		return model.Registration{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return model.Registration{}, false, err
	}
	committed = true
	reg, err := r.FindByGatewayOrderID(ctx, gatewayOrderID)
	return reg, true, err
}

// MarkReleased applies the released transition for an expired
// reservation.  Guarded on status = 'reserved' so it can safely race a
// late payment confirmation; transitioned reports whether this call won.
func (r *RegistrationRepo) MarkReleased(ctx context.Context, registrationID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE registrations
		 SET status = ?, payment_status = ?
		 WHERE id = ? AND status = ?`,
		model.StatusReleased, model.PaymentStatusFailed, registrationID, model.StatusReserved,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetMirrorStatus records the outcome of a mirror write attempt.
func (r *RegistrationRepo) SetMirrorStatus(ctx context.Context, registrationID, mirrorStatus string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE registrations SET mirror_status = ? WHERE id = ?`,
		mirrorStatus, registrationID,
	)
	return err
}

// FindByGatewayOrderID returns the registration created for a gateway
// order id, or ErrRegistrationNotFound.
func (r *RegistrationRepo) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (model.Registration, error) {
	return r.queryOne(ctx, `WHERE gateway_order_id = ?`, gatewayOrderID)
}

// FindByID returns the registration with the given id, or
// ErrRegistrationNotFound.
func (r *RegistrationRepo) FindByID(ctx context.Context, id string) (model.Registration, error) {
	return r.queryOne(ctx, `WHERE id = ?`, id)
}

// ListExpiredReserved returns every registration still in the reserved
// state whose reservation was taken at or before cutoff.  The sweeper
// uses this to find abandoned reservations.
func (r *RegistrationRepo) ListExpiredReserved(ctx context.Context, cutoff time.Time) ([]model.Registration, error) {
	return r.queryMany(ctx, `WHERE status = ? AND reserved_at <= ? ORDER BY reserved_at`,
		model.StatusReserved, cutoff.UTC())
}

// ListAll returns every registration, newest first.
func (r *RegistrationRepo) ListAll(ctx context.Context) ([]model.Registration, error) {
	return r.queryMany(ctx, `ORDER BY reserved_at DESC`)
}

// ListByEmail returns the registrations belonging to an attendee email,
// newest first.
func (r *RegistrationRepo) ListByEmail(ctx context.Context, email string) ([]model.Registration, error) {
	return r.queryMany(ctx, `WHERE email = ? ORDER BY reserved_at DESC`, email)
}

const registrationColumns = `id, event_slug, event_title, full_name, email, phone,
	gateway_order_id, gateway_payment_id, payment_status, status,
	mirror_status, reserved_at, confirmed_at`

func (r *RegistrationRepo) queryOne(ctx context.Context, where string, args ...interface{}) (model.Registration, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations `+where, args...)
	reg, err := scanRegistration(row.Scan)
	if err == sql.ErrNoRows {
		return model.Registration{}, ErrRegistrationNotFound
	}
	return reg, err
}

func (r *RegistrationRepo) queryMany(ctx context.Context, tail string, args ...interface{}) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+registrationColumns+` FROM registrations `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows.Scan)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return regs, nil
}

func scanRegistration(scan func(dest ...interface{}) error) (model.Registration, error) {
	var (
		reg         model.Registration
		phone       sql.NullString
		orderID     sql.NullString
		paymentID   sql.NullString
		confirmedAt sql.NullTime
	)
	err := scan(&reg.ID, &reg.EventSlug, &reg.EventTitle, &reg.FullName, &reg.Email, &phone,
		&orderID, &paymentID, &reg.PaymentStatus, &reg.Status,
		&reg.MirrorStatus, &reg.ReservedAt, &confirmedAt)
	if err != nil {
		return model.Registration{}, err
	}
	if phone.Valid {
		reg.Phone = &phone.String
	}
	if orderID.Valid {
		reg.GatewayOrderID = &orderID.String
	}
	if paymentID.Valid {
		reg.GatewayPaymentID = &paymentID.String
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		reg.ConfirmedAt = &t
	}
	return reg, nil
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
