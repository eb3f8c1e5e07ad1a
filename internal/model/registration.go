package model

import "time"

// Payment status values for a Registration and its PaymentOrder.  The
// status only ever moves forward: pending -> paid or pending -> failed.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Registration status values.  A registration starts as reserved and
// terminates in exactly one of confirmed or released; no transition
// exists out of a terminal state.
const (
	StatusReserved  = "reserved"
	StatusConfirmed = "confirmed"
	StatusReleased  = "released"
)

// Mirror sync status values.  They track whether a confirmed
// registration has been copied into the headless content store for
// editorial visibility.  Mirror state never affects payment or seat
// state.
const (
	MirrorUnsynced   = "unsynced"
	MirrorSynced     = "synced"
	MirrorSyncFailed = "sync_failed"
)

// Registration records one attendee's registration for an event.  It is
// created together with its PaymentOrder when a paid order is opened,
// or directly in the confirmed state for free events.
//
// Fields:
//  ID               – opaque identifier generated at creation.
//  EventSlug        – slug of the event in the content store.
//  EventTitle       – display title captured at registration time.
//  FullName         – attendee name.
//  Email            – attendee email.
//  Phone            – optional attendee phone (nullable).
//  GatewayOrderID   – payment gateway order id (nullable until created).
//  GatewayPaymentID – payment gateway payment id (nullable until paid).
//  PaymentStatus    – pending, paid or failed.
//  Status           – reserved, confirmed or released.
//  MirrorStatus     – unsynced, synced or sync_failed.
//  ReservedAt       – when the seat was reserved.
//  ConfirmedAt      – when the payment was confirmed (nullable).
type Registration struct {
	ID               string     // registrations.id
	EventSlug        string     // registrations.event_slug
	EventTitle       string     // registrations.event_title
	FullName         string     // registrations.full_name
	Email            string     // registrations.email
	Phone            *string    // registrations.phone (nullable)
	GatewayOrderID   *string    // registrations.gateway_order_id (nullable)
	GatewayPaymentID *string    // registrations.gateway_payment_id (nullable)
	PaymentStatus    string     // registrations.payment_status
	Status           string     // registrations.status
	MirrorStatus     string     // registrations.mirror_status
	ReservedAt       time.Time  // registrations.reserved_at
	ConfirmedAt      *time.Time // registrations.confirmed_at (nullable)
}
