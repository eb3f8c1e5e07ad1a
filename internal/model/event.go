package model

// EventSnapshot is the ephemeral view of an event fetched from the
// content store for a single create-order call.  It is read fresh on
// every call and never cached: a stale capacity here would silently
// defeat the seat ledger's invariant.
//
// Fields:
//  EventSlug – slug of the event.
//  Fee       – registration fee in rupees; zero means a free event.
//  Capacity  – maximum number of attendees.
type EventSnapshot struct {
	EventSlug string
	Fee       float64
	Capacity  int
}

// Free reports whether the event has no registration fee and therefore
// takes the direct-confirmation path that skips the payment gateway.
func (s EventSnapshot) Free() bool { return s.Fee == 0 }
