// Package repository defines sentinel error values shared across the
// repositories.  Higher layers compare against them with errors.Is to
// translate persistence failures into the right HTTP responses: sold
// out becomes 409, a missing order becomes 404, and so on.
package repository

import "errors"

// ErrSoldOut is returned by the seat ledger when the guarded reserve
// update matches no row, meaning reserved + confirmed already equals
// capacity.  Handlers translate this into HTTP 409.
var ErrSoldOut = errors.New("sold out")

// ErrOrderNotFound is returned when no payment order exists for a
// gateway order id.  Handlers translate this into HTTP 404.
var ErrOrderNotFound = errors.New("payment order not found")

// ErrRegistrationNotFound is returned when no registration exists for
// the requested id.
var ErrRegistrationNotFound = errors.New("registration not found")

// ErrSessionNotFound is returned when a session token has no matching
// row or the session has expired.  The auth middleware rejects the
// request with 401; a presented session never falls through to the
// bearer token path.
var ErrSessionNotFound = errors.New("session not found")
