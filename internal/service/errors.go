package service

import "errors"

// ErrValidation is returned when the request is malformed.  It fails
// fast: no reservation, gateway order or row is created.
var ErrValidation = errors.New("validation error")

// ErrGateway is returned when the payment gateway call fails or times
// out during create-order.  By the time the caller sees it the reserved
// seat has already been released; the caller may simply retry.
var ErrGateway = errors.New("payment gateway error")

// ErrBadSignature is returned when a payment callback carries a
// signature that does not authenticate.  Nothing is mutated.
var ErrBadSignature = errors.New("invalid payment signature")

// ErrReservationExpired is returned when a valid payment confirmation
// arrives after the sweeper already released the reservation.  The
// caller is expected to refund through the gateway.
var ErrReservationExpired = errors.New("reservation expired before payment")

// ErrFeeRequired is returned by the free-registration endpoint when the
// event actually carries a fee and must go through create-order.
var ErrFeeRequired = errors.New("event requires payment")
