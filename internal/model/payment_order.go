package model

import "time"

// PaymentOrder mirrors an order created with the external payment
// gateway.  The gateway order id is the primary lookup key because the
// gateway callback identifies the payment by it.  Each order belongs to
// exactly one Registration and is updated exactly once, to paid or
// failed, by the payment confirmation flow.
//
// Fields:
//  GatewayOrderID – unique gateway order id (primary key).
//  RegistrationID – registration this order pays for (1:1).
//  Amount         – registration fee in rupees.
//  Currency       – ISO currency code, always "INR" today.
//  Status         – pending, paid or failed.
//  CreatedAt      – creation timestamp.
type PaymentOrder struct {
	GatewayOrderID string    // payment_orders.gateway_order_id
	RegistrationID string    // payment_orders.registration_id
	Amount         float64   // payment_orders.amount
	Currency       string    // payment_orders.currency
	Status         string    // payment_orders.status
	CreatedAt      time.Time // payment_orders.created_at
}
