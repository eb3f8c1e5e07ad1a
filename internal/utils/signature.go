package utils // package utils provides helper functions shared across the service

import (
	"crypto/hmac"   // constant-time comparison of MACs
	"crypto/sha256" // SHA-256 used as the HMAC hash
	"encoding/hex"  // hex encoding of the computed digest
)

// VerifyPaymentSignature checks that a payment-completion callback
// genuinely originated from the gateway.  The gateway signs the string
// "{orderID}|{paymentID}" with HMAC-SHA256 keyed by the shared
// integration secret and sends the lowercase hex digest alongside the
// callback.  We recompute the digest and compare in constant time.
//
// Any mismatch, including malformed or empty input, returns false; the
// function never panics so the caller's error path stays uniform.
func VerifyPaymentSignature(orderID, paymentID, suppliedSignature, secret string) bool {
	if orderID == "" || paymentID == "" || suppliedSignature == "" || secret == "" {
		return false
	}
	supplied, err := hex.DecodeString(suppliedSignature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hmac.Equal(mac.Sum(nil), supplied)
}

// PaymentSignature computes the gateway's signature for an order and
// payment id pair.  It exists for tests and local tooling that need to
// forge valid callbacks against a known secret.
func PaymentSignature(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
