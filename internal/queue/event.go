// Package queue defines the messages exchanged over the message broker
// and the publisher/consumer pair behind the best-effort mirror path.
package queue

// MirrorQueueName is the durable queue carrying mirror retry events.
const MirrorQueueName = "registration.mirror"

// MirrorSyncEvent is enqueued when a mirror write to the content store
// fails after a payment confirmation.  The consumer re-attempts the
// write; Attempt counts deliveries so retries stop after maxAttempts
// instead of looping forever on a permanently broken record.
type MirrorSyncEvent struct {
	RegistrationID string `json:"registration_id"`
	Attempt        int    `json:"attempt"`
	FailedAt       string `json:"failed_at"`
}
