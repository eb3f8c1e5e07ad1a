package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/event-registration/internal/model"
)

// maxAttempts bounds mirror retries per registration.  After that the
// record stays in sync_failed for manual re-drive.
const maxAttempts = 5

// retryDelay spaces out re-deliveries so a content-store outage does
// not produce a tight republish loop.
const retryDelay = 30 * time.Second

// MirrorWriter is the subset of the content-store client the consumer
// needs.  Implemented by client.MirrorClient.
type MirrorWriter interface {
	CreateRegistrationRecord(ctx context.Context, reg model.Registration) (string, error)
}

// RegistrationReader reloads registrations and records mirror outcomes.
// Implemented by repository.RegistrationRepo.
type RegistrationReader interface {
	FindByID(ctx context.Context, id string) (model.Registration, error)
	SetMirrorStatus(ctx context.Context, registrationID, mirrorStatus string) error
}

// StartMirrorConsumer connects to RabbitMQ, declares the durable
// registration.mirror queue and re-attempts failed mirror writes.  It
// runs a reconnect loop and keeps the server operating through broker
// outages; processing errors are logged, retried a bounded number of
// times and finally dropped with the registration left in sync_failed.
func StartMirrorConsumer(url string, mirror MirrorWriter, store RegistrationReader) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("mirror-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, mirror, store); err != nil {
			log.Printf("mirror-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection, mirror MirrorWriter, store RegistrationReader) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Printf("mirror-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(MirrorQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(MirrorQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(ch, d.Body, mirror, store); err != nil {
			log.Printf("mirror-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // drop; a republish already happened or the message is bad
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// handleMessage retries one mirror write.  On failure it republishes
// with an incremented attempt count, delayed, until maxAttempts is
// reached; on success it flips the registration to synced.
func handleMessage(ch *amqp.Channel, body []byte, mirror MirrorWriter, store RegistrationReader) error {
	var event MirrorSyncEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reg, err := store.FindByID(ctx, event.RegistrationID)
	if err != nil {
		return fmt.Errorf("load registration %s: %w", event.RegistrationID, err)
	}
	if reg.MirrorStatus == model.MirrorSynced {
		return nil // another attempt already succeeded
	}

	if _, err := mirror.CreateRegistrationRecord(ctx, reg); err != nil {
		if event.Attempt >= maxAttempts {
			log.Printf("mirror-consumer: giving up on %s after %d attempts: %v", reg.ID, event.Attempt, err)
			return nil
		}
		log.Printf("mirror-consumer: attempt %d for %s failed: %v", event.Attempt, reg.ID, err)
		time.Sleep(retryDelay)
		return republish(ch, MirrorSyncEvent{
			RegistrationID: event.RegistrationID,
			Attempt:        event.Attempt + 1,
			FailedAt:       event.FailedAt,
		})
	}
	if err := store.SetMirrorStatus(ctx, reg.ID, model.MirrorSynced); err != nil {
		return fmt.Errorf("flag mirror success for %s: %w", reg.ID, err)
	}
	log.Printf("mirror-consumer: registration %s mirrored on attempt %d", reg.ID, event.Attempt)
	return nil
}

func republish(ch *amqp.Channel, event MirrorSyncEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(context.Background(), "", MirrorQueueName, false, false, pub); err != nil {
		return fmt.Errorf("republish: %w", err)
	}
	return nil
}
