package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/iliyamo/event-registration/internal/model"
)

// MirrorClient pushes confirmed registrations into the headless content
// store so editors can see attendee lists without touching the primary
// database.  Every call is best-effort from the caller's perspective:
// failures are reported but must never unwind a confirmed payment.
type MirrorClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewMirrorClient returns a MirrorClient for the content store at baseURL.
func NewMirrorClient(baseURL, token string, timeout time.Duration) *MirrorClient {
	return &MirrorClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateRegistrationRecord writes a copy of the registration into the
// content store and returns the id of the created record.
func (c *MirrorClient) CreateRegistrationRecord(ctx context.Context, reg model.Registration) (string, error) {
	record := map[string]interface{}{
		"uniqueId":      reg.ID,
		"eventSlug":     reg.EventSlug,
		"eventTitle":    reg.EventTitle,
		"fullName":      reg.FullName,
		"email":         reg.Email,
		"paymentStatus": reg.PaymentStatus,
		"status":        reg.Status,
	}
	if reg.Phone != nil {
		record["phone"] = *reg.Phone
	}
	if reg.GatewayOrderID != nil {
		record["gatewayOrderId"] = *reg.GatewayOrderID
	}
	if reg.GatewayPaymentID != nil {
		record["gatewayPaymentId"] = *reg.GatewayPaymentID
	}
	body, err := json.Marshal(map[string]interface{}{"data": record})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/event-registrations", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("mirror request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("mirror responded %d", resp.StatusCode)
	}

	var created struct {
		Data struct {
			ID json.Number `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("mirror decode: %w", err)
	}
	return created.Data.ID.String(), nil
}
