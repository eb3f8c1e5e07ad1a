package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"
)

// GatewayOrder is the order object created with the payment gateway.
// The id is the correlation key for the later payment callback.
type GatewayOrder struct {
	ID string `json:"id"`
}

// GatewayClient creates orders with the external payment gateway over
// its REST API, authenticating with the key id / key secret pair.
type GatewayClient struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
}

// NewGatewayClient returns a GatewayClient for the gateway at baseURL.
func NewGatewayClient(baseURL, keyID, keySecret string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		http:      &http.Client{Timeout: timeout},
	}
}

// CreateOrder opens a gateway order for the given amount.  The gateway
// expects the amount in the currency's smallest unit, so rupees are
// converted to paise before sending.  The receipt string is the
// caller's unique reference for reconciliation.
func (c *GatewayClient) CreateOrder(ctx context.Context, amount float64, currency, receipt string) (GatewayOrder, error) {
	payload := map[string]interface{}{
		"amount":   int64(math.Round(amount * 100)), // rupees -> paise
		"currency": currency,
		"receipt":  receipt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return GatewayOrder{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return GatewayOrder{}, err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return GatewayOrder{}, fmt.Errorf("gateway responded %d", resp.StatusCode)
	}

	var order GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return GatewayOrder{}, fmt.Errorf("gateway decode: %w", err)
	}
	if order.ID == "" {
		return GatewayOrder{}, fmt.Errorf("gateway returned empty order id")
	}
	return order, nil
}
