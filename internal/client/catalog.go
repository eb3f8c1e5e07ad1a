// Package client contains thin HTTP adapters for the three external
// collaborators: the headless content store (event catalog and mirror)
// and the payment gateway.  Each adapter owns a bounded-timeout
// http.Client so a slow collaborator can never hold a request forever.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/iliyamo/event-registration/internal/model"
)

// ErrEventNotFound is returned when the catalog has no event with the
// requested slug.  Handlers translate this into HTTP 404.
var ErrEventNotFound = errors.New("event not found")

// CatalogClient reads event fee and capacity from the content store.
// Snapshots are fetched fresh on every call and never cached; a stale
// capacity would undermine the seat ledger.
type CatalogClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewCatalogClient returns a CatalogClient for the content store at
// baseURL, authenticating with the given API token.
func NewCatalogClient(baseURL, token string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// GetEventSnapshot fetches the event with the given slug and returns
// its registration fee and capacity.  Returns ErrEventNotFound when the
// catalog has no matching event.
func (c *CatalogClient) GetEventSnapshot(ctx context.Context, eventSlug string) (model.EventSnapshot, error) {
	u := fmt.Sprintf("%s/api/events?filters[slug][$eq]=%s", c.baseURL, url.QueryEscape(eventSlug))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.EventSnapshot{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return model.EventSnapshot{}, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return model.EventSnapshot{}, fmt.Errorf("catalog responded %d", resp.StatusCode)
	}

	var body struct {
		Data []struct {
			RegistrationFee json.Number `json:"registrationFee"`
			MaxAttendees    int         `json:"maxAttendees"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.EventSnapshot{}, fmt.Errorf("catalog decode: %w", err)
	}
	if len(body.Data) == 0 {
		return model.EventSnapshot{}, ErrEventNotFound
	}
	// The catalog stores the fee as a string-or-number field; an absent
	// or unparsable fee means a free event, matching how the editorial
	// side leaves the field blank.
	fee, err := body.Data[0].RegistrationFee.Float64()
	if err != nil {
		fee = 0
	}
	return model.EventSnapshot{
		EventSlug: eventSlug,
		Fee:       fee,
		Capacity:  body.Data[0].MaxAttendees,
	}, nil
}
