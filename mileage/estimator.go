/*
Package mileage provides ledger.MileageEstimator implementations.

PURPOSE:
  Estimates the round-trip driving distance between the user's home and a
  loop's course so the save path can persist a deductible mileage cost.
  The engine only sees the one-method collaborator interface defined in the
  ledger package; everything provider-specific stays here.

IMPLEMENTATIONS:
  Client: HTTP distance service (one-way miles, doubled for round trip)
  Static: Fixed lookup table for tests and offline development

FAILURE CONTRACT:
  (0, false, nil)  provider answered but has no route for the pair
  (0, false, err)  provider unreachable or returned garbage
  Either way the caller preserves the record's prior mileage values; a
  mileage hiccup must never zero out persisted history.

SEE ALSO:
  - ledger/cache.go: The consumer (applyMileage)
*/
package mileage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairway/loopledger/ledger"
)

// =============================================================================
// HTTP CLIENT
// =============================================================================

// Client calls a distance service over HTTP. The service takes origin and
// destination as either a place id or a free-text address and returns
// one-way driving miles as JSON: {"status": "ok", "miles": 14.2}.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewClient creates a Client with a sane request timeout.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

type distanceResponse struct {
	Status string  `json:"status"`
	Miles  float64 `json:"miles"`
}

// EstimateRoundTripMiles fetches the one-way driving distance and doubles
// it. A place id is preferred over an address when both are present.
func (c *Client) EstimateRoundTripMiles(ctx context.Context, origin, destination ledger.Place) (decimal.Decimal, bool, error) {
	if origin.IsZero() || destination.IsZero() {
		return decimal.Zero, false, nil
	}

	q := url.Values{}
	q.Set("origin", placeParam(origin))
	q.Set("destination", placeParam(destination))
	if c.APIKey != "" {
		q.Set("key", c.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/distance?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, false, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("distance request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, false, fmt.Errorf("distance service returned %d", resp.StatusCode)
	}

	var body distanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, false, fmt.Errorf("distance response: %w", err)
	}
	if !strings.EqualFold(body.Status, "ok") || body.Miles <= 0 {
		// The provider answered but has no route; not an error.
		return decimal.Zero, false, nil
	}

	oneWay := decimal.NewFromFloat(body.Miles)
	return oneWay.Mul(decimal.NewFromInt(2)), true, nil
}

func placeParam(p ledger.Place) string {
	if p.PlaceID != "" {
		return "place_id:" + p.PlaceID
	}
	return p.Address
}

// =============================================================================
// STATIC TABLE
// =============================================================================

// Static is a fixed-table estimator for tests and offline dev. Keys are
// matched against the destination's place id first, then its address.
// Values are ROUND-TRIP miles.
type Static struct {
	RoundTripMiles map[string]decimal.Decimal
	Err            error
}

func (s *Static) EstimateRoundTripMiles(_ context.Context, _, destination ledger.Place) (decimal.Decimal, bool, error) {
	if s.Err != nil {
		return decimal.Zero, false, s.Err
	}
	if miles, ok := s.RoundTripMiles[destination.PlaceID]; ok {
		return miles, true, nil
	}
	if miles, ok := s.RoundTripMiles[destination.Address]; ok {
		return miles, true, nil
	}
	return decimal.Zero, false, nil
}
