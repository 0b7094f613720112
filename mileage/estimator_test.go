package mileage_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairway/loopledger/ledger"
	"github.com/fairway/loopledger/mileage"
)

func TestClient_DoublesOneWayMiles(t *testing.T) {
	// GIVEN: A distance service reporting 14.2 one-way miles
	// WHEN: Estimating
	// THEN: The round trip is 28.4 and the place id is preferred

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/distance", r.URL.Path)
		assert.Equal(t, "place_id:home-123", r.URL.Query().Get("origin"))
		assert.Equal(t, "Pine Valley Golf Club", r.URL.Query().Get("destination"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok", "miles": 14.2}`))
	}))
	defer srv.Close()

	client := mileage.NewClient(srv.URL, "")
	miles, ok, err := client.EstimateRoundTripMiles(context.Background(),
		ledger.Place{PlaceID: "home-123", Address: "12 Fairway Dr"},
		ledger.Place{Address: "Pine Valley Golf Club"},
	)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "28.4", miles.String())
}

func TestClient_NoRouteIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "not_found"}`))
	}))
	defer srv.Close()

	client := mileage.NewClient(srv.URL, "")
	_, ok, err := client.EstimateRoundTripMiles(context.Background(),
		ledger.Place{Address: "a"}, ledger.Place{Address: "b"})

	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := mileage.NewClient(srv.URL, "")
	_, ok, err := client.EstimateRoundTripMiles(context.Background(),
		ledger.Place{Address: "a"}, ledger.Place{Address: "b"})

	assert.Error(t, err)
	assert.False(t, ok)
}

func TestClient_EmptyPlacesShortCircuit(t *testing.T) {
	// No request is made when either endpoint is unidentifiable.
	client := mileage.NewClient("http://127.0.0.1:1", "")
	_, ok, err := client.EstimateRoundTripMiles(context.Background(),
		ledger.Place{}, ledger.Place{Address: "b"})

	assert.NoError(t, err)
	assert.False(t, ok)
}
