package ratelookup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fjod/order-desk/internal/breaker"
	"github.com/fjod/order-desk/internal/shipping"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "secret", Breaker: breaker.Config{ConsecutiveFailures: 2}}, nil)
	require.NoError(t, err)
	return c
}

func TestQuote_DecodesResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/cost", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("Key"))

		var body quoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "jne:sicepat", body.Couriers)
		assert.Equal(t, 1500, body.Weight)

		_, _ = w.Write([]byte(`{"results":[
			{"code":"JNE","costs":[{"service":"REG","cost":18000},{"service":"YES","cost":32000}]},
			{"code":"sicepat","costs":[{"service":"BEST","cost":"12000"}]}
		]}`))
	})

	quotes, err := c.Quote(context.Background(), shipping.QuoteRequest{
		Origin: "3171", Destination: "3273", WeightGrams: 1500, CarrierCodes: []string{"jne", "sicepat"},
	})
	require.NoError(t, err)
	require.Len(t, quotes, 3)
	assert.Equal(t, "jne", quotes[0].CarrierCode)
	assert.Equal(t, "REG", quotes[0].ServiceName)
	assert.True(t, quotes[2].Cost.Equal(decimal.NewFromInt(12000)))
}

func TestQuote_NotFoundIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	quotes, err := c.Quote(context.Background(), shipping.QuoteRequest{Destination: "9471", CarrierCodes: []string{"jne"}})
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestQuote_EmptyResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	})

	quotes, err := c.Quote(context.Background(), shipping.QuoteRequest{Destination: "9471", CarrierCodes: []string{"jne"}})
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestQuote_ServerErrorTripsBreaker(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	req := shipping.QuoteRequest{Destination: "3273", CarrierCodes: []string{"jne"}}

	_, err := c.Quote(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	_, err = c.Quote(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)

	_, err = c.Quote(context.Background(), req)
	assert.True(t, breaker.IsOpen(err))
	assert.Equal(t, 2, calls)
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.Error(t, err)
}
