package paystack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagreturn/tagreturn-server/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(srv.URL, "sk_test", 100, logger.Discard())
	t.Cleanup(c.Close)
	return c
}

func TestGetSubscriptionCodeByEmail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "/customer/ada+1042@example.com", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{
			"email":"ada+1042@example.com",
			"subscriptions":[
				{"subscription_code":"SUB_old","status":"cancelled"},
				{"subscription_code":"SUB_live","status":"active","plan":{"name":"Gold"}}
			]}}`))
	})

	code, err := c.GetSubscriptionCodeByEmail(context.Background(), "ada+1042@example.com")
	require.NoError(t, err)
	assert.Equal(t, "SUB_live", code)
}

func TestGetSubscriptionCodeByEmail_NoActive(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":true,"data":{"subscriptions":[{"subscription_code":"SUB_1","status":"non-renewing"}]}}`))
	})

	_, err := c.GetSubscriptionCodeByEmail(context.Background(), "ada@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusBadGateway, ErrServer},
	}
	for _, tt := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		})
		_, err := c.GetCustomer(context.Background(), "x@example.com")
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}
}

func TestGet_DecodesFailureBodies(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"Invalid customer identifier"}`))
	})
	_, err := c.GetCustomer(context.Background(), "x@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 400: Invalid customer identifier")

	c = newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":false,"message":"Customer disabled"}`))
	})
	_, err = c.GetCustomer(context.Background(), "x@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed: Customer disabled")

	c = newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	_, err = c.GetCustomer(context.Background(), "x@example.com")
	assert.Error(t, err)
}

func TestGet_NoSecretKey(t *testing.T) {
	c := New("http://127.0.0.1:1", "", 1, logger.Discard())
	defer c.Close()

	_, err := c.GetCustomer(context.Background(), "x@example.com")
	assert.ErrorIs(t, err, ErrNoSecretKey)
}
