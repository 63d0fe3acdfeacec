package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Client{BaseURL: srv.URL, AnonKey: "anon-key", HTTPClient: srv.Client()}
}

func TestVerifyToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"7f9a2b10-0000-4000-8000-000000000001","email":"driver@example.com"}`)
	})

	ident, err := c.VerifyToken(context.Background(), "tok-1")
	require.NoError(t, err)

	assert.Equal(t, "7f9a2b10-0000-4000-8000-000000000001", ident.ID)
	assert.Equal(t, "driver@example.com", ident.Email)
}

func TestVerifyTokenRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"invalid JWT"}`)
	})

	_, err := c.VerifyToken(context.Background(), "bad-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenEmptyToken(t *testing.T) {
	c := &Client{BaseURL: "https://identity.example"}

	_, err := c.VerifyToken(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenProviderError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.VerifyToken(context.Background(), "tok-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}
