package orangemoney

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primedrive/backend/internal/pkg/subscription"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &Client{
		APIKey:      "dGVzdC1rZXk=",
		MerchantKey: "merchant-1",
		TokenURL:    srv.URL + "/oauth/v3/token",
		APIBaseURL:  srv.URL + "/webpay",
		Currency:    "BWP",
		ReturnURL:   "https://primedrive.example/payment/return",
		CancelURL:   "https://primedrive.example/payment/cancel",
		NotifyURL:   "https://primedrive.example/api/v1/webhooks/orange-money",
		HTTPClient:  srv.Client(),
	}, srv
}

func tokenHandler(calls *int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok-abc","token_type":"Bearer","expires_in":3600}`)
	}
}

func TestGetAccessTokenIsCached(t *testing.T) {
	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v3/token", tokenHandler(&tokenCalls))

	c, _ := newTestClient(t, mux)

	first, err := c.getAccessToken(context.Background())
	require.NoError(t, err)
	second, err := c.getAccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "tok-abc", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, tokenCalls)
}

func TestGetAccessTokenRefreshesExpired(t *testing.T) {
	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v3/token", tokenHandler(&tokenCalls))

	c, _ := newTestClient(t, mux)

	_, err := c.getAccessToken(context.Background())
	require.NoError(t, err)

	c.mu.Lock()
	c.tokenExpiry = time.Now().Add(-time.Second)
	c.mu.Unlock()

	_, err = c.getAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, tokenCalls)
}

func TestInitiatePayment(t *testing.T) {
	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v3/token", tokenHandler(&tokenCalls))
	mux.HandleFunc("/webpay/webpayment", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))

		var req webPaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "merchant-1", req.MerchantKey)
		assert.Equal(t, "PD-20260829-AABBCCDD", req.OrderID)
		assert.Equal(t, 50, req.Amount)
		assert.Equal(t, "BWP", req.Currency)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"payment_url":"https://webpay.example/pay/xyz","pay_token":"pt-1","notif_token":"nt-1","status":201}`)
	})

	c, _ := newTestClient(t, mux)

	payURL, payToken, err := c.InitiatePayment(context.Background(), "PD-20260829-AABBCCDD", 50)
	require.NoError(t, err)

	assert.Equal(t, "https://webpay.example/pay/xyz", payURL)
	assert.Equal(t, "pt-1", payToken)
}

func TestInitiatePaymentGatewayError(t *testing.T) {
	mux := http.NewServeMux()
	tokenCalls := 0
	mux.HandleFunc("/oauth/v3/token", tokenHandler(&tokenCalls))
	mux.HandleFunc("/webpay/webpayment", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"message":"maintenance"}`)
	})

	c, _ := newTestClient(t, mux)

	_, _, err := c.InitiatePayment(context.Background(), "PD-1", 50)
	assert.Error(t, err)
}

func TestCheckTransactionStatusMapping(t *testing.T) {
	tests := []struct {
		gateway string
		want    string
	}{
		{"SUCCESS", subscription.GatewayStatusSuccess},
		{"SUCCESSFULL", subscription.GatewayStatusSuccess},
		{"FAILED", subscription.GatewayStatusFailed},
		{"EXPIRED", subscription.GatewayStatusExpired},
		{"CANCELLED", subscription.GatewayStatusCancelled},
		{"INITIATED", subscription.GatewayStatusUnknown},
		{"PENDING", subscription.GatewayStatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.gateway, func(t *testing.T) {
			tokenCalls := 0
			mux := http.NewServeMux()
			mux.HandleFunc("/oauth/v3/token", tokenHandler(&tokenCalls))
			mux.HandleFunc("/webpay/transactionstatus", func(w http.ResponseWriter, r *http.Request) {
				var req transactionStatusRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "pt-1", req.PayToken)

				w.Header().Set("Content-Type", "application/json")
				fmt.Fprintf(w, `{"status":%q,"order_id":%q,"txnid":"OM-1"}`, tt.gateway, req.OrderID)
			})

			c, _ := newTestClient(t, mux)

			got := c.CheckTransactionStatus(context.Background(), "PD-1", "pt-1", 50)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckTransactionStatusUnreachableGateway(t *testing.T) {
	c, srv := newTestClient(t, http.NewServeMux())
	srv.Close()

	got := c.CheckTransactionStatus(context.Background(), "PD-1", "pt-1", 50)
	assert.Equal(t, subscription.GatewayStatusUnknown, got)
}

func TestMapGatewayStatusCaseInsensitive(t *testing.T) {
	assert.Equal(t, subscription.GatewayStatusSuccess, mapGatewayStatus(" success "))
	assert.Equal(t, subscription.GatewayStatusCancelled, mapGatewayStatus("canceled"))
	assert.Equal(t, subscription.GatewayStatusUnknown, mapGatewayStatus(""))
}
