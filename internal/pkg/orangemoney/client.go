package orangemoney

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/primedrive/backend/internal/pkg/env"
	"github.com/primedrive/backend/internal/pkg/subscription"
)

const (
	defaultTokenURL   = "https://api.orange.com/oauth/v3/token"
	defaultAPIBaseURL = "https://api.orange.com/orange-money-webpay/bw/v1"
	defaultCurrency   = "BWP"
)

// Client talks to the Orange Money Web Payment API. Access tokens are cached
// and refreshed shortly before expiry; all calls share one cached token.
type Client struct {
	APIKey      string
	MerchantKey string

	TokenURL   string
	APIBaseURL string
	Currency   string
	ReturnURL  string
	CancelURL  string
	NotifyURL  string

	HTTPClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClientFromEnv builds a client from OM_* environment variables.
func NewClientFromEnv() *Client {
	return &Client{
		APIKey:      strings.TrimSpace(env.GetEnv("OM_API_KEY", "")),
		MerchantKey: strings.TrimSpace(env.GetEnv("OM_MERCHANT_KEY", "")),
		TokenURL:    strings.TrimSpace(env.GetEnv("OM_TOKEN_URL", defaultTokenURL)),
		APIBaseURL:  strings.TrimRight(strings.TrimSpace(env.GetEnv("OM_API_BASE_URL", defaultAPIBaseURL)), "/"),
		Currency:    strings.TrimSpace(env.GetEnv("OM_CURRENCY", defaultCurrency)),
		ReturnURL:   strings.TrimSpace(env.GetEnv("OM_RETURN_URL", "")),
		CancelURL:   strings.TrimSpace(env.GetEnv("OM_CANCEL_URL", "")),
		NotifyURL:   strings.TrimSpace(env.GetEnv("OM_NOTIFY_URL", "")),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

var (
	clientOnce sync.Once
	client     *Client
)

// GetClient returns the process-wide client so the token cache is shared
// across requests.
func GetClient() *Client {
	clientOnce.Do(func() {
		client = NewClientFromEnv()
	})
	return client
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// getAccessToken returns a valid access token, fetching a fresh one when the
// cached token is missing or about to expire.
func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	if c.APIKey == "" {
		return "", errors.New("OM_API_KEY is not configured")
	}

	form := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, form)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Basic "+c.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("orange money token request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out tokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("orange money token response missing access_token")
	}

	expiresIn := out.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	c.accessToken = out.AccessToken
	// Refresh a minute early so in-flight calls never race the expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(expiresIn-60) * time.Second)
	return c.accessToken, nil
}

type webPaymentRequest struct {
	MerchantKey string `json:"merchant_key"`
	Currency    string `json:"currency"`
	OrderID     string `json:"order_id"`
	Amount      int    `json:"amount"`
	ReturnURL   string `json:"return_url"`
	CancelURL   string `json:"cancel_url"`
	NotifURL    string `json:"notif_url"`
	Lang        string `json:"lang"`
	Reference   string `json:"reference"`
}

type webPaymentResponse struct {
	PaymentURL string `json:"payment_url"`
	PayToken   string `json:"pay_token"`
	NotifToken string `json:"notif_token"`
	Status     int    `json:"status"`
	Message    string `json:"message"`
}

// InitiatePayment opens a web payment session for an order and returns the
// redirect URL and pay token.
func (c *Client) InitiatePayment(ctx context.Context, orderID string, amountPula int) (string, string, error) {
	if c.MerchantKey == "" {
		return "", "", errors.New("OM_MERCHANT_KEY is not configured")
	}

	token, err := c.getAccessToken(ctx)
	if err != nil {
		return "", "", err
	}

	payload, err := json.Marshal(webPaymentRequest{
		MerchantKey: c.MerchantKey,
		Currency:    c.Currency,
		OrderID:     orderID,
		Amount:      amountPula,
		ReturnURL:   c.ReturnURL,
		CancelURL:   c.CancelURL,
		NotifURL:    c.NotifyURL,
		Lang:        "en",
		Reference:   orderID,
	})
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/webpayment", bytes.NewReader(payload))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusCreated && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return "", "", fmt.Errorf("orange money webpayment failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out webPaymentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", "", err
	}
	if out.PaymentURL == "" || out.PayToken == "" {
		return "", "", fmt.Errorf("orange money webpayment response incomplete: %s", string(body))
	}
	return out.PaymentURL, out.PayToken, nil
}

type transactionStatusRequest struct {
	OrderID  string `json:"order_id"`
	Amount   int    `json:"amount"`
	PayToken string `json:"pay_token"`
}

type transactionStatusResponse struct {
	Status  string `json:"status"`
	OrderID string `json:"order_id"`
	TxnID   string `json:"txnid"`
}

// CheckTransactionStatus polls the gateway for an order's final status. Any
// transport, auth or decode failure reports "unknown" so callers keep the
// local transaction untouched.
func (c *Client) CheckTransactionStatus(ctx context.Context, orderID, payToken string, amountPula int) string {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		log.Errorf("orange money status check for %s: token: %v", orderID, err)
		return subscription.GatewayStatusUnknown
	}

	payload, err := json.Marshal(transactionStatusRequest{
		OrderID:  orderID,
		Amount:   amountPula,
		PayToken: payToken,
	})
	if err != nil {
		return subscription.GatewayStatusUnknown
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/transactionstatus", bytes.NewReader(payload))
	if err != nil {
		return subscription.GatewayStatusUnknown
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		log.Errorf("orange money status check for %s: %v", orderID, err)
		return subscription.GatewayStatusUnknown
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Errorf("orange money status check for %s: status=%d body=%s", orderID, resp.StatusCode, string(body))
		return subscription.GatewayStatusUnknown
	}

	var out transactionStatusResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return subscription.GatewayStatusUnknown
	}
	return mapGatewayStatus(out.Status)
}

// mapGatewayStatus normalizes provider status spellings. In-progress statuses
// map to unknown because the payment may still complete.
func mapGatewayStatus(status string) string {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "SUCCESS", "SUCCESSFULL":
		return subscription.GatewayStatusSuccess
	case "FAILED":
		return subscription.GatewayStatusFailed
	case "EXPIRED":
		return subscription.GatewayStatusExpired
	case "CANCELLED", "CANCELED":
		return subscription.GatewayStatusCancelled
	default:
		return subscription.GatewayStatusUnknown
	}
}
