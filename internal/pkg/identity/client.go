package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/primedrive/backend/internal/pkg/env"
)

// ErrInvalidToken is returned when the identity provider rejects a token.
var ErrInvalidToken = errors.New("invalid or expired access token")

// Identity is the verified account behind an access token. Only the fields
// the backend mirrors locally are decoded.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Client verifies access tokens against the identity provider (Supabase
// Auth). The backend never issues or stores credentials itself.
type Client struct {
	BaseURL string
	AnonKey string

	HTTPClient *http.Client
}

// NewClientFromEnv builds a client from SUPABASE_* environment variables.
func NewClientFromEnv() *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(env.GetEnv("SUPABASE_URL", "")), "/"),
		AnonKey: strings.TrimSpace(env.GetEnv("SUPABASE_ANON_KEY", "")),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

var (
	clientOnce sync.Once
	client     *Client
)

// GetClient returns the process-wide identity client.
func GetClient() *Client {
	clientOnce.Do(func() {
		client = NewClientFromEnv()
	})
	return client
}

// VerifyToken resolves an access token to the account it belongs to.
func (c *Client) VerifyToken(ctx context.Context, accessToken string) (*Identity, error) {
	if c.BaseURL == "" {
		return nil, errors.New("SUPABASE_URL is not configured")
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, ErrInvalidToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("apikey", c.AnonKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("identity provider returned status=%d body=%s", resp.StatusCode, string(body))
	}

	var ident Identity
	if err := json.Unmarshal(body, &ident); err != nil {
		return nil, err
	}
	if ident.ID == "" {
		return nil, ErrInvalidToken
	}
	return &ident, nil
}
