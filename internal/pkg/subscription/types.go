package subscription

import (
	"context"
	"time"

	"github.com/primedrive/backend/app/models"
)

// Gateway abstracts the mobile-money provider used to collect payments. The
// adapter owns its own credential/token lifecycle; the ledger only initiates
// sessions and polls order status.
type Gateway interface {
	// InitiatePayment opens a web payment session for an order and returns the
	// redirect URL and gateway-side pay token.
	InitiatePayment(ctx context.Context, orderID string, amountPula int) (paymentURL, payToken string, err error)

	// CheckTransactionStatus polls the gateway for an order's status. It never
	// fails: transport or auth errors map to the "unknown" status so a gateway
	// outage cannot corrupt local transaction state.
	CheckTransactionStatus(ctx context.Context, orderID, payToken string, amountPula int) string
}

// Gateway poll statuses as normalized by the adapter.
const (
	GatewayStatusSuccess   = "success"
	GatewayStatusFailed    = "failed"
	GatewayStatusExpired   = "expired"
	GatewayStatusCancelled = "cancelled"
	GatewayStatusUnknown   = "unknown"
)

// Config carries the explicit settings the ledger needs. It is constructed
// once at wiring time; the ledger never reads ambient global state.
type Config struct {
	// DefaultDuration is the subscription validity granted per completed payment.
	DefaultDuration time.Duration
	// StalenessWindow is the age after which unresolved pending transactions
	// are swept to failed.
	StalenessWindow time.Duration
	// WhatsAppNumber is quoted in manual payment instructions.
	WhatsAppNumber string
}

// Enforcement is the outcome of an expiry check. IsActive is always true: the
// result reflects a currently-valid state, downgraded to free if needed.
type Enforcement struct {
	Tier          models.SubscriptionTier
	IsActive      bool
	ExpiresAt     *time.Time
	WasDowngraded bool
	PreviousTier  string
}

// InitiateResult is returned by Initiate. PaymentURL is empty for manual
// methods and for gateway sessions that degraded to manual.
type InitiateResult struct {
	Transaction *models.PaymentTransaction
	PaymentURL  string
	Message     string
}

// StatusResult pairs a transaction with its human-readable status message.
type StatusResult struct {
	Transaction *models.PaymentTransaction
	TierName    string
	Message     string
}

// CallbackInput is the normalized shape of a gateway webhook notification.
type CallbackInput struct {
	OrderID              string
	Status               string
	GatewayTransactionID string
	Amount               float64
	Currency             string
}

// CallbackOutcome tells the webhook endpoint how a callback was handled.
type CallbackOutcome string

const (
	CallbackProcessed        CallbackOutcome = "processed"
	CallbackAlreadyProcessed CallbackOutcome = "already_processed"
	CallbackAmountMismatch   CallbackOutcome = "amount_mismatch"
)
