package subscription

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/primedrive/backend/app/models"
	"github.com/primedrive/backend/internal/pkg/env"
)

// Service is the subscription ledger. It owns the payment lifecycle, tier
// activation with expiry stacking, and expiry enforcement. The gateway is
// injected so the ledger never depends on a concrete provider.
type Service struct {
	repo    Repository
	gateway Gateway
	cfg     Config
}

// NewService creates a ledger service from an injected repository and gateway.
func NewService(repo Repository, gateway Gateway, cfg Config) *Service {
	return &Service{repo: repo, gateway: gateway, cfg: cfg}
}

// NewServiceFromDB creates a ledger service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, gateway Gateway, cfg Config) *Service {
	return NewService(NewRepository(db), gateway, cfg)
}

// ConfigFromEnv reads the ledger settings from the environment once.
func ConfigFromEnv() Config {
	days, err := strconv.Atoi(env.GetEnv("SUBSCRIPTION_DURATION_DAYS", "30"))
	if err != nil || days <= 0 {
		days = 30
	}
	hours, err := strconv.Atoi(env.GetEnv("PAYMENT_STALENESS_HOURS", "24"))
	if err != nil || hours <= 0 {
		hours = 24
	}
	return Config{
		DefaultDuration: time.Duration(days) * 24 * time.Hour,
		StalenessWindow: time.Duration(hours) * time.Hour,
		WhatsAppNumber:  env.GetEnv("WHATSAPP_NUMBER", ""),
	}
}

// CheckAndEnforce reads a user's subscription state and lazily downgrades an
// expired subscription to the free tier. The returned state is always valid at
// the time of the call; calling it again without further payments is a no-op.
func (s *Service) CheckAndEnforce(ctx context.Context, userID string) (*Enforcement, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err)
	}

	now := time.Now().UTC()
	if !user.HasSubscriptionExpired(now) {
		return &Enforcement{
			Tier:      user.CurrentTier,
			IsActive:  true,
			ExpiresAt: user.SubscriptionExpiresAt,
		}, nil
	}

	freeTier, err := s.repo.GetTierByName(ctx, models.TIER_FREE)
	if err != nil {
		return nil, err
	}

	downgraded, err := s.repo.DowngradeUserIfExpired(ctx, userID, freeTier.ID, now)
	if err != nil {
		return nil, err
	}
	if !downgraded {
		// A concurrent renewal extended the expiry or another enforcement
		// already applied the downgrade. Report whatever is stored now.
		fresh, err := s.repo.GetUser(ctx, userID)
		if err != nil {
			return nil, mapNotFound(err)
		}
		return &Enforcement{
			Tier:      fresh.CurrentTier,
			IsActive:  true,
			ExpiresAt: fresh.SubscriptionExpiresAt,
		}, nil
	}

	log.Infof("subscription expired for user %s, downgraded from %s to free", userID, user.CurrentTier.Name)
	return &Enforcement{
		Tier:          *freeTier,
		IsActive:      true,
		WasDowngraded: true,
		PreviousTier:  user.CurrentTier.Name,
	}, nil
}

// Activate grants the user the given tier for the configured duration,
// stacking on top of any remaining paid time. The free tier is never
// activated this way; free-tier users carry no expiry and reach the tier
// through expiry enforcement alone.
func (s *Service) Activate(ctx context.Context, userID string, tierID uint) (time.Time, error) {
	tier, err := s.repo.GetTierByID(ctx, tierID)
	if err != nil {
		return time.Time{}, mapNotFound(err)
	}
	if tier.IsFree() {
		return time.Time{}, fmt.Errorf("%w: the %s tier carries no expiry and cannot be granted", ErrInvalidRequest, tier.Name)
	}

	expiry, err := s.repo.ActivateSubscription(ctx, userID, tierID, s.cfg.DefaultDuration)
	if err != nil {
		return time.Time{}, mapNotFound(err)
	}
	return expiry, nil
}

// Initiate starts a payment for a tier upgrade. Repeated initiations for the
// same tier reuse the open transaction instead of creating duplicates. When
// the gateway cannot open a session, the payment degrades to manual
// instructions rather than failing the request.
func (s *Service) Initiate(ctx context.Context, userID, tierName, method string) (*InitiateResult, error) {
	switch method {
	case models.PAYMENT_METHOD_ORANGE_MONEY, models.PAYMENT_METHOD_MYZAKA, models.PAYMENT_METHOD_MANUAL:
	default:
		return nil, fmt.Errorf("%w: unsupported payment method %q", ErrInvalidRequest, method)
	}

	tier, err := s.repo.GetTierByName(ctx, tierName)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if tier.IsFree() {
		return nil, fmt.Errorf("%w: the %s tier requires no payment", ErrInvalidRequest, tier.Name)
	}

	existing, err := s.repo.FindNonTerminalTransaction(ctx, userID, tier.ID)
	if err == nil {
		return &InitiateResult{
			Transaction: existing,
			PaymentURL:  existing.OrangeMoneyPayURL,
			Message: fmt.Sprintf(
				"You already have a pending payment for %s tier. Reference: %s",
				tier.Name, existing.TransactionReference,
			),
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	id := uuid.New().String()
	reference := newTransactionReference(id, now)

	txn := &models.PaymentTransaction{
		ID:                   id,
		UserID:               userID,
		TierID:               tier.ID,
		AmountPula:           tier.PricePula,
		PaymentMethod:        method,
		TransactionReference: reference,
		Status:               models.PAYMENT_STATUS_PENDING,
	}

	result := &InitiateResult{Transaction: txn}
	switch method {
	case models.PAYMENT_METHOD_ORANGE_MONEY:
		payURL, payToken, gwErr := s.gateway.InitiatePayment(ctx, reference, tier.PricePula)
		if gwErr != nil {
			// Fail open: the user can still pay manually against the same
			// transaction and confirm it for admin review.
			log.Errorf("orange money session for %s failed, degrading to manual instructions: %v", reference, gwErr)
			txn.PaymentMethod = models.PAYMENT_METHOD_MANUAL
			result.Message = gatewayFallbackInstructions(tier.PricePula, s.cfg.WhatsAppNumber, reference)
		} else {
			txn.OrangeMoneyOrderID = reference
			txn.OrangeMoneyPayToken = payToken
			txn.OrangeMoneyPayURL = payURL
			result.PaymentURL = payURL
			result.Message = fmt.Sprintf(
				"Complete your P%d payment on the Orange Money page to activate %s tier.",
				tier.PricePula, tier.Name,
			)
		}
	default:
		result.Message = manualInstructions(method, tier.PricePula, s.cfg.WhatsAppNumber, reference)
	}

	if err := s.repo.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return result, nil
}

// Confirm records that the user claims to have paid a pending transaction,
// moving it to awaiting_verification for admin review.
func (s *Service) Confirm(ctx context.Context, userID, transactionID, userReference string) (*StatusResult, error) {
	txn, err := s.repo.GetUserTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, mapNotFound(err)
	}

	// Only a pending transaction is confirmable; anything else is reported
	// as not found, matching the ownership check above.
	ok, err := s.repo.UpdateTransactionStatusIf(ctx, txn.ID,
		[]string{models.PAYMENT_STATUS_PENDING},
		map[string]any{
			"status":                 models.PAYMENT_STATUS_AWAITING_VERIFICATION,
			"user_payment_reference": userReference,
		})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	return s.statusResult(ctx, userID, transactionID)
}

// CheckStatus returns a transaction's current state, polling the gateway
// first for pending Orange Money sessions. A confirmed success completes the
// payment and activates the tier; a deny/expiry fails it; an unknown poll
// result leaves the transaction untouched. Transactions already awaiting
// verification are never polled; only admin review resolves them.
func (s *Service) CheckStatus(ctx context.Context, userID, transactionID string) (*StatusResult, error) {
	txn, err := s.repo.GetUserTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, mapNotFound(err)
	}

	if txn.Status == models.PAYMENT_STATUS_PENDING && txn.OrangeMoneyOrderID != "" {
		switch s.gateway.CheckTransactionStatus(ctx, txn.OrangeMoneyOrderID, txn.OrangeMoneyPayToken, txn.AmountPula) {
		case GatewayStatusSuccess:
			err := s.complete(ctx, txn, map[string]any{"orange_money_status": GatewayStatusSuccess})
			if err != nil && !errors.Is(err, errTransitionLost) {
				return nil, err
			}
		case GatewayStatusFailed, GatewayStatusExpired, GatewayStatusCancelled:
			// Guarded on pending so a concurrent confirmation keeps its
			// admin-review hold instead of being failed by a lapsed session.
			if _, err := s.repo.UpdateTransactionStatusIf(ctx, txn.ID,
				[]string{models.PAYMENT_STATUS_PENDING},
				map[string]any{"status": models.PAYMENT_STATUS_FAILED}); err != nil {
				return nil, err
			}
		case GatewayStatusUnknown:
			// Gateway could not answer; keep the transaction as is.
		}
	}

	return s.statusResult(ctx, userID, transactionID)
}

// HandleCallback applies a gateway notification to the referenced transaction.
// Terminal transactions and lost conditional updates report AlreadyProcessed,
// so redelivered or racing callbacks change nothing. An amount mismatch fails
// the transaction and never activates the tier.
func (s *Service) HandleCallback(ctx context.Context, cb CallbackInput) (CallbackOutcome, *models.PaymentTransaction, error) {
	txn, err := s.repo.FindTransactionByOrderID(ctx, cb.OrderID)
	if err != nil {
		return "", nil, mapNotFound(err)
	}
	if txn.IsTerminal() {
		return CallbackAlreadyProcessed, txn, nil
	}

	if cb.Amount != float64(txn.AmountPula) {
		log.Errorf("callback amount mismatch for order %s: got %.2f, expected %d", cb.OrderID, cb.Amount, txn.AmountPula)
		ok, err := s.repo.UpdateTransactionStatusIf(ctx, txn.ID,
			models.NonTerminalPaymentStatuses(),
			map[string]any{
				"status":                      models.PAYMENT_STATUS_FAILED,
				"orange_money_status":         models.GATEWAY_STATUS_AMOUNT_MISMATCH,
				"orange_money_transaction_id": cb.GatewayTransactionID,
			})
		if err != nil {
			return "", nil, err
		}
		if !ok {
			return CallbackAlreadyProcessed, txn, nil
		}
		return CallbackAmountMismatch, txn, nil
	}

	if isGatewaySuccess(cb.Status) {
		if err := s.complete(ctx, txn, map[string]any{
			"orange_money_status":         cb.Status,
			"orange_money_transaction_id": cb.GatewayTransactionID,
		}); err != nil {
			if errors.Is(err, errTransitionLost) {
				return CallbackAlreadyProcessed, txn, nil
			}
			return "", nil, err
		}
		return CallbackProcessed, txn, nil
	}

	ok, err := s.repo.UpdateTransactionStatusIf(ctx, txn.ID,
		models.NonTerminalPaymentStatuses(),
		map[string]any{
			"status":                      models.PAYMENT_STATUS_FAILED,
			"orange_money_status":         cb.Status,
			"orange_money_transaction_id": cb.GatewayTransactionID,
		})
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return CallbackAlreadyProcessed, txn, nil
	}
	return CallbackProcessed, txn, nil
}

// AdminApprove completes a reviewable transaction and activates its tier.
func (s *Service) AdminApprove(ctx context.Context, transactionID, notes string) (*models.PaymentTransaction, error) {
	txn, err := s.repo.FindReviewableTransaction(ctx, transactionID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if err := s.complete(ctx, txn, map[string]any{"admin_notes": notes}); err != nil {
		if errors.Is(err, errTransitionLost) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.repo.GetUserTransaction(ctx, txn.UserID, txn.ID)
}

// AdminReject fails a reviewable transaction without activating anything.
func (s *Service) AdminReject(ctx context.Context, transactionID, notes string) (*models.PaymentTransaction, error) {
	txn, err := s.repo.FindReviewableTransaction(ctx, transactionID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	ok, err := s.repo.UpdateTransactionStatusIf(ctx, txn.ID,
		models.NonTerminalPaymentStatuses(),
		map[string]any{
			"status":      models.PAYMENT_STATUS_FAILED,
			"admin_notes": notes,
		})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return s.repo.GetUserTransaction(ctx, txn.UserID, txn.ID)
}

// ExpireStalePending fails pending transactions older than the staleness
// window and returns how many were swept.
func (s *Service) ExpireStalePending(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.StalenessWindow)
	swept, err := s.repo.SweepStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		log.Infof("swept %d stale pending transactions older than %s", swept, cutoff.Format(time.RFC3339))
	}
	return swept, nil
}

// DowngradeExpired moves every user with a past expiry to the free tier in
// bulk and returns how many rows changed.
func (s *Service) DowngradeExpired(ctx context.Context) (int64, error) {
	freeTier, err := s.repo.GetTierByName(ctx, models.TIER_FREE)
	if err != nil {
		return 0, err
	}
	changed, err := s.repo.DowngradeExpired(ctx, freeTier.ID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		log.Infof("downgraded %d users with expired subscriptions to free tier", changed)
	}
	return changed, nil
}

// ListTransactions returns a user's payment history, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID string, limit int) ([]models.PaymentTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListTransactions(ctx, userID, limit)
}

// ListReviewableTransactions returns all transactions an admin can still act on.
func (s *Service) ListReviewableTransactions(ctx context.Context) ([]models.PaymentTransaction, error) {
	return s.repo.ListReviewableTransactions(ctx)
}

// RecordWebhookEvent persists a raw callback payload for idempotent
// processing. It reports false when the same provider event was seen before.
// Providers that send no event ID get one derived from the payload hash.
func (s *Service) RecordWebhookEvent(ctx context.Context, provider, providerEventID, orderID, payload string) (bool, *models.GatewayWebhookEvent, error) {
	if strings.TrimSpace(providerEventID) == "" {
		sum := sha256.Sum256([]byte(payload))
		providerEventID = hex.EncodeToString(sum[:])
	}
	event := &models.GatewayWebhookEvent{
		Provider:        provider,
		ProviderEventID: providerEventID,
		OrderID:         orderID,
		PayloadJSON:     payload,
	}
	return s.repo.CreateWebhookEventIfNotExists(ctx, event)
}

// MarkWebhookProcessed stamps a stored webhook event as handled, recording the
// processing error if one occurred.
func (s *Service) MarkWebhookProcessed(ctx context.Context, eventID uint, processingError string) error {
	return s.repo.MarkWebhookProcessed(ctx, eventID, processingError)
}

// errTransitionLost signals that the guarded completed-transition matched no
// row because another caller got there first. Internal to the service.
var errTransitionLost = errors.New("transaction transition lost")

// complete moves a non-terminal transaction to completed and activates its
// tier. The guarded update decides the race between poll, webhook and admin:
// exactly one caller completes the transaction and performs the activation.
func (s *Service) complete(ctx context.Context, txn *models.PaymentTransaction, extra map[string]any) error {
	now := time.Now().UTC()
	fields := map[string]any{
		"status":       models.PAYMENT_STATUS_COMPLETED,
		"completed_at": &now,
	}
	for k, v := range extra {
		fields[k] = v
	}

	ok, err := s.repo.UpdateTransactionStatusIf(ctx, txn.ID, models.NonTerminalPaymentStatuses(), fields)
	if err != nil {
		return err
	}
	if !ok {
		return errTransitionLost
	}

	expiry, err := s.Activate(ctx, txn.UserID, txn.TierID)
	if err != nil {
		return err
	}
	log.Infof("payment %s completed, user %s active on tier %d until %s", txn.ID, txn.UserID, txn.TierID, expiry.Format(time.RFC3339))
	return nil
}

func (s *Service) statusResult(ctx context.Context, userID, transactionID string) (*StatusResult, error) {
	txn, err := s.repo.GetUserTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &StatusResult{
		Transaction: txn,
		TierName:    txn.Tier.Name,
		Message:     statusMessage(txn.Status, txn.Tier.Name, txn.AmountPula),
	}, nil
}

// isGatewaySuccess matches the success spellings Orange Money has been seen
// sending, including the historical double-L variant.
func isGatewaySuccess(status string) bool {
	return strings.EqualFold(status, "SUCCESS") || strings.EqualFold(status, "SUCCESSFULL")
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
