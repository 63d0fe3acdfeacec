package subscription

import (
	"context"
	"time"

	"github.com/primedrive/backend/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the store operations used by the subscription ledger.
// Every status transition goes through a conditional update guarded on the
// expected prior status, so racing callers (user poll vs. webhook) cannot
// double-apply a transition.
type Repository interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetTierByID(ctx context.Context, id uint) (*models.SubscriptionTier, error)
	GetTierByName(ctx context.Context, name string) (*models.SubscriptionTier, error)

	CreateTransaction(ctx context.Context, txn *models.PaymentTransaction) error
	GetUserTransaction(ctx context.Context, userID, id string) (*models.PaymentTransaction, error)
	FindNonTerminalTransaction(ctx context.Context, userID string, tierID uint) (*models.PaymentTransaction, error)
	FindTransactionByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error)
	FindReviewableTransaction(ctx context.Context, id string) (*models.PaymentTransaction, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]models.PaymentTransaction, error)
	ListReviewableTransactions(ctx context.Context) ([]models.PaymentTransaction, error)

	// UpdateTransactionStatusIf applies fields to the transaction only if its
	// current status is one of expected. Returns false when the guard did not
	// match (someone else already transitioned the row).
	UpdateTransactionStatusIf(ctx context.Context, id string, expected []string, fields map[string]any) (bool, error)

	// DowngradeUserIfExpired atomically moves the user to the free tier and
	// clears the expiry, but only while the stored expiry is strictly in the
	// past. Returns false when no write happened.
	DowngradeUserIfExpired(ctx context.Context, userID string, freeTierID uint, now time.Time) (bool, error)

	// ActivateSubscription reassigns the user's tier and stacks the expiry
	// inside one transaction with the user row locked, so two concurrent
	// renewals cannot both extend from the same stale expiry.
	ActivateSubscription(ctx context.Context, userID string, tierID uint, duration time.Duration) (time.Time, error)

	SweepStalePending(ctx context.Context, olderThan time.Time) (int64, error)
	DowngradeExpired(ctx context.Context, freeTierID uint, now time.Time) (int64, error)

	CreateWebhookEventIfNotExists(ctx context.Context, event *models.GatewayWebhookEvent) (bool, *models.GatewayWebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a ledger repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("CurrentTier").First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetTierByID(ctx context.Context, id uint) (*models.SubscriptionTier, error) {
	var tier models.SubscriptionTier
	err := r.db.WithContext(ctx).First(&tier, id).Error
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

func (r *gormRepository) GetTierByName(ctx context.Context, name string) (*models.SubscriptionTier, error) {
	var tier models.SubscriptionTier
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&tier).Error
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

func (r *gormRepository) CreateTransaction(ctx context.Context, txn *models.PaymentTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *gormRepository) GetUserTransaction(ctx context.Context, userID, id string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.WithContext(ctx).Preload("Tier").
		Where("id = ? AND user_id = ?", id, userID).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *gormRepository) FindNonTerminalTransaction(ctx context.Context, userID string, tierID uint) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.WithContext(ctx).Preload("Tier").
		Where("user_id = ? AND tier_id = ? AND status IN ?", userID, tierID, models.NonTerminalPaymentStatuses()).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *gormRepository) FindTransactionByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.WithContext(ctx).Preload("Tier").
		Where("orange_money_order_id = ?", orderID).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *gormRepository) FindReviewableTransaction(ctx context.Context, id string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.WithContext(ctx).Preload("Tier").
		Where("id = ? AND status IN ?", id, models.NonTerminalPaymentStatuses()).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *gormRepository) ListTransactions(ctx context.Context, userID string, limit int) ([]models.PaymentTransaction, error) {
	var txns []models.PaymentTransaction
	err := r.db.WithContext(ctx).Preload("Tier").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

func (r *gormRepository) ListReviewableTransactions(ctx context.Context) ([]models.PaymentTransaction, error) {
	var txns []models.PaymentTransaction
	err := r.db.WithContext(ctx).Preload("Tier").
		Where("status IN ?", models.NonTerminalPaymentStatuses()).
		Order("created_at DESC").
		Find(&txns).Error
	return txns, err
}

func (r *gormRepository) UpdateTransactionStatusIf(ctx context.Context, id string, expected []string, fields map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PaymentTransaction{}).
		Where("id = ? AND status IN ?", id, expected).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) DowngradeUserIfExpired(ctx context.Context, userID string, freeTierID uint, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND subscription_expires_at IS NOT NULL AND subscription_expires_at < ?", userID, now).
		Updates(map[string]any{
			"current_tier_id":         freeTierID,
			"subscription_expires_at": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) ActivateSubscription(ctx context.Context, userID string, tierID uint, duration time.Duration) (time.Time, error) {
	var newExpiry time.Time
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, "id = ?", userID).Error; err != nil {
			return err
		}

		newExpiry = stackExpiry(user.SubscriptionExpiresAt, time.Now().UTC(), duration)

		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]any{
				"current_tier_id":         tierID,
				"subscription_expires_at": newExpiry,
			}).Error
	})
	return newExpiry, err
}

func (r *gormRepository) SweepStalePending(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.PaymentTransaction{}).
		Where("status = ? AND created_at < ?", models.PAYMENT_STATUS_PENDING, olderThan).
		Updates(map[string]any{"status": models.PAYMENT_STATUS_FAILED})
	return res.RowsAffected, res.Error
}

func (r *gormRepository) DowngradeExpired(ctx context.Context, freeTierID uint, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("subscription_expires_at IS NOT NULL AND subscription_expires_at < ?", now).
		Updates(map[string]any{
			"current_tier_id":         freeTierID,
			"subscription_expires_at": nil,
		})
	return res.RowsAffected, res.Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.GatewayWebhookEvent) (bool, *models.GatewayWebhookEvent, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.GatewayWebhookEvent
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.GatewayWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
