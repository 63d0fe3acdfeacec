package repository

import (
	"github.com/primedrive/backend/app/models"
	"gorm.io/gorm"
)

// tierRepository implements the TierRepository interface
type tierRepository struct {
	db *gorm.DB
}

// NewTierRepository creates a new subscription tier repository instance
func NewTierRepository(db *gorm.DB) TierRepository {
	return &tierRepository{db: db}
}

// List returns the tier catalog ordered by price
func (r *tierRepository) List() ([]models.SubscriptionTier, error) {
	var tiers []models.SubscriptionTier
	err := r.db.Order("price_pula ASC").Find(&tiers).Error
	return tiers, err
}

// GetByID retrieves a tier by its ID
func (r *tierRepository) GetByID(id uint) (*models.SubscriptionTier, error) {
	var tier models.SubscriptionTier
	err := r.db.First(&tier, id).Error
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

// GetByName retrieves a tier by its unique name
func (r *tierRepository) GetByName(name string) (*models.SubscriptionTier, error) {
	var tier models.SubscriptionTier
	err := r.db.Where("name = ?", name).First(&tier).Error
	if err != nil {
		return nil, err
	}
	return &tier, nil
}
