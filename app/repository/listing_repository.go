package repository

import (
	"github.com/primedrive/backend/app/models"
	"gorm.io/gorm"
)

// listingRepository implements the ListingRepository interface
type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository creates a new car listing repository instance
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

// Create creates a new listing in the database
func (r *listingRepository) Create(listing *models.CarListing) error {
	return r.db.Create(listing).Error
}

// GetByID retrieves a listing by its ID
func (r *listingRepository) GetByID(id string) (*models.CarListing, error) {
	var listing models.CarListing
	err := r.db.First(&listing, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// GetByUserID retrieves a user's listings, newest first
func (r *listingRepository) GetByUserID(userID string, offset, limit int) ([]models.CarListing, error) {
	var listings []models.CarListing
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&listings).Error
	return listings, err
}

// ListActive returns publicly visible listings, newest first, plus the total
// active count for pagination
func (r *listingRepository) ListActive(offset, limit int) ([]models.CarListing, int64, error) {
	query := r.db.Model(&models.CarListing{}).Where("status = ?", models.LISTING_STATUS_ACTIVE)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var listings []models.CarListing
	err := query.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&listings).Error
	return listings, total, err
}

// CountActiveByUserID counts a user's active listings for quota enforcement
func (r *listingRepository) CountActiveByUserID(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.CarListing{}).
		Where("user_id = ? AND status = ?", userID, models.LISTING_STATUS_ACTIVE).
		Count(&count).Error
	return count, err
}

// Update updates an existing listing in the database
func (r *listingRepository) Update(listing *models.CarListing) error {
	return r.db.Save(listing).Error
}

// MarkRemoved soft removes a listing by flipping its status
func (r *listingRepository) MarkRemoved(id string) error {
	return r.db.Model(&models.CarListing{}).
		Where("id = ?", id).
		Update("status", models.LISTING_STATUS_REMOVED).Error
}
