package repository

import (
	"github.com/primedrive/backend/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	// GetOrCreate resolves a verified identity to the local user record,
	// creating it on the free tier the first time the identity is seen.
	GetOrCreate(id, email string) (*models.User, error)
	Update(user *models.User) error
	Count() (int64, error)
}

// TierRepository defines the interface for the subscription tier catalog
type TierRepository interface {
	List() ([]models.SubscriptionTier, error)
	GetByID(id uint) (*models.SubscriptionTier, error)
	GetByName(name string) (*models.SubscriptionTier, error)
}

// ListingRepository defines the interface for car listing database operations
type ListingRepository interface {
	Create(listing *models.CarListing) error
	GetByID(id string) (*models.CarListing, error)
	GetByUserID(userID string, offset, limit int) ([]models.CarListing, error)
	ListActive(offset, limit int) ([]models.CarListing, int64, error)
	CountActiveByUserID(userID string) (int64, error)
	Update(listing *models.CarListing) error
	MarkRemoved(id string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User    UserRepository
	Tier    TierRepository
	Listing ListingRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Tier:    NewTierRepository(db),
		Listing: NewListingRepository(db),
	}
}
