package repository

import (
	"errors"

	"github.com/primedrive/backend/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	err := r.db.Preload("CurrentTier").First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Preload("CurrentTier").Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOrCreate returns the user for a verified identity, creating the record
// on the free tier when the identity has not been seen before.
func (r *userRepository) GetOrCreate(id, email string) (*models.User, error) {
	user, err := r.GetByID(id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var freeTier models.SubscriptionTier
	if err := r.db.Where("name = ?", models.TIER_FREE).First(&freeTier).Error; err != nil {
		return nil, err
	}

	created := &models.User{
		ID:            id,
		Email:         email,
		Status:        models.STATUS_ACTIVE,
		CurrentTierID: freeTier.ID,
	}
	if err := r.db.Create(created).Error; err != nil {
		// Lost a race against a concurrent first request for the same
		// identity; the row exists now.
		if existing, lookupErr := r.GetByID(id); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}
	created.CurrentTier = freeTier
	return created, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
