package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

const (
	LISTING_TYPE_SALE = "sale"
	LISTING_TYPE_RENT = "rent"
)

const (
	LISTING_STATUS_PENDING = "pending"
	LISTING_STATUS_ACTIVE  = "active"
	LISTING_STATUS_EXPIRED = "expired"
	LISTING_STATUS_REMOVED = "removed"
)

// CarListing is a vehicle sale or rental advert. Listings are never hard
// deleted; removal flips the status to removed so quota counts stay auditable.
type CarListing struct {
	ID           string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID       string         `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Brand        string         `gorm:"type:varchar(100);not null" json:"brand" validate:"required,min=1,max=100"`
	Model        string         `gorm:"type:varchar(100);not null" json:"model" validate:"required,min=1,max=100"`
	Year         int            `gorm:"not null" json:"year" validate:"gte=1990,lte=2030"`
	Mileage      int            `gorm:"not null" json:"mileage" validate:"gte=0"`
	Transmission string         `gorm:"type:varchar(20);not null" json:"transmission" validate:"oneof=Automatic Manual"`
	Condition    string         `gorm:"type:varchar(50);not null" json:"condition" validate:"required"`
	Price        int            `gorm:"not null" json:"price" validate:"gte=0"`
	Location     string         `gorm:"type:varchar(100);not null" json:"location" validate:"required"`
	Notes        string         `gorm:"type:text" json:"notes,omitempty"`
	ListingType  string         `gorm:"type:varchar(10);not null;index" json:"listing_type" validate:"oneof=sale rent"`
	DailyRate    *int           `gorm:"default:null" json:"daily_rate,omitempty"` // rentals only
	Seats        *int           `gorm:"default:null" json:"seats,omitempty"`      // rentals only
	Images       datatypes.JSON `gorm:"type:json" json:"images"`
	Status       string         `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	ExpiresAt    *time.Time     `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
}

func (l *CarListing) Validate() error {
	v := validator.New()

	return v.Struct(l)
}
