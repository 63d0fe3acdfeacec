package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	STATUS_ACTIVE   = "active"
	STATUS_DISABLED = "disabled"
)

// User mirrors an identity-provider account locally and carries the
// subscription state the backend owns: the current tier and its expiry.
// Credentials live with the identity provider, never here.
//
// Invariant: users on the free tier always have a NULL SubscriptionExpiresAt.
type User struct {
	ID                    string         `gorm:"type:varchar(36);primaryKey" json:"id" validate:"required,uuid4"`
	Email                 string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Phone                 string         `gorm:"type:varchar(30);default:null" json:"phone,omitempty" validate:"max=30"`
	WhatsApp              string         `gorm:"type:varchar(30);default:null" json:"whatsapp,omitempty" validate:"max=30"`
	Status                string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active disabled"`
	IsAdmin               bool           `gorm:"default:false" json:"-"`
	CurrentTierID         uint           `gorm:"not null;index" json:"-"`
	SubscriptionExpiresAt *time.Time     `gorm:"type:timestamp;default:null" json:"subscription_expires_at,omitempty"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`

	CurrentTier SubscriptionTier `gorm:"foreignKey:CurrentTierID" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// HasSubscriptionExpired reports whether a tracked expiry lies strictly in the
// past. Users without a tracked expiry (free tier, never subscribed) never
// expire.
func (u *User) HasSubscriptionExpired(now time.Time) bool {
	if u.SubscriptionExpiresAt == nil {
		return false
	}
	return now.After(*u.SubscriptionExpiresAt)
}
