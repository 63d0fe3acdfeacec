package models

import "time"

// Tier catalog names. The catalog itself lives in the database (seeded by
// migrations); these constants exist for the tiers the code references directly.
const (
	TIER_FREE     = "free"
	TIER_BASIC    = "basic"
	TIER_STANDARD = "standard"
	TIER_PREMIUM  = "premium"
)

// SubscriptionTier is an immutable catalog entry bounding how many active
// listings a subscriber may hold. A nil ListingLimit means unlimited.
type SubscriptionTier struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	Name         string    `gorm:"uniqueIndex;type:varchar(50);not null" json:"name" validate:"required,min=2,max=50"`
	PricePula    int       `gorm:"not null;default:0" json:"price_pula" validate:"gte=0"`
	ListingLimit *int      `gorm:"default:null" json:"listing_limit"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"-"`
}

// IsFree reports whether the tier requires no payment. The free tier never
// expires and never carries a subscription expiry timestamp.
func (t *SubscriptionTier) IsFree() bool {
	return t.PricePula == 0
}

// AllowsListing reports whether a user on this tier may create another listing
// given their current number of active listings.
func (t *SubscriptionTier) AllowsListing(activeCount int) bool {
	if t.ListingLimit == nil {
		return true
	}
	return activeCount < *t.ListingLimit
}

// TierFeatures returns the marketing feature list shown alongside a tier.
func TierFeatures(name string) []string {
	switch name {
	case TIER_FREE:
		return []string{"1 active listing", "Never expires", "WhatsApp support"}
	case TIER_BASIC:
		return []string{"3 active listings", "30-day validity", "Priority WhatsApp support", "Edit listings"}
	case TIER_STANDARD:
		return []string{"10 active listings", "30-day validity", "Priority support", "Featured badge"}
	case TIER_PREMIUM:
		return []string{"Unlimited listings", "30-day validity", "Top placement", "Verified badge", "24/7 support"}
	default:
		return []string{}
	}
}
