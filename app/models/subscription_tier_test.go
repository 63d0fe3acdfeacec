package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionTierIsFree(t *testing.T) {
	free := &SubscriptionTier{Name: TIER_FREE, PricePula: 0}
	basic := &SubscriptionTier{Name: TIER_BASIC, PricePula: 50}

	assert.True(t, free.IsFree())
	assert.False(t, basic.IsFree())
}

func TestSubscriptionTierAllowsListing(t *testing.T) {
	limit := 3
	basic := &SubscriptionTier{Name: TIER_BASIC, ListingLimit: &limit}

	assert.True(t, basic.AllowsListing(0))
	assert.True(t, basic.AllowsListing(2))
	assert.False(t, basic.AllowsListing(3))
	assert.False(t, basic.AllowsListing(4))

	premium := &SubscriptionTier{Name: TIER_PREMIUM, ListingLimit: nil}
	assert.True(t, premium.AllowsListing(10000))
}

func TestTierFeatures(t *testing.T) {
	for _, name := range []string{TIER_FREE, TIER_BASIC, TIER_STANDARD, TIER_PREMIUM} {
		assert.NotEmpty(t, TierFeatures(name), "expected features for tier %s", name)
	}
	assert.Empty(t, TierFeatures("enterprise"))
}
