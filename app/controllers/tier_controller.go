package controllers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/primedrive/backend/app/models"
	"github.com/primedrive/backend/app/repository"
	"github.com/primedrive/backend/internal/pkg/cache"
)

const (
	tierCacheKey = "tiers:catalog"
	tierCacheTTL = 5 * time.Minute
)

type tierResponse struct {
	Name         string   `json:"name"`
	PricePula    int      `json:"price_pula"`
	ListingLimit *int     `json:"listing_limit"`
	Features     []string `json:"features"`
}

// HandleListTiers returns the subscription tier catalog. The catalog only
// changes via migrations, so responses are cached in Redis.
func HandleListTiers(c *fiber.Ctx) error {
	if cached, err := cache.Get(tierCacheKey); err == nil && cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	tiers, err := repository.GetGlobalFactory().GetTierRepository().List()
	if err != nil {
		return serviceError(c, err)
	}

	out := make([]tierResponse, 0, len(tiers))
	for _, tier := range tiers {
		out = append(out, tierResponse{
			Name:         tier.Name,
			PricePula:    tier.PricePula,
			ListingLimit: tier.ListingLimit,
			Features:     models.TierFeatures(tier.Name),
		})
	}

	response := fiber.Map{"tiers": out}
	if payload, err := json.Marshal(response); err == nil {
		if err := cache.Set(tierCacheKey, string(payload), tierCacheTTL); err != nil {
			log.Warnf("tier cache write failed: %v", err)
		}
	}
	return c.JSON(response)
}
