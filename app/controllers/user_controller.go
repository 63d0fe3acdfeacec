package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/primedrive/backend/app/repository"
	"github.com/primedrive/backend/internal/pkg/usercontext"
)

// HandleGetProfile returns the authenticated user's account and subscription
// state. Expiry enforcement runs on every read, so a lapsed subscription is
// already downgraded in the response.
func HandleGetProfile(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	account, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
		}
		return serviceError(c, err)
	}

	enforcement, err := ledger().CheckAndEnforce(c.Context(), userCtx.UserID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":         account.ID,
		"email":      account.Email,
		"phone":      account.Phone,
		"whatsapp":   account.WhatsApp,
		"status":     account.Status,
		"created_at": account.CreatedAt.UTC().Format(time.RFC3339),
		"subscription": fiber.Map{
			"tier":           enforcement.Tier.Name,
			"price_pula":     enforcement.Tier.PricePula,
			"listing_limit":  enforcement.Tier.ListingLimit,
			"expires_at":     formatTimePtr(enforcement.ExpiresAt),
			"was_downgraded": enforcement.WasDowngraded,
		},
	})
}

type updateProfileRequest struct {
	Phone    *string `json:"phone"`
	WhatsApp *string `json:"whatsapp"`
}

// HandleUpdateProfile updates the contact fields the backend owns. Email and
// credentials belong to the identity provider and are not editable here.
func HandleUpdateProfile(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		return serviceError(c, err)
	}

	if req.Phone != nil {
		account.Phone = *req.Phone
	}
	if req.WhatsApp != nil {
		account.WhatsApp = *req.WhatsApp
	}
	if err := account.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}
	if err := repo.Update(account); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":       account.ID,
		"phone":    account.Phone,
		"whatsapp": account.WhatsApp,
	})
}
