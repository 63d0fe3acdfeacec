package controllers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/primedrive/backend/app/models"
	"github.com/primedrive/backend/app/repository"
	"github.com/primedrive/backend/internal/pkg/usercontext"
)

// HandleCreateListing creates a car listing after enforcing the caller's tier
// quota. Expired subscriptions are downgraded before the quota check, so a
// lapsed premium user is held to the free tier limit.
func HandleCreateListing(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var listing models.CarListing
	if err := c.BodyParser(&listing); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	listing.ID = uuid.New().String()
	listing.UserID = userCtx.UserID
	listing.Status = models.LISTING_STATUS_ACTIVE
	if err := listing.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}

	enforcement, err := ledger().CheckAndEnforce(c.Context(), userCtx.UserID)
	if err != nil {
		return serviceError(c, err)
	}

	listingRepo := repository.GetGlobalFactory().GetListingRepository()
	activeCount, err := listingRepo.CountActiveByUserID(userCtx.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	if !enforcement.Tier.AllowsListing(int(activeCount)) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "quota_exceeded",
			"message": fmt.Sprintf(
				"Your %s tier allows %d active listings. Upgrade to add more.",
				enforcement.Tier.Name, *enforcement.Tier.ListingLimit,
			),
		})
	}

	if err := listingRepo.Create(&listing); err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(listing)
}

// HandleListListings returns active listings, newest first.
func HandleListListings(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	listings, total, err := repository.GetGlobalFactory().GetListingRepository().ListActive(offset, limit)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"listings": listings,
		"total":    total,
		"offset":   offset,
		"limit":    limit,
	})
}

// HandleMyListings returns the caller's listings regardless of status.
func HandleMyListings(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	listings, err := repository.GetGlobalFactory().GetListingRepository().GetByUserID(userCtx.UserID, c.QueryInt("offset", 0), limit)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"listings": listings})
}

// HandleGetListing returns one listing. Non-active listings are visible only
// to their owner and admins.
func HandleGetListing(c *fiber.Ctx) error {
	listing, err := loadListing(c)
	if err != nil {
		return listingErrorResponse(c, err)
	}

	userCtx := usercontext.GetUserContext(c)
	if listing.Status != models.LISTING_STATUS_ACTIVE && listing.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Listing not found"})
	}
	return c.JSON(listing)
}

// HandleUpdateListing applies owner edits to a listing.
func HandleUpdateListing(c *fiber.Ctx) error {
	listing, err := loadListing(c)
	if err != nil {
		return listingErrorResponse(c, err)
	}

	userCtx := usercontext.GetUserContext(c)
	if listing.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Listing not found"})
	}

	var patch models.CarListing
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	// Identity and ownership fields are not editable.
	patch.ID = listing.ID
	patch.UserID = listing.UserID
	patch.Status = listing.Status
	patch.CreatedAt = listing.CreatedAt
	if err := patch.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}

	if err := repository.GetGlobalFactory().GetListingRepository().Update(&patch); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(patch)
}

// HandleDeleteListing soft-removes a listing, freeing quota.
func HandleDeleteListing(c *fiber.Ctx) error {
	listing, err := loadListing(c)
	if err != nil {
		return listingErrorResponse(c, err)
	}

	userCtx := usercontext.GetUserContext(c)
	if listing.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Listing not found"})
	}

	if err := repository.GetGlobalFactory().GetListingRepository().MarkRemoved(listing.ID); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"status": "removed"})
}

func loadListing(c *fiber.Ctx) (*models.CarListing, error) {
	return repository.GetGlobalFactory().GetListingRepository().GetByID(c.Params("id"))
}

func listingErrorResponse(c *fiber.Ctx, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Listing not found"})
	}
	return serviceError(c, err)
}
