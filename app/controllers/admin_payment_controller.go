package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/primedrive/backend/app/models"
	"github.com/primedrive/backend/app/repository"
	"github.com/primedrive/backend/internal/pkg/subscription"
)

// HandleAdminListPayments returns all transactions awaiting review.
func HandleAdminListPayments(c *fiber.Ctx) error {
	txns, err := ledger().ListReviewableTransactions(c.Context())
	if err != nil {
		return serviceError(c, err)
	}

	out := make([]fiber.Map, 0, len(txns))
	for i := range txns {
		entry := paymentResponse(&txns[i])
		entry["user_id"] = txns[i].UserID
		entry["user_payment_reference"] = txns[i].UserPaymentReference
		out = append(out, entry)
	}
	return c.JSON(fiber.Map{"transactions": out})
}

type adminReviewRequest struct {
	Notes string `json:"notes"`
}

// HandleAdminApprovePayment completes a reviewable transaction and activates
// the paid tier.
func HandleAdminApprovePayment(c *fiber.Ctx) error {
	var req adminReviewRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	txn, err := ledger().AdminApprove(c.Context(), c.Params("id"), strings.TrimSpace(req.Notes))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"transaction": paymentResponse(txn), "message": "Payment approved"})
}

// HandleAdminRejectPayment fails a reviewable transaction without activation.
func HandleAdminRejectPayment(c *fiber.Ctx) error {
	var req adminReviewRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	txn, err := ledger().AdminReject(c.Context(), c.Params("id"), strings.TrimSpace(req.Notes))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"transaction": paymentResponse(txn), "message": "Payment rejected"})
}

// HandleAdminExpireStalePending sweeps pending transactions past the
// staleness window. Exposed for cron triggers alongside the in-process worker.
func HandleAdminExpireStalePending(c *fiber.Ctx) error {
	swept, err := ledger().ExpireStalePending(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"swept": swept})
}

// HandleAdminDowngradeExpired bulk-downgrades users whose subscriptions have
// lapsed.
func HandleAdminDowngradeExpired(c *fiber.Ctx) error {
	changed, err := ledger().DowngradeExpired(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"downgraded": changed})
}

// HandleAdminGrantTier manually assigns a tier to a user, bypassing payment.
// Used for promotions and support escalations.
func HandleAdminGrantTier(c *fiber.Ctx) error {
	var req struct {
		UserID string `json:"user_id"`
		Tier   string `json:"tier"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	tier, err := findTier(strings.ToLower(strings.TrimSpace(req.Tier)))
	if err != nil {
		return serviceError(c, err)
	}

	expiry, err := ledger().Activate(c.Context(), req.UserID, tier.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"user_id":    req.UserID,
		"tier":       tier.Name,
		"expires_at": formatTimePtr(&expiry),
	})
}

func findTier(name string) (*models.SubscriptionTier, error) {
	tier, err := repository.GetGlobalFactory().GetTierRepository().GetByName(name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscription.ErrNotFound
		}
		return nil, err
	}
	return tier, nil
}
