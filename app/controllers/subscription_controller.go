package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/primedrive/backend/app/models"
	"github.com/primedrive/backend/internal/pkg/usercontext"
)

// HandleSubscriptionStatus returns the caller's current tier after running
// expiry enforcement.
func HandleSubscriptionStatus(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	enforcement, err := ledger().CheckAndEnforce(c.Context(), userCtx.UserID)
	if err != nil {
		return serviceError(c, err)
	}

	response := fiber.Map{
		"tier":           enforcement.Tier.Name,
		"is_active":      enforcement.IsActive,
		"expires_at":     formatTimePtr(enforcement.ExpiresAt),
		"was_downgraded": enforcement.WasDowngraded,
	}
	if enforcement.WasDowngraded {
		response["previous_tier"] = enforcement.PreviousTier
	}
	if enforcement.ExpiresAt != nil {
		remaining := time.Until(*enforcement.ExpiresAt)
		if remaining < 0 {
			remaining = 0
		}
		response["days_remaining"] = int(remaining.Hours() / 24)
	}
	return c.JSON(response)
}

type initiatePaymentRequest struct {
	Tier          string `json:"tier"`
	PaymentMethod string `json:"payment_method"`
}

// HandleInitiatePayment starts a payment for a tier upgrade.
func HandleInitiatePayment(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req initiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = models.PAYMENT_METHOD_ORANGE_MONEY
	}

	result, err := ledger().Initiate(c.Context(), userCtx.UserID, strings.ToLower(strings.TrimSpace(req.Tier)), req.PaymentMethod)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"transaction":  paymentResponse(result.Transaction),
		"payment_url":  result.PaymentURL,
		"instructions": result.Message,
	})
}

type confirmPaymentRequest struct {
	PaymentReference string `json:"payment_reference"`
}

// HandleConfirmPayment records the user's claim of having paid, queueing the
// transaction for admin verification.
func HandleConfirmPayment(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req confirmPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	result, err := ledger().Confirm(c.Context(), userCtx.UserID, c.Params("id"), strings.TrimSpace(req.PaymentReference))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"transaction": paymentResponse(result.Transaction),
		"message":     result.Message,
	})
}

// HandleCheckPayment returns a transaction's state, polling the gateway first
// for open Orange Money sessions.
func HandleCheckPayment(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	result, err := ledger().CheckStatus(c.Context(), userCtx.UserID, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"transaction": paymentResponse(result.Transaction),
		"tier":        result.TierName,
		"message":     result.Message,
	})
}

// HandleListPayments returns the caller's payment history.
func HandleListPayments(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	txns, err := ledger().ListTransactions(c.Context(), userCtx.UserID, c.QueryInt("limit", 50))
	if err != nil {
		return serviceError(c, err)
	}

	out := make([]fiber.Map, 0, len(txns))
	for i := range txns {
		out = append(out, paymentResponse(&txns[i]))
	}
	return c.JSON(fiber.Map{"transactions": out})
}

func paymentResponse(txn *models.PaymentTransaction) fiber.Map {
	return fiber.Map{
		"id":             txn.ID,
		"tier":           txn.Tier.Name,
		"amount_pula":    txn.AmountPula,
		"payment_method": txn.PaymentMethod,
		"reference":      txn.TransactionReference,
		"status":         txn.Status,
		"created_at":     txn.CreatedAt.UTC().Format(time.RFC3339),
		"completed_at":   formatTimePtr(txn.CompletedAt),
	}
}
