package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/primedrive/backend/internal/pkg/subscription"
)

type orangeMoneyCallback struct {
	NotifToken string  `json:"notif_token"`
	OrderID    string  `json:"order_id"`
	Status     string  `json:"status"`
	TxnID      string  `json:"txnid"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
}

// HandleOrangeMoneyWebhook ingests Orange Money payment notifications. The
// raw payload is stored before processing so redeliveries are detected and
// every callback stays auditable even when processing fails.
func HandleOrangeMoneyWebhook(c *fiber.Ctx) error {
	var cb orangeMoneyCallback
	if err := c.BodyParser(&cb); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid callback payload"})
	}
	if strings.TrimSpace(cb.OrderID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "order_id is required"})
	}

	svc := ledger()

	created, event, err := svc.RecordWebhookEvent(c.Context(), "orange_money", cb.NotifToken, cb.OrderID, string(c.Body()))
	if err != nil {
		return serviceError(c, err)
	}
	if !created && event.ProcessingSettled() {
		return c.JSON(fiber.Map{"status": "already_received"})
	}

	outcome, _, err := svc.HandleCallback(c.Context(), subscription.CallbackInput{
		OrderID:              cb.OrderID,
		Status:               cb.Status,
		GatewayTransactionID: cb.TxnID,
		Amount:               cb.Amount,
		Currency:             cb.Currency,
	})
	if err != nil {
		if markErr := svc.MarkWebhookProcessed(c.Context(), event.ID, err.Error()); markErr != nil {
			log.Errorf("failed to mark webhook %d: %v", event.ID, markErr)
		}
		if errors.Is(err, subscription.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown order"})
		}
		return serviceError(c, err)
	}

	if err := svc.MarkWebhookProcessed(c.Context(), event.ID, ""); err != nil {
		log.Errorf("failed to mark webhook %d: %v", event.ID, err)
	}
	return c.JSON(fiber.Map{"status": string(outcome)})
}
