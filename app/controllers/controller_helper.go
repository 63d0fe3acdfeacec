package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/primedrive/backend/internal/pkg/database"
	"github.com/primedrive/backend/internal/pkg/orangemoney"
	"github.com/primedrive/backend/internal/pkg/subscription"
)

// ledger builds the subscription service for a request. Construction is cheap;
// the expensive pieces (DB pool, gateway token cache) are process singletons.
func ledger() *subscription.Service {
	return subscription.NewServiceFromDB(database.GetDB(), orangemoney.GetClient(), subscription.ConfigFromEnv())
}

// serviceError maps ledger errors to HTTP responses.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, subscription.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Resource not found"})
	case errors.Is(err, subscription.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	case errors.Is(err, subscription.ErrGatewayUnavailable):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "gateway_unavailable", "message": "Payment gateway unavailable"})
	default:
		log.Errorf("request failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Something went wrong"})
	}
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
