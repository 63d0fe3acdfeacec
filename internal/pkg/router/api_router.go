package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/primedrive/backend/app/controllers"
	"github.com/primedrive/backend/internal/pkg/cache"
	"github.com/primedrive/backend/internal/pkg/env"
	"github.com/primedrive/backend/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Storage:    newLimiterStorage(),
	}))

	api.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	v1 := api.Group("/v1")

	// Public catalog and marketplace browsing
	v1.Get("/tiers", controllers.HandleListTiers)
	v1.Get("/listings", controllers.HandleListListings)
	v1.Get("/listings/:id", controllers.HandleGetListing)

	// Gateway callbacks authenticate through payload validation, not tokens
	v1.Post("/webhooks/orange-money", controllers.HandleOrangeMoneyWebhook)

	// Authenticated user surface
	auth := middleware.TokenAuthMiddleware()
	v1.Get("/users/me", auth, controllers.HandleGetProfile)
	v1.Patch("/users/me", auth, controllers.HandleUpdateProfile)

	v1.Get("/subscriptions/status", auth, controllers.HandleSubscriptionStatus)
	v1.Post("/subscriptions/initiate", auth, controllers.HandleInitiatePayment)
	v1.Get("/subscriptions/payments", auth, controllers.HandleListPayments)
	v1.Get("/subscriptions/payments/:id", auth, controllers.HandleCheckPayment)
	v1.Post("/subscriptions/payments/:id/confirm", auth, controllers.HandleConfirmPayment)

	v1.Post("/listings", auth, controllers.HandleCreateListing)
	v1.Get("/my/listings", auth, controllers.HandleMyListings)
	v1.Patch("/listings/:id", auth, controllers.HandleUpdateListing)
	v1.Delete("/listings/:id", auth, controllers.HandleDeleteListing)

	// Back-office surface
	admin := v1.Group("/admin", middleware.AdminMiddleware())
	admin.Get("/payments", controllers.HandleAdminListPayments)
	admin.Post("/payments/:id/approve", controllers.HandleAdminApprovePayment)
	admin.Post("/payments/:id/reject", controllers.HandleAdminRejectPayment)
	admin.Post("/payments/expire-stale", controllers.HandleAdminExpireStalePending)
	admin.Post("/subscriptions/downgrade-expired", controllers.HandleAdminDowngradeExpired)
	admin.Post("/subscriptions/grant", controllers.HandleAdminGrantTier)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

// newLimiterStorage backs the rate limiter with Redis so counters survive
// restarts and are shared between instances. Uses a separate database from
// the application cache.
func newLimiterStorage() *redisstorage.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient := cache.GetClient(); cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}
