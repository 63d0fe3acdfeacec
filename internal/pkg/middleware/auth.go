package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/primedrive/backend/app/models"
	"github.com/primedrive/backend/app/repository"
	"github.com/primedrive/backend/internal/pkg/cache"
	"github.com/primedrive/backend/internal/pkg/env"
	"github.com/primedrive/backend/internal/pkg/identity"
	"github.com/primedrive/backend/internal/pkg/usercontext"
)

const tokenCacheTTL = 5 * time.Minute

var errUnauthorized = errors.New("unauthorized")

// TokenAuthMiddleware authenticates requests carrying an identity-provider
// access token. Verified tokens are cached briefly so hot clients do not hit
// the provider on every request.
func TokenAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := resolveUser(c)
		if err != nil {
			return authErrorResponse(c, err)
		}
		if !user.IsActive() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "User account is disabled"})
		}

		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     user.ID,
			Email:      user.Email,
			IsLoggedIn: true,
			IsAdmin:    user.IsAdmin,
		})
		return c.Next()
	}
}

// AdminMiddleware guards back-office endpoints. It accepts either the shared
// service key (cron triggers, ops tooling) or an access token belonging to an
// admin account.
func AdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if serviceKey := strings.TrimSpace(c.Get("X-Service-Key")); serviceKey != "" {
			configured := env.GetEnv("ADMIN_SERVICE_KEY", "")
			if configured == "" || subtle.ConstantTimeCompare([]byte(serviceKey), []byte(configured)) != 1 {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid service key"})
			}
			usercontext.SetUserContext(c, usercontext.UserContext{
				IsLoggedIn: true,
				IsAdmin:    true,
				IsService:  true,
			})
			return c.Next()
		}

		user, err := resolveUser(c)
		if err != nil {
			return authErrorResponse(c, err)
		}
		if !user.IsActive() || !user.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Admin access required"})
		}

		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     user.ID,
			Email:      user.Email,
			IsLoggedIn: true,
			IsAdmin:    true,
		})
		return c.Next()
	}
}

// resolveUser turns a bearer token into the local user record, creating the
// record on first sight of a verified identity.
func resolveUser(c *fiber.Ctx) (*models.User, error) {
	token := extractBearerToken(c)
	if token == "" {
		return nil, errUnauthorized
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	cacheKey := tokenCacheKey(token)

	if userID, err := cache.Get(cacheKey); err == nil && userID != "" {
		if user, err := repo.GetByID(userID); err == nil {
			return user, nil
		}
	}

	ident, err := identity.GetClient().VerifyToken(c.Context(), token)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return nil, errUnauthorized
		}
		return nil, err
	}

	user, err := repo.GetOrCreate(ident.ID, ident.Email)
	if err != nil {
		return nil, err
	}

	if err := cache.Set(cacheKey, user.ID, tokenCacheTTL); err != nil {
		log.Warnf("token cache write failed: %v", err)
	}
	return user, nil
}

func authErrorResponse(c *fiber.Ctx, err error) error {
	if errors.Is(err, errUnauthorized) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid access token"})
	}
	log.Errorf("authentication failed: %v", err)
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "service_unavailable", "message": "Authentication temporarily unavailable"})
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// tokenCacheKey hashes the token so raw credentials never appear in Redis.
func tokenCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:token:" + hex.EncodeToString(sum[:])
}
