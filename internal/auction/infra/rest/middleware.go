package rest

import (
	"errors"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/auction/domain"
	"github.com/cristianortiz/pigeonAuction/internal/shared/cache"
	userdomain "github.com/cristianortiz/pigeonAuction/internal/user/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// HeaderUserID is set by the auth gateway in front of the service
	HeaderUserID = "X-User-ID"
	localsUser   = "user"
)

// Identity loads the caller from X-User-ID. Requests without the header go on
// as anonymous, handlers that need a user call currentUser.
func Identity(users userdomain.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(HeaderUserID)
		if raw == "" {
			return c.Next()
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return JSONError(c, fiber.StatusUnauthorized, errUnauthenticated, "invalid user id")
		}
		u, err := users.GetByID(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, userdomain.ErrUserNotFound) {
				return JSONError(c, fiber.StatusUnauthorized, errUnauthenticated, "unknown user")
			}
			log.Error("Identity: failed to load user", zap.String("userID", raw), zap.Error(err))
			return JSONError(c, fiber.StatusServiceUnavailable, err, "temporarily unavailable, try again")
		}
		c.Locals(localsUser, u)
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) (*userdomain.User, error) {
	u, ok := c.Locals(localsUser).(*userdomain.User)
	if !ok || u == nil {
		return nil, errUnauthenticated
	}
	if !u.Active {
		return nil, domain.ErrForbidden
	}
	return u, nil
}

// BidRateLimit limits bids per user. Limiter errors let the request through,
// the rate limit is not worth failing a bid for.
func BidRateLimit(limiter cache.RateLimiter, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil || limit <= 0 {
			return c.Next()
		}
		key := "bid:" + c.IP()
		if u, ok := c.Locals(localsUser).(*userdomain.User); ok && u != nil {
			key = "bid:" + u.ID.String()
		}
		allowed, err := limiter.Allow(c.UserContext(), key, limit, window)
		if err != nil {
			log.Warn("BidRateLimit: limiter unavailable, allowing request", zap.Error(err))
			return c.Next()
		}
		if !allowed {
			status, msg := MapErrorToHTTP(errRateLimited)
			return JSONError(c, status, errRateLimited, msg)
		}
		return c.Next()
	}
}
