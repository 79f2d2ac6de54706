package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/chatty/chat-server/internal/api/metrics"
	"github.com/chatty/chat-server/internal/core/domain"
	"github.com/chatty/chat-server/internal/core/ports"
)

// RateLimit limits requests per client IP with a shared limiter (Redis in
// production). When the limiter itself fails the request is let through.
func RateLimit(limiter ports.RateLimiter, name string, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			allowed, retryIn, err := limiter.Allow(c.Request().Context(), c.RealIP())
			if err != nil {
				log.Warn().Err(err).Str("limiter", name).Msg("rate limiter unavailable, allowing request")
				return next(c)
			}
			if !allowed {
				metrics.RateLimitedTotal.WithLabelValues(name).Inc()
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryIn.Seconds()))))
				return domain.ErrRateLimited
			}
			return next(c)
		}
	}
}

// APIRateLimitConfig configures the in-process limiter for the messages API.
type APIRateLimitConfig struct {
	// Requests allowed per Window for one user.
	Requests int
	Window   time.Duration
}

// APIRateLimit limits requests per authenticated user (falling back to the
// client IP) with echo's in-memory token bucket store.
func APIRateLimit(cfg APIRateLimitConfig) echo.MiddlewareFunc {
	if cfg.Requests <= 0 {
		cfg.Requests = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}

	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
		Burst:     cfg.Requests,
		ExpiresIn: cfg.Window,
	})

	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if id, _ := c.Get("user_id").(string); id != "" {
				return "user:" + id, nil
			}
			return "ip:" + c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			metrics.RateLimitedTotal.WithLabelValues("api").Inc()
			return domain.ErrRateLimited
		},
	})
}
