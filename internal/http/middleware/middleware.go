// Package middleware registers the global fiber middleware stack.
package middleware

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"
	"github.com/rs/xid"

	"itinerary-pdf/internal/config"
	"itinerary-pdf/internal/infra/logging"
)

// RateLimitStore returns the storage shared by the limiters: Redis when a
// host is configured and reachable, memory otherwise.
func RateLimitStore(cfg config.Config) (store fiber.Storage) {
	store = memoryStorage.New()
	if cfg.Redis.Host == "" {
		return store
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Redis limiter store init panicked, falling back to memory", "panic", r)
		}
	}()
	store = redisStorage.New(redisStorage.Config{
		Addrs:    []string{cfg.Redis.Host},
		Database: cfg.Redis.RateLimitDB,
	})
	logging.Info("Using Redis for rate limiting", "addr", cfg.Redis.Host, "db", cfg.Redis.RateLimitDB)
	return store
}

func clientKey(c *fiber.Ctx) string {
	sum := sha256.Sum256([]byte(c.IP() + c.Get("User-Agent")))
	return hex.EncodeToString(sum[:])
}

// userRateLimit limits requests per client (IP + User-Agent). A non-positive
// user_limit disables it.
func userRateLimit(cfg config.Config, store fiber.Storage) fiber.Handler {
	if cfg.RateLimiter.UserLimit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:               cfg.RateLimiter.UserLimit,
		Expiration:        cfg.RateLimiter.Interval,
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           store,
		KeyGenerator:      clientKey,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		LimitReached: func(c *fiber.Ctx) error {
			logging.Warn("Rate limit exceeded", "user", clientKey(c), "path", c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    fiber.StatusTooManyRequests,
					"message": "Too Many Requests",
				},
			})
		},
	})
}

// Register attaches the global middleware to app. A nil store selects an
// in-memory limiter store.
func Register(app *fiber.App, cfg config.Config, store fiber.Storage) {
	if store == nil {
		store = memoryStorage.New()
	}

	app.Use(fiberrecover.New())
	app.Use(cors.New())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(healthcheck.New(healthcheck.Config{
		LivenessEndpoint:  "/ops/health",
		ReadinessEndpoint: "/ops/ready",
	}))

	app.Use(userRateLimit(cfg, store))

	app.Use(func(c *fiber.Ctx) error {
		requestID := c.GetRespHeader(fiber.HeaderXRequestID)
		logging.Info("Incoming request", "method", c.Method(), "path", c.Path(), "request_id", requestID)
		return c.Next()
	})
}
