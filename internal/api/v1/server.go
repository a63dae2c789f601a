package v1

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"projectmanager/internal/api/v1/handlers"
	"projectmanager/internal/middleware"
)

type ServerOptions struct {
	CORSOrigins string
	// RateLimitMax <= 0 disables the limiter.
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// NewApp builds the Fiber app with the middleware chain and every route.
func NewApp(h *handlers.Handler, auth middleware.Authenticator, opts ServerOptions) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "projectmanager",
		ErrorHandler: middleware.HandleError,
	})

	app.Use(middleware.ErrorHandler())
	origins := opts.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	if opts.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        opts.RateLimitMax,
			Expiration: opts.RateLimitWindow,
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests")
			},
		}))
	}

	RegisterRoutes(app, h, auth)
	return app
}
