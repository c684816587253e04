package server

import (
	"github.com/Kyz7/warranty/internal/auth"
	"github.com/Kyz7/warranty/internal/storage"
	"github.com/Kyz7/warranty/internal/user"
	"github.com/Kyz7/warranty/internal/warranty"
	"github.com/gofiber/fiber/v2"
)

// Deps is everything the HTTP layer needs, built once in main.
type Deps struct {
	APIPrefix      string
	AllowedOrigins string
	CookieSecure   bool

	Auth       *auth.Service
	Users      *user.Service
	Warranties *warranty.Service
	Files      storage.Storage

	// Requests per window on /auth and on sign-in; 0 disables the limit.
	AuthRateLimit   int
	SignInRateLimit int
	// LimiterStorage is nil for the limiter's in-memory default.
	LimiterStorage fiber.Storage
}

func New(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: warranty.MaxInvoiceSize + 2*1024*1024,
	})

	if local, ok := deps.Files.(*storage.Local); ok {
		app.Static("/uploads", local.BaseDir(), fiber.Static{
			Compress:  true,
			ByteRange: true,
			Browse:    false,
			MaxAge:    3600,
		})
	}

	SetupRoutes(app, deps)

	return app
}
