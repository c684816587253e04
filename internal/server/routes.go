package server

import (
	"time"

	"github.com/Kyz7/warranty/internal/auth"
	"github.com/Kyz7/warranty/internal/models"
	"github.com/Kyz7/warranty/internal/user"
	"github.com/Kyz7/warranty/internal/warranty"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func SetupRoutes(app *fiber.App, deps Deps) {
	// Middleware
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     deps.AllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Content-Range, Range, X-Requested-With",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS, PATCH",
		ExposeHeaders:    fiber.HeaderContentRange,
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Warranty API is running",
		})
	})

	api := app.Group(deps.APIPrefix)

	// API reference (JSON) and the generated OpenAPI document
	api.Get("/docs", apiReferenceHandler(deps.APIPrefix))
	api.Get("/swagger/docs", openAPIHandler(deps.APIPrefix))

	authHandler := auth.NewHandler(deps.Auth, deps.CookieSecure)
	jwt := auth.JWTProtected(deps.Auth)

	// ==========================================
	// AUTH ROUTES (No authentication required)
	// ==========================================
	authGroup := api.Group("/auth", rateLimit(deps.AuthRateLimit, 1*time.Minute, deps.LimiterStorage, nil))
	authGroup.Post("/signup", authHandler.SignUp)
	authGroup.Post("/signin", rateLimit(deps.SignInRateLimit, 15*time.Minute, deps.LimiterStorage, func(c *fiber.Ctx) string {
		return "signin:" + c.IP()
	}), authHandler.SignIn)
	authGroup.Post("/signin-admin", authHandler.SignInAdmin)
	authGroup.Post("/refresh-token", authHandler.RefreshToken)
	authGroup.Get("/refresh-token-admin", authHandler.RefreshTokenAdmin)
	authGroup.Post("/logout", authHandler.Logout)
	authGroup.Get("/logout-admin", authHandler.LogoutAdmin)
	authGroup.Post("/forgot-password", authHandler.ForgotPassword)
	authGroup.Post("/reset-password", authHandler.ResetPassword)

	// ==========================================
	// USERS (admin, or the user themselves)
	// ==========================================
	userHandler := user.NewHandler(deps.Users)
	userGroup := api.Group("/users", jwt)
	userGroup.Get("/", auth.RoleProtected(models.RoleAdmin), userHandler.List)
	userGroup.Get("/:id", auth.RoleProtected(models.RoleAdmin, models.RoleUser), userHandler.Get)
	userGroup.Put("/:id", auth.RoleProtected(models.RoleAdmin, models.RoleUser), userHandler.Update)
	userGroup.Delete("/:id", auth.RoleProtected(models.RoleAdmin, models.RoleUser), userHandler.Delete)

	// ==========================================
	// WARRANTIES
	// ==========================================
	warrantyHandler := warranty.NewHandler(deps.Warranties)
	warrantyGroup := api.Group("/warranties", jwt)
	warrantyGroup.Post("/", auth.RoleProtected(models.RoleUser), warrantyHandler.Create)
	warrantyGroup.Get("/mine", auth.RoleProtected(models.RoleUser), warrantyHandler.FindMine)
	warrantyGroup.Get("/", auth.RoleProtected(models.RoleAdmin), warrantyHandler.FindAll)
	warrantyGroup.Get("/:id", auth.RoleProtected(models.RoleAdmin, models.RoleUser), warrantyHandler.FindOne)
	warrantyGroup.Put("/:id", auth.RoleProtected(models.RoleAdmin), warrantyHandler.Update)
	warrantyGroup.Delete("/:id", auth.RoleProtected(models.RoleAdmin), warrantyHandler.Remove)
}

// rateLimit returns a pass-through handler when limit is not positive.
func rateLimit(limit int, expiration time.Duration, storage fiber.Storage, key func(*fiber.Ctx) string) fiber.Handler {
	if limit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	cfg := limiter.Config{
		Max:        limit,
		Expiration: expiration,
		Storage:    storage,
	}
	if key != nil {
		cfg.KeyGenerator = key
	}
	return limiter.New(cfg)
}
