package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Kyz7/warranty/internal/auth"
	"github.com/Kyz7/warranty/internal/config"
	"github.com/Kyz7/warranty/internal/database"
	"github.com/Kyz7/warranty/internal/events"
	"github.com/Kyz7/warranty/internal/ocr"
	"github.com/Kyz7/warranty/internal/ratelimit"
	"github.com/Kyz7/warranty/internal/server"
	"github.com/Kyz7/warranty/internal/storage"
	"github.com/Kyz7/warranty/internal/user"
	"github.com/Kyz7/warranty/internal/utils"
	"github.com/Kyz7/warranty/internal/warranty"
)

func main() {
	cfg := config.Load()

	if err := utils.ValidateJWTSecret("JWT_SECRET", cfg.JWTSecret); err != nil {
		log.Fatal("❌ JWT Configuration Error: ", err)
	}
	if err := utils.ValidateJWTSecret("JWT_REFRESH_SECRET", cfg.JWTRefreshSecret); err != nil {
		log.Fatal("❌ JWT Configuration Error: ", err)
	}
	if cfg.JWTSecret == cfg.JWTRefreshSecret {
		log.Fatal("❌ JWT Configuration Error: JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	log.Println("✅ JWT secrets validated")

	// ========== DATABASE SETUP ==========
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("❌ Database connection failed:", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal("❌ Migration failed: ", err)
	}
	log.Println("✅ Database migrated successfully")

	log.Println("🔍 Running SQL migrations for search indexes...")
	if err := database.RunMigrations(db, "./migrations"); err != nil {
		log.Printf("⚠️  SQL migrations failed: %v", err)
		log.Println("⚠️  Search will fall back to sequential scans")
	} else {
		log.Println("✅ SQL migrations completed successfully")
	}

	// ========== STORAGE SETUP ==========
	files := setupStorage(cfg)
	log.Printf("💾 Storage Mode: %s", files.Mode())

	// ========== OCR ==========
	if cfg.MindeeAPIKey == "" {
		log.Println("⚠️  MINDEE_API_KEY not set, every submission goes to manual review")
	}
	decider := warranty.NewDecider(ocr.NewMindeeClient(cfg.MindeeAPIKey, cfg.MindeeURL, cfg.OCRTimeout))

	// ========== EVENTS ==========
	var publisher events.Publisher = events.Nop{}
	if cfg.RabbitMQURL != "" {
		publisher = events.NewAMQPPublisher(cfg.RabbitMQURL)
		log.Printf("📨 Publishing %s events to RabbitMQ", events.QueueWarrantyDecided)
	}

	// ========== SEED DEFAULT DATA ==========
	if _, err := user.SeedAdmin(context.Background(), db, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Println("⚠️  Failed to seed admin:", err)
	}

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authSvc := auth.NewService(auth.NewGormUserStore(db), tokens, cfg.ResetTokenTTL)
	defer authSvc.Close()

	deps := server.Deps{
		APIPrefix:       cfg.APIPrefix,
		AllowedOrigins:  cfg.Origins(),
		CookieSecure:    cfg.CookieSecure,
		Auth:            authSvc,
		Users:           user.NewService(db),
		Warranties:      warranty.NewService(db, decider, files, publisher),
		Files:           files,
		AuthRateLimit:   cfg.AuthRateLimit,
		SignInRateLimit: cfg.SignInRateLimit,
	}

	// ========== RATE LIMIT STORAGE ==========
	if cfg.RedisAddr != "" {
		if client := ratelimit.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); client != nil {
			limiterStorage := ratelimit.New(client)
			defer limiterStorage.Close()
			deps.LimiterStorage = limiterStorage
			log.Printf("✅ Rate limits stored in Redis at %s", cfg.RedisAddr)
		} else {
			log.Println("⚠️  Falling back to in-memory rate limits")
		}
	}

	// ========== START SERVER ==========
	app := server.New(deps)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("🛑 Shutting down...")
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️  Shutdown error: %v", err)
		}
	}()

	log.Printf("🚀 Warranty API starting on %s%s", cfg.ServerAddr, cfg.APIPrefix)
	log.Printf("🔐 JWT Authentication: Enabled")

	if err := app.Listen(cfg.ServerAddr); err != nil {
		log.Fatal("❌ Failed to start server:", err)
	}
}

func setupStorage(cfg *config.Config) storage.Storage {
	if cfg.UseS3 {
		if cfg.S3Bucket != "" && cfg.S3Region != "" {
			s3Store, err := storage.NewS3(cfg.S3Bucket, cfg.S3Region, cfg.CloudFrontURL)
			if err == nil {
				log.Printf("☁️  Using S3: %s (region: %s)", cfg.S3Bucket, cfg.S3Region)
				return s3Store
			}
			log.Println("⚠️  S3 initialization failed:", err)
		} else {
			log.Println("⚠️  USE_S3=true but S3_BUCKET or S3_REGION not configured")
		}
		log.Println("⚠️  Falling back to local storage")
	}

	local, err := storage.NewLocal(cfg.UploadDir)
	if err != nil {
		log.Fatal("❌ Failed to initialize local storage:", err)
	}
	log.Printf("✅ Local storage initialized at %s", cfg.UploadDir)
	return local
}
