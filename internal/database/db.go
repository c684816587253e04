package database

import (
	"fmt"
	"log"

	"github.com/Kyz7/warranty/internal/config"
	"github.com/Kyz7/warranty/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

// Migrate creates the warranty_status enum and auto-migrates every model.
func Migrate(db *gorm.DB) error {
	if err := models.EnsureEnum(db); err != nil {
		return fmt.Errorf("create warranty_status enum: %w", err)
	}
	return AutoMigrate(db)
}

// AutoMigrate only runs GORM's schema migration; tests on SQLite use it directly.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Warranty{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Println("Database migrated successfully!")
	return nil
}
