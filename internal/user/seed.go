package user

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Kyz7/warranty/internal/models"
	"github.com/Kyz7/warranty/internal/utils"
	"gorm.io/gorm"
)

// SeedAdmin creates the bootstrap administrator when ADMIN_EMAIL is set and no
// user owns that address yet. It reports whether a user was created.
func SeedAdmin(ctx context.Context, db *gorm.DB, username, email, password string) (bool, error) {
	if email == "" || password == "" {
		log.Println("⚠️  ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed")
		return false, nil
	}

	var existing models.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		log.Printf("ℹ️  Admin %s already exists", email)
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.User{
		Username: username,
		Email:    email,
		Password: hash,
		Roles:    []string{models.RoleUser, models.RoleAdmin},
		Bio:      models.DefaultBio(),
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}

	log.Printf("✅ Admin user %s created", email)
	return true, nil
}
