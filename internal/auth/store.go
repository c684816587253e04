package auth

import (
	"context"
	"errors"
	"time"

	"github.com/Kyz7/warranty/internal/models"
	"gorm.io/gorm"
)

// UserStore is the persistence the session service needs.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByRefreshToken(ctx context.Context, token string) (*models.User, error)
	FindByResetHash(ctx context.Context, hash string) (*models.User, error)
	SetRefreshToken(ctx context.Context, id uint, token *string) error
	SetResetToken(ctx context.Context, id uint, hash string, expiresAt time.Time) error
	// ClearResetToken clears the pending reset only while it still holds hash.
	ClearResetToken(ctx context.Context, id uint, hash string) (bool, error)
	// UpdatePassword stores a new hash and drops any pending reset.
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
}

type GormUserStore struct {
	db *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) Create(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *GormUserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *GormUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.first(ctx, "email = ?", email)
}

func (s *GormUserStore) FindByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	return s.first(ctx, "refresh_token = ?", token)
}

func (s *GormUserStore) FindByResetHash(ctx context.Context, hash string) (*models.User, error) {
	return s.first(ctx, "reset_token = ?", hash)
}

func (s *GormUserStore) first(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where(query, arg).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormUserStore) SetRefreshToken(ctx context.Context, id uint, token *string) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("refresh_token", token).Error
}

func (s *GormUserStore) SetResetToken(ctx context.Context, id uint, hash string, expiresAt time.Time) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reset_token":      hash,
			"reset_expires_at": expiresAt,
		}).Error
}

func (s *GormUserStore) ClearResetToken(ctx context.Context, id uint, hash string) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND reset_token = ?", id, hash).
		Updates(map[string]interface{}{
			"reset_token":      nil,
			"reset_expires_at": nil,
		})
	return result.RowsAffected > 0, result.Error
}

func (s *GormUserStore) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password":         passwordHash,
			"reset_token":      nil,
			"reset_expires_at": nil,
		}).Error
}
