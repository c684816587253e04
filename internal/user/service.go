package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/Kyz7/warranty/internal/database"
	"github.com/Kyz7/warranty/internal/models"
	"github.com/Kyz7/warranty/internal/pagination"
	"github.com/Kyz7/warranty/internal/utils"
	"github.com/Kyz7/warranty/internal/validation"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("user not found")

var ListOptions = pagination.Options{
	SortFields: map[string]string{
		"createdAt": "created_at",
		"updatedAt": "updated_at",
		"username":  "username",
		"email":     "email",
	},
	DefaultSort:   "createdAt",
	SearchColumns: []string{"username", "email"},
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) List(ctx context.Context, p pagination.Params) ([]models.User, int64, error) {
	q := pagination.Filter(s.db.WithContext(ctx).Model(&models.User{}), p, ListOptions)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	users := []models.User{}
	if err := pagination.Page(q, p, ListOptions).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Update applies the fields present in req. A new password is rehashed and a
// taken username or email comes back as *database.DuplicateKeyError.
func (s *Service) Update(ctx context.Context, id uint, req validation.UserUpdate) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if req.Username != nil {
		changes["username"] = *req.Username
	}
	if req.Email != nil {
		changes["email"] = *req.Email
	}
	if req.Password != nil {
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		changes["password"] = hash
	}
	if req.Bio != nil {
		if req.Bio.WelcomeMessage != nil {
			changes["bio_welcome_message"] = *req.Bio.WelcomeMessage
		}
		if req.Bio.Avatar != nil {
			changes["bio_avatar"] = *req.Bio.Avatar
		}
	}
	if len(changes) == 0 {
		return u, nil
	}

	if err := s.db.WithContext(ctx).Model(u).Updates(changes).Error; err != nil {
		if dup := database.AsDuplicateKey(err); dup != nil {
			return nil, dup
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes the user and, through the foreign key, their warranties.
func (s *Service) Delete(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Warranty{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}
