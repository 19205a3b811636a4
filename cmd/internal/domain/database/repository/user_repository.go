package repository

import (
	"context"
	"errors"
	"telenotes/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

type DefaultUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *DefaultUserRepository {
	return &DefaultUserRepository{db: db}
}

func (u *DefaultUserRepository) FindByTelegramID(ctx context.Context, telegramID string) (*entity.User, error) {
	var user entity.User
	err := u.db.WithContext(ctx).
		Where("telegram_id = ?", telegramID).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *DefaultUserRepository) ExistsByTelegramID(ctx context.Context, telegramID string) (bool, error) {
	var count int64
	err := u.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("telegram_id = ?", telegramID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new user. A concurrent insert with the same telegram ID
// surfaces as gorm.ErrDuplicatedKey.
func (u *DefaultUserRepository) Create(ctx context.Context, user *entity.User) error {
	return u.db.WithContext(ctx).Omit("Notes").Create(user).Error
}
