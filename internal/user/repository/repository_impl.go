package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	userdomain "github.com/cluo0901/roomgpt/internal/user/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() userdomain.Repository {
	return &repo{}
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*userdomain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, userdomain.ErrInvalidEmail
	}

	var user userdomain.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repo) Ensure(ctx context.Context, db *gorm.DB, user *userdomain.User) error {
	if user == nil {
		return userdomain.ErrInvalidEmail
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" {
		return userdomain.ErrInvalidEmail
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "updated_at"}),
	}).Create(user).Error
}
