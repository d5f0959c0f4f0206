package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository accesses user rows.
type Repository interface {
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	// Ensure upserts the user row so foreign keys from billing tables hold.
	Ensure(ctx context.Context, db *gorm.DB, user *User) error
}
