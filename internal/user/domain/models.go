// Package domain contains the account records generations are billed to.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is one authenticated account.
type User struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Email     string       `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Name      *string      `gorm:"type:text" json:"name"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

var (
	ErrNotFound     = errors.New("user_not_found")
	ErrInvalidEmail = errors.New("invalid_email")
)
