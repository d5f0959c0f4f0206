package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository appends to and reads from the usage log.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *UsageEvent) error
	ListRecent(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]UsageEvent, error)
}
