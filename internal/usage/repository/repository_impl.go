package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	usagedomain "github.com/cluo0901/roomgpt/internal/usage/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() usagedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *usagedomain.UsageEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.CreditsConsumed == 0 {
		event.CreditsConsumed = 1
	}
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) ListRecent(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]usagedomain.UsageEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	var events []usagedomain.UsageEvent
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
