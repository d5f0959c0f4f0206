// Package domain contains the append-only generation usage log.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// UsageEvent records one completed generation. Rows are never updated or
// deleted; the log backs auditing and the admin dashboard.
type UsageEvent struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID          snowflake.ID      `gorm:"not null;index:ix_usage_events_user_created" json:"user_id"`
	PlanType        *string           `gorm:"type:text" json:"plan_type"`
	Provider        string            `gorm:"type:text;not null" json:"provider"`
	Approach        string            `gorm:"type:text;not null" json:"approach"`
	CreditsConsumed int64             `gorm:"not null;default:1" json:"credits_consumed"`
	Seed            *int64            `json:"seed"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_usage_events_user_created,sort:desc" json:"created_at"`
}

// TableName sets the database table name.
func (UsageEvent) TableName() string { return "usage_events" }
