// Package domain describes checkout session creation for plan purchases.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Session is the audit row written for every checkout session handed to a
// user. It links provider session ids back to the purchasing account.
type Session struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"-"`
	UserID    snowflake.ID `gorm:"not null" json:"user_id"`
	SessionID string       `gorm:"type:text;not null;uniqueIndex" json:"session_id"`
	PlanKey   string       `gorm:"type:text;not null" json:"plan_key"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "checkout_sessions" }

// CreateSessionInput identifies the purchaser and the plan to buy.
type CreateSessionInput struct {
	UserID snowflake.ID
	Email  string
	Plan   string
}

// CreateSessionResult carries the provider redirect for the frontend.
type CreateSessionResult struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

var (
	ErrUnknownPlan       = errors.New("unknown_plan")
	ErrPlanNotConfigured = errors.New("plan_not_configured")
	ErrProviderFailure   = errors.New("checkout_provider_failure")
)

// Service creates provider checkout sessions.
type Service interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*CreateSessionResult, error)
}
