package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/cluo0901/roomgpt/internal/auth"
	"github.com/cluo0901/roomgpt/internal/billing"
	"github.com/cluo0901/roomgpt/internal/checkout"
	"github.com/cluo0901/roomgpt/internal/config"
	"github.com/cluo0901/roomgpt/internal/generation"
	"github.com/cluo0901/roomgpt/internal/migration"
	"github.com/cluo0901/roomgpt/internal/observability"
	"github.com/cluo0901/roomgpt/internal/payment"
	"github.com/cluo0901/roomgpt/internal/ratelimit"
	"github.com/cluo0901/roomgpt/internal/server"
	"github.com/cluo0901/roomgpt/internal/usage"
	"github.com/cluo0901/roomgpt/internal/user"
	"github.com/cluo0901/roomgpt/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		// Functional domains
		auth.Module,
		user.Module,
		usage.Module,
		billing.Module,
		payment.Module,
		checkout.Module,
		generation.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
