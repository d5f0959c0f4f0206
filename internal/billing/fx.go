package billing

import (
	"github.com/cluo0901/roomgpt/internal/billing/repository"
	"github.com/cluo0901/roomgpt/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
