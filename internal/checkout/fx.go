package checkout

import (
	"github.com/cluo0901/roomgpt/internal/checkout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("checkout",
	fx.Provide(service.NewService),
)
