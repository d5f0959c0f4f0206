package usage

import (
	"github.com/cluo0901/roomgpt/internal/usage/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("usage",
	fx.Provide(repository.Provide),
)
