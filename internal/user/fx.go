package user

import (
	"github.com/cluo0901/roomgpt/internal/user/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("user",
	fx.Provide(repository.Provide),
)
