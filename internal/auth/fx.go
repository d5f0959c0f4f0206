package auth

import (
	"github.com/cluo0901/roomgpt/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("auth",
	fx.Provide(provideVerifier),
)

func provideVerifier(cfg config.Config) (*Verifier, error) {
	return NewVerifier(cfg.AuthJWTSecret)
}
