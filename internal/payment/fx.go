package payment

import (
	"github.com/cluo0901/roomgpt/internal/config"
	"github.com/cluo0901/roomgpt/internal/payment/adapters/stripe"
	paymentdomain "github.com/cluo0901/roomgpt/internal/payment/domain"
	"github.com/cluo0901/roomgpt/internal/payment/repository"
	"github.com/cluo0901/roomgpt/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(provideAdapter),
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

func provideAdapter(cfg config.Config) (paymentdomain.Adapter, error) {
	return stripe.NewAdapter(cfg.Stripe.WebhookSecret)
}
