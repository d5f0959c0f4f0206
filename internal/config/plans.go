package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Checkout modes accepted by the payment provider.
const (
	CheckoutModePayment      = "payment"
	CheckoutModeSubscription = "subscription"
)

// Plan describes one purchasable plan key.
type Plan struct {
	Key      string `mapstructure:"key"`
	PriceID  string `mapstructure:"priceId"`
	Mode     string `mapstructure:"mode"`
	Credits  int64  `mapstructure:"credits"`
	PlanType string `mapstructure:"planType"`
}

// PlanCatalog is the full set of purchasable plans.
type PlanCatalog struct {
	Plans []Plan `mapstructure:"plans"`
}

// Lookup returns the plan for key, if any.
func (c PlanCatalog) Lookup(key string) (Plan, bool) {
	key = strings.TrimSpace(key)
	for _, plan := range c.Plans {
		if plan.Key == key {
			return plan, true
		}
	}
	return Plan{}, false
}

// DefaultPlanCatalog returns the compiled-in catalog. Price IDs come from
// the STRIPE_PRICE_* environment variables so the YAML file stays optional.
func DefaultPlanCatalog() PlanCatalog {
	return PlanCatalog{
		Plans: []Plan{
			{
				Key:      "pay_per_use",
				PriceID:  os.Getenv("STRIPE_PRICE_PAY_PER_USE"),
				Mode:     CheckoutModePayment,
				Credits:  1,
				PlanType: "pay_per_use",
			},
			{
				Key:      "bundle_10",
				PriceID:  os.Getenv("STRIPE_PRICE_BUNDLE_10"),
				Mode:     CheckoutModePayment,
				Credits:  10,
				PlanType: "bundle",
			},
			{
				Key:      "bundle_25",
				PriceID:  os.Getenv("STRIPE_PRICE_BUNDLE_25"),
				Mode:     CheckoutModePayment,
				Credits:  25,
				PlanType: "bundle",
			},
			{
				Key:      "subscription_unlimited",
				PriceID:  os.Getenv("STRIPE_PRICE_SUBSCRIPTION_UNLIMITED"),
				Mode:     CheckoutModeSubscription,
				PlanType: "subscription",
			},
		},
	}
}

// PlanCatalogHolder serves the current catalog and hot-reloads it when the
// plans.yml file changes.
type PlanCatalogHolder struct {
	current atomic.Value // holds PlanCatalog
}

func NewPlanCatalogHolder() (*PlanCatalogHolder, error) {
	v := viper.New()

	v.SetConfigName("plans")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/roomgpt/config")
	v.AddConfigPath("/etc/roomgpt")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ROOMGPT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultPlanCatalog()
	fromFile := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fromFile = false
	}
	if fromFile {
		var loaded PlanCatalog
		if err := v.Unmarshal(&loaded); err != nil {
			return nil, err
		}
		if err := validatePlanCatalog(loaded); err != nil {
			return nil, err
		}
		cfg = loaded
	}

	holder := &PlanCatalogHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PlanCatalog
		if err := v.Unmarshal(&updated); err != nil {
			log.Printf("[plan-config] reload failed: %v", err)
			return
		}
		if err := validatePlanCatalog(updated); err != nil {
			log.Printf("[plan-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[plan-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PlanCatalogHolder) Get() PlanCatalog {
	return h.current.Load().(PlanCatalog)
}

func validatePlanCatalog(cfg PlanCatalog) error {
	if len(cfg.Plans) == 0 {
		return errors.New("plans cannot be empty")
	}
	seen := make(map[string]struct{}, len(cfg.Plans))
	for _, plan := range cfg.Plans {
		if strings.TrimSpace(plan.Key) == "" {
			return errors.New("plan key cannot be empty")
		}
		if _, dup := seen[plan.Key]; dup {
			return errors.New("duplicate plan key: " + plan.Key)
		}
		seen[plan.Key] = struct{}{}
		switch plan.Mode {
		case CheckoutModePayment, CheckoutModeSubscription:
		default:
			return errors.New("invalid mode for plan " + plan.Key)
		}
		if plan.Mode == CheckoutModePayment && plan.Credits <= 0 {
			return errors.New("payment plan " + plan.Key + " must grant credits")
		}
	}
	return nil
}
