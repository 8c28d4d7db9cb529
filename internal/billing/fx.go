package billing

import (
	billingdomain "github.com/fixkit/fixkit/internal/billing/domain"
	"github.com/fixkit/fixkit/internal/billing/stripe"
	"github.com/fixkit/fixkit/internal/config"
	"go.uber.org/fx"
)

// Provide returns the configured billing provider, or nil when the sync is
// disabled. The usage engine treats a nil provider as a no-op.
func Provide(cfg config.Config) billingdomain.Provider {
	if !cfg.Stripe.Enabled || cfg.Stripe.APIKey == "" {
		return nil
	}
	return stripe.New(cfg.Stripe.APIKey)
}

var Module = fx.Module("billing",
	fx.Provide(Provide),
)
