package checkout

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	pkgstripe "github.com/hanamarche/hanamarche-backend/pkg/stripe"
)

// StripeCheckoutClient exposes the subset of Stripe operations the
// orchestrator needs.
type StripeCheckoutClient interface {
	CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeClientWrapper struct {
	sessions *session.Client
}

// NewStripeClient wraps the provided Stripe client so the orchestrator can
// be tested against a double. The session client is bound to the injected
// backend and key, not the package-level globals.
func NewStripeClient(api *pkgstripe.Client) StripeCheckoutClient {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{
		sessions: &session.Client{B: api.Backend(), Key: api.APIKey()},
	}
}

func (w *stripeClientWrapper) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params != nil {
		params.Context = ctx
	}
	return w.sessions.New(params)
}
