package stripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/hanamarche/hanamarche-backend/pkg/config"
	"github.com/hanamarche/hanamarche-backend/pkg/logger"
)

// Client bundles the Stripe credentials and backend with the webhook
// signing secret so checkout and settlement share one configured entry
// point. Service wrappers build their resource clients from it instead of
// relying on package-level globals.
type Client struct {
	apiKey        string
	backend       stripe.Backend
	environment   string
	signingSecret string
}

// keyPrefixes maps each environment to the secret-key prefixes Stripe
// issues for it. A live key in a test deployment is a config mistake we
// want to catch at boot, not at the first charge.
var keyPrefixes = map[string][]string{
	"test": {"sk_test", "rk_test"},
	"live": {"sk_live", "rk_live"},
}

// NewClient validates the Stripe configuration and initializes the API
// client once for the process.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env := strings.TrimSpace(strings.ToLower(cfg.Environment()))
	if env == "" {
		env = "test"
	}
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return nil, fmt.Errorf(`stripe environment must be "test" or "live", got %q`, env)
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("stripe api key is required")
	}
	if !hasAnyPrefix(apiKey, prefixes) {
		return nil, fmt.Errorf("stripe environment %q requires a secret key with prefix %s", env, strings.Join(prefixes, "/"))
	}

	signingSecret := strings.TrimSpace(cfg.Secret)
	if signingSecret == "" {
		return nil, fmt.Errorf("stripe webhook secret is required")
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		apiKey:        apiKey,
		backend:       stripe.GetBackend(stripe.APIBackend),
		environment:   env,
		signingSecret: signingSecret,
	}, nil
}

// Backend returns the HTTP backend API calls are issued through.
func (c *Client) Backend() stripe.Backend {
	if c == nil {
		return nil
	}
	return c.backend
}

// APIKey returns the secret key bound to this client.
func (c *Client) APIKey() string {
	if c == nil {
		return ""
	}
	return c.apiKey
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// NewIdempotencyKey returns a fresh key for a checkout-session attempt.
// Retries after an unknown outcome must not reuse a previous key.
func (c *Client) NewIdempotencyKey(prefix string) string {
	key := strings.TrimSpace(prefix)
	if key == "" {
		key = "hm"
	}
	return fmt.Sprintf("%s-%s", key, uuid.NewString())
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
