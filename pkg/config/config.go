package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	Webhook      WebhookConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HANAMARCHE_APP_ENV" required:"true"`
	Port         string `envconfig:"HANAMARCHE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HANAMARCHE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HANAMARCHE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"HANAMARCHE_DB_DSN"`
	Driver string `envconfig:"HANAMARCHE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HANAMARCHE_DB_HOST"`
	LegacyPort     int    `envconfig:"HANAMARCHE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HANAMARCHE_DB_USER"`
	LegacyPassword string `envconfig:"HANAMARCHE_DB_PASSWORD"`
	LegacyName     string `envconfig:"HANAMARCHE_DB_NAME"`
	LegacySSLMode  string `envconfig:"HANAMARCHE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HANAMARCHE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HANAMARCHE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HANAMARCHE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HANAMARCHE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HANAMARCHE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HANAMARCHE_REDIS_ADDR"`
	Password     string        `envconfig:"HANAMARCHE_REDIS_PASSWORD"`
	DB           int           `envconfig:"HANAMARCHE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HANAMARCHE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HANAMARCHE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HANAMARCHE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HANAMARCHE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HANAMARCHE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey string `envconfig:"HANAMARCHE_STRIPE_API_KEY"`
	Secret string `envconfig:"HANAMARCHE_STRIPE_SECRET"`
	Env    string `envconfig:"HANAMARCHE_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// CheckoutConfig holds the redirect templates handed to the payment
// processor. Both templates must contain the {CHECKOUT_SESSION_ID}
// placeholder that the processor substitutes on redirect.
type CheckoutConfig struct {
	SuccessURL     string        `envconfig:"HANAMARCHE_CHECKOUT_SUCCESS_URL" required:"true"`
	CancelURL      string        `envconfig:"HANAMARCHE_CHECKOUT_CANCEL_URL" required:"true"`
	SessionTimeout time.Duration `envconfig:"HANAMARCHE_CHECKOUT_SESSION_TIMEOUT" default:"10s"`
	RetryAttempts  int           `envconfig:"HANAMARCHE_CHECKOUT_RETRY_ATTEMPTS" default:"2"`
}

const sessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

func (c CheckoutConfig) validate() error {
	for name, tmpl := range map[string]string{
		"success": c.SuccessURL,
		"cancel":  c.CancelURL,
	} {
		if !strings.Contains(tmpl, sessionIDPlaceholder) {
			return fmt.Errorf("checkout %s url must contain %s", name, sessionIDPlaceholder)
		}
	}
	return nil
}

type WebhookConfig struct {
	EventGuardTTL time.Duration `envconfig:"HANAMARCHE_WEBHOOK_EVENT_GUARD_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"HANAMARCHE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"HANAMARCHE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
