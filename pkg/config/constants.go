package config

const (
	EnvPrefix = "HANAMARCHE"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv   = "HANAMARCHE_APP_ENV"
	EnvPort     = "HANAMARCHE_APP_PORT"
	EnvDBDSN    = "HANAMARCHE_DB_DSN"
	EnvDBHost   = "HANAMARCHE_DB_HOST"
	EnvDBUser   = "HANAMARCHE_DB_USER"
	EnvDBName   = "HANAMARCHE_DB_NAME"
	EnvRedisURL = "HANAMARCHE_REDIS_URL"

	EnvCheckoutSuccessURL = "HANAMARCHE_CHECKOUT_SUCCESS_URL"
	EnvCheckoutCancelURL  = "HANAMARCHE_CHECKOUT_CANCEL_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
