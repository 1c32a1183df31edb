package config

const (
	EnvPrefix = "GIGDESK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "GIGDESK_APP_ENV"
	EnvPort     = "GIGDESK_APP_PORT"
	EnvLogLevel = "GIGDESK_LOG_LEVEL"

	EnvDBDSN  = "GIGDESK_DB_DSN"
	EnvDBHost = "GIGDESK_DB_HOST"
	EnvDBPort = "GIGDESK_DB_PORT"
	EnvDBUser = "GIGDESK_DB_USER"
	EnvDBPass = "GIGDESK_DB_PASSWORD"
	EnvDBName = "GIGDESK_DB_NAME"

	EnvUseSQLite = "GIGDESK_USE_SQLITE"
	EnvTimezone  = "GIGDESK_TIMEZONE"

	EnvRedisURL = "GIGDESK_REDIS_URL"

	EnvJWTSecret = "GIGDESK_JWT_SECRET"
	EnvJWTIssuer = "GIGDESK_JWT_ISSUER"

	EnvAIProvider     = "GIGDESK_AI_PROVIDER"
	EnvPaymentGateway = "GIGDESK_PAYMENTS_GATEWAY"
	EnvStorageBucket  = "GIGDESK_STORAGE_BUCKET"
)

var splitDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
