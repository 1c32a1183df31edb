package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Quota        QuotaConfig
	RateLimit    RateLimitConfig
	AI           AIConfig
	Payments     PaymentsConfig
	Razorpay     RazorpayConfig
	Stripe       StripeConfig
	Storage      StorageConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if _, err := cfg.Quota.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"GIGDESK_APP_ENV" required:"true"`
	Port         string   `envconfig:"GIGDESK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"GIGDESK_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"GIGDESK_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"GIGDESK_LOG_WARN_STACK" default:"false"`
	PublicURL    string   `envconfig:"GIGDESK_PUBLIC_URL" default:"http://localhost:3000"`
	CORSOrigins  []string `envconfig:"GIGDESK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GIGDESK_DB_DSN"`
	Driver string `envconfig:"GIGDESK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"GIGDESK_DB_HOST"`
	Port     int    `envconfig:"GIGDESK_DB_PORT" default:"5432"`
	User     string `envconfig:"GIGDESK_DB_USER"`
	Password string `envconfig:"GIGDESK_DB_PASSWORD"`
	Name     string `envconfig:"GIGDESK_DB_NAME"`
	SSLMode  string `envconfig:"GIGDESK_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"GIGDESK_SQLITE_PATH" default:"gigdesk.db"`

	MaxOpenConns    int           `envconfig:"GIGDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GIGDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GIGDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GIGDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GIGDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GIGDESK_REDIS_ADDR"`
	Password     string        `envconfig:"GIGDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"GIGDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GIGDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GIGDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GIGDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GIGDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GIGDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes the tokens issued by the managed auth provider.
type JWTConfig struct {
	Secret   string `envconfig:"GIGDESK_JWT_SECRET" required:"true"`
	Issuer   string `envconfig:"GIGDESK_JWT_ISSUER" required:"true"`
	Audience string `envconfig:"GIGDESK_JWT_AUDIENCE" default:"authenticated"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GIGDESK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GIGDESK_AUTO_MIGRATE" default:"false"`
}

type QuotaConfig struct {
	PlanCacheTTL time.Duration `envconfig:"GIGDESK_QUOTA_PLAN_CACHE_TTL" default:"60s"`
	Timezone     string        `envconfig:"GIGDESK_TIMEZONE" default:"Asia/Kolkata"`
}

// Location resolves the calendar timezone used for day-level comparisons.
func (q QuotaConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(q.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", name, err)
	}
	return loc, nil
}

type RateLimitConfig struct {
	GenerateWindow time.Duration `envconfig:"GIGDESK_RATE_LIMIT_GENERATE_WINDOW" default:"1m"`
	GenerateLimit  int           `envconfig:"GIGDESK_RATE_LIMIT_GENERATE_LIMIT" default:"10"`
}

type AIConfig struct {
	Provider        string        `envconfig:"GIGDESK_AI_PROVIDER" default:"openai"`
	OpenAIAPIKey    string        `envconfig:"GIGDESK_OPENAI_API_KEY"`
	OpenAIBaseURL   string        `envconfig:"GIGDESK_OPENAI_BASE_URL"`
	GeminiAPIKey    string        `envconfig:"GIGDESK_GEMINI_API_KEY"`
	StandardModel   string        `envconfig:"GIGDESK_AI_STANDARD_MODEL"`
	PremiumModel    string        `envconfig:"GIGDESK_AI_PREMIUM_MODEL"`
	MaxOutputTokens int           `envconfig:"GIGDESK_AI_MAX_OUTPUT_TOKENS" default:"1200"`
	Temperature     float32       `envconfig:"GIGDESK_AI_TEMPERATURE" default:"0.7"`
	Timeout         time.Duration `envconfig:"GIGDESK_AI_TIMEOUT" default:"60s"`
}

type PaymentsConfig struct {
	Gateway    string        `envconfig:"GIGDESK_PAYMENTS_GATEWAY" default:"razorpay"`
	Currency   string        `envconfig:"GIGDESK_PAYMENTS_CURRENCY" default:"INR"`
	SuccessURL string        `envconfig:"GIGDESK_PAYMENTS_SUCCESS_URL" default:"http://localhost:3000/billing?status=success"`
	CancelURL  string        `envconfig:"GIGDESK_PAYMENTS_CANCEL_URL" default:"http://localhost:3000/billing?status=cancelled"`
	WebhookTTL time.Duration `envconfig:"GIGDESK_PAYMENTS_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type RazorpayConfig struct {
	KeyID         string `envconfig:"GIGDESK_RAZORPAY_KEY_ID"`
	KeySecret     string `envconfig:"GIGDESK_RAZORPAY_KEY_SECRET"`
	WebhookSecret string `envconfig:"GIGDESK_RAZORPAY_WEBHOOK_SECRET"`
}

type StripeConfig struct {
	APIKey string `envconfig:"GIGDESK_STRIPE_API_KEY"`
	Secret string `envconfig:"GIGDESK_STRIPE_SECRET"`
	Env    string `envconfig:"GIGDESK_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type StorageConfig struct {
	Bucket          string        `envconfig:"GIGDESK_STORAGE_BUCKET"`
	Region          string        `envconfig:"GIGDESK_STORAGE_REGION" default:"ap-south-1"`
	Endpoint        string        `envconfig:"GIGDESK_STORAGE_ENDPOINT"`
	AccessKeyID     string        `envconfig:"GIGDESK_STORAGE_ACCESS_KEY_ID"`
	SecretAccessKey string        `envconfig:"GIGDESK_STORAGE_SECRET_ACCESS_KEY"`
	UsePathStyle    bool          `envconfig:"GIGDESK_STORAGE_USE_PATH_STYLE" default:"false"`
	DownloadURLTTL  time.Duration `envconfig:"GIGDESK_STORAGE_DOWNLOAD_URL_TTL" default:"15m"`
}

// Enabled reports whether an object storage bucket is configured.
func (s StorageConfig) Enabled() bool {
	return strings.TrimSpace(s.Bucket) != ""
}

type CronConfig struct {
	Schedule            string        `envconfig:"GIGDESK_CRON_SCHEDULE" default:"@every 15m"`
	LockTTL             time.Duration `envconfig:"GIGDESK_CRON_LOCK_TTL" default:"10m"`
	ExpiryBatchSize     int           `envconfig:"GIGDESK_CRON_EXPIRY_BATCH_SIZE" default:"200"`
	CheckoutOrderMaxAge time.Duration `envconfig:"GIGDESK_CRON_CHECKOUT_ORDER_MAX_AGE" default:"48h"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range splitDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
