package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Pricing      PricingConfig
	Cart         CartConfig
	CartSession  CartSessionConfig
	Checkout     CheckoutConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Stripe       StripeConfig
	Square       SquareConfig
	Sendgrid     SendgridConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SUNRISE_APP_ENV" required:"true"`
	Port         string `envconfig:"SUNRISE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SUNRISE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SUNRISE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"SUNRISE_LOG_FORMAT" default:"json"`
	CORSOrigins  string `envconfig:"SUNRISE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"SUNRISE_SERVICE_KIND" default:"api"`
	// MetricsAddr is where background workers expose /metrics. Empty disables it.
	MetricsAddr string `envconfig:"SUNRISE_SERVICE_METRICS_ADDR"`
}

type DBConfig struct {
	DSN       string        `envconfig:"SUNRISE_DB_DSN"`
	SlowQuery time.Duration `envconfig:"SUNRISE_DB_SLOW_QUERY" default:"200ms"`

	LegacyHost     string `envconfig:"SUNRISE_DB_HOST"`
	LegacyPort     int    `envconfig:"SUNRISE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SUNRISE_DB_USER"`
	LegacyPassword string `envconfig:"SUNRISE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SUNRISE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SUNRISE_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"SUNRISE_SQLITE_PATH" default:"file:sunrise.db?cache=shared"`

	MaxOpenConns    int           `envconfig:"SUNRISE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SUNRISE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SUNRISE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SUNRISE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SUNRISE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SUNRISE_REDIS_ADDR"`
	Password     string        `envconfig:"SUNRISE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SUNRISE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SUNRISE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SUNRISE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SUNRISE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SUNRISE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SUNRISE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite       bool   `envconfig:"SUNRISE_USE_SQLITE" default:"false"`
	AutoMigrate     bool   `envconfig:"SUNRISE_AUTO_MIGRATE" default:"false"`
	PaymentProvider string `envconfig:"SUNRISE_PAYMENT_PROVIDER" default:"stripe"`
}

// PricingConfig carries the tunables of the order pricing calculator.
// TaxRate is kept as a string so it parses straight into a decimal.
type PricingConfig struct {
	TaxRate              string  `envconfig:"SUNRISE_PRICING_TAX_RATE" default:"0.0825"`
	DeliveryFeeCents     int64   `envconfig:"SUNRISE_PRICING_DELIVERY_FEE_CENTS" default:"500"`
	DefaultTipPercentage int64   `envconfig:"SUNRISE_PRICING_DEFAULT_TIP_PERCENTAGE" default:"15"`
	TipPercentages       []int64 `envconfig:"SUNRISE_PRICING_TIP_PERCENTAGES" default:"10,15,20,25"`
	MaxFlatTipCents      int64   `envconfig:"SUNRISE_PRICING_MAX_FLAT_TIP_CENTS" default:"50000"`
	Currency             string  `envconfig:"SUNRISE_PRICING_CURRENCY" default:"usd"`
}

// TaxRateDecimal parses TaxRate. Load has already validated it.
func (p PricingConfig) TaxRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(p.TaxRate))
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func (p PricingConfig) validate() error {
	rate, err := decimal.NewFromString(strings.TrimSpace(p.TaxRate))
	if err != nil {
		return fmt.Errorf("%s must be a decimal: %w", EnvPricingTaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be within [0, 1), got %s", EnvPricingTaxRate, p.TaxRate)
	}
	if p.DeliveryFeeCents < 0 {
		return fmt.Errorf("%s must not be negative", EnvPricingDeliveryFee)
	}
	if p.DefaultTipPercentage < 0 {
		return fmt.Errorf("%s must not be negative", EnvPricingDefaultTip)
	}
	for _, pct := range p.TipPercentages {
		if pct < 0 {
			return fmt.Errorf("%s must not contain negative values", EnvPricingTipPercentages)
		}
	}
	if p.MaxFlatTipCents <= 0 {
		return fmt.Errorf("%s must be positive", EnvPricingMaxFlatTip)
	}
	return nil
}

type CartConfig struct {
	SnapshotStore string        `envconfig:"SUNRISE_CART_SNAPSHOT_STORE" default:"redis"`
	SnapshotTTL   time.Duration `envconfig:"SUNRISE_CART_SNAPSHOT_TTL" default:"720h"`
	LockTTL       time.Duration `envconfig:"SUNRISE_CART_LOCK_TTL" default:"10s"`
	LockWait      time.Duration `envconfig:"SUNRISE_CART_LOCK_WAIT" default:"5s"`
}

type CartSessionConfig struct {
	Secret string        `envconfig:"SUNRISE_CART_SESSION_SECRET" required:"true"`
	Issuer string        `envconfig:"SUNRISE_CART_SESSION_ISSUER" default:"sunrise"`
	TTL    time.Duration `envconfig:"SUNRISE_CART_SESSION_TTL" default:"720h"`
}

type CheckoutConfig struct {
	PaymentAttemptTTL time.Duration `envconfig:"SUNRISE_CHECKOUT_PAYMENT_ATTEMPT_TTL" default:"2h"`
	MinLeadDays       int           `envconfig:"SUNRISE_CHECKOUT_MIN_LEAD_DAYS" default:"1"`
	Timezone          string        `envconfig:"SUNRISE_CHECKOUT_TIMEZONE" default:"America/Chicago"`
}

// Location resolves the delivery timezone, falling back to UTC.
func (c CheckoutConfig) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}

type CronConfig struct {
	Interval               time.Duration `envconfig:"SUNRISE_CRON_INTERVAL" default:"1m"`
	LockTTL                time.Duration `envconfig:"SUNRISE_CRON_LOCK_TTL" default:"5m"`
	JobTimeout             time.Duration `envconfig:"SUNRISE_CRON_JOB_TIMEOUT" default:"4m"`
	PaymentExpiryEvery     time.Duration `envconfig:"SUNRISE_CRON_PAYMENT_EXPIRY_EVERY" default:"5m"`
	PaymentExpiryBatchSize int           `envconfig:"SUNRISE_CRON_PAYMENT_EXPIRY_BATCH" default:"100"`
	RetentionEvery         time.Duration `envconfig:"SUNRISE_CRON_RETENTION_EVERY" default:"24h"`
	OutboxRetention        time.Duration `envconfig:"SUNRISE_CRON_OUTBOX_RETENTION" default:"720h"`
	DLQRetention           time.Duration `envconfig:"SUNRISE_CRON_DLQ_RETENTION" default:"2160h"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"SUNRISE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SUNRISE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SUNRISE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SUNRISE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic               string `envconfig:"SUNRISE_PUBSUB_ORDERS_TOPIC" default:"sunrise-orders"`
	NotificationsSubscription string `envconfig:"SUNRISE_PUBSUB_NOTIFICATIONS_SUBSCRIPTION" default:"sunrise-orders-notifications"`
	ReportingSubscription     string `envconfig:"SUNRISE_PUBSUB_REPORTING_SUBSCRIPTION" default:"sunrise-orders-reporting"`
}

type BigQueryConfig struct {
	Dataset         string `envconfig:"SUNRISE_BIGQUERY_DATASET" default:"sunrise"`
	OrderFactsTable string `envconfig:"SUNRISE_BIGQUERY_ORDER_FACTS_TABLE" default:"order_facts"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SUNRISE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SUNRISE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SUNRISE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type StripeConfig struct {
	APIKey string `envconfig:"SUNRISE_STRIPE_API_KEY"`
	Secret string `envconfig:"SUNRISE_STRIPE_SECRET"`
	Env    string `envconfig:"SUNRISE_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SquareConfig struct {
	AccessToken         string `envconfig:"SUNRISE_SQUARE_ACCESS_TOKEN"`
	LocationID          string `envconfig:"SUNRISE_SQUARE_LOCATION_ID"`
	Env                 string `envconfig:"SUNRISE_SQUARE_ENV" default:"sandbox"`
	WebhookSignatureKey string `envconfig:"SUNRISE_SQUARE_WEBHOOK_SIGNATURE_KEY"`
	WebhookURL          string `envconfig:"SUNRISE_SQUARE_WEBHOOK_URL"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type SendgridConfig struct {
	APIKey      string `envconfig:"SUNRISE_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"SUNRISE_SENDGRID_FROM_EMAIL"`
	FromName    string `envconfig:"SUNRISE_SENDGRID_FROM_NAME" default:"Sunrise Breakfast"`
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
