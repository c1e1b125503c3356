package config

const EnvPrefix = "SUNRISE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "SUNRISE_APP_ENV"
	EnvPort     = "SUNRISE_APP_PORT"
	EnvLogLevel = "SUNRISE_LOG_LEVEL"

	EnvDBDSN  = "SUNRISE_DB_DSN"
	EnvDBHost = "SUNRISE_DB_HOST"
	EnvDBUser = "SUNRISE_DB_USER"
	EnvDBName = "SUNRISE_DB_NAME"

	EnvRedisURL  = "SUNRISE_REDIS_URL"
	EnvUseSQLite = "SUNRISE_USE_SQLITE"

	EnvPaymentProvider = "SUNRISE_PAYMENT_PROVIDER"

	EnvPricingTaxRate        = "SUNRISE_PRICING_TAX_RATE"
	EnvPricingDeliveryFee    = "SUNRISE_PRICING_DELIVERY_FEE_CENTS"
	EnvPricingDefaultTip     = "SUNRISE_PRICING_DEFAULT_TIP_PERCENTAGE"
	EnvPricingTipPercentages = "SUNRISE_PRICING_TIP_PERCENTAGES"
	EnvPricingMaxFlatTip     = "SUNRISE_PRICING_MAX_FLAT_TIP_CENTS"

	EnvCartSessionSecret = "SUNRISE_CART_SESSION_SECRET"
	EnvCartSnapshotTTL   = "SUNRISE_CART_SNAPSHOT_TTL"

	EnvGCPProjectID        = "SUNRISE_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic   = "SUNRISE_PUBSUB_ORDERS_TOPIC"
	EnvPubSubNotifications = "SUNRISE_PUBSUB_NOTIFICATIONS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
