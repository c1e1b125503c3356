package storefront

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sunrise-backend/internal/cart"
	"github.com/angelmondragon/sunrise-backend/pkg/config"
	"github.com/angelmondragon/sunrise-backend/pkg/db"
	"github.com/angelmondragon/sunrise-backend/pkg/db/dbtest"
	"github.com/angelmondragon/sunrise-backend/pkg/enums"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		FeatureFlags: config.FeatureFlagsConfig{PaymentProvider: "stripe"},
		Pricing: config.PricingConfig{
			TaxRate:              "0.0825",
			DeliveryFeeCents:     500,
			DefaultTipPercentage: 15,
			TipPercentages:       []int64{10, 15, 20},
			Currency:             "usd",
		},
		Cart:   config.CartConfig{SnapshotStore: "memory"},
		Stripe: config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_123", Env: "test"},
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "storefront-test", Output: io.Discard})
}

func TestBuildWiresStripeStorefront(t *testing.T) {
	client := db.NewFromGorm(dbtest.NewSQLite(t))

	sf, err := Build(context.Background(), Params{Config: testConfig(), Logger: testLogger(), DB: client})
	require.NoError(t, err)
	require.NotNil(t, sf.Checkout)
	require.NotNil(t, sf.Cart)
	require.NotNil(t, sf.Stripe)
	require.Nil(t, sf.Square)
	require.Equal(t, enums.PaymentProviderStripe, sf.Payments.Default().Provider())
	require.Equal(t, int64(500), sf.Calculator.Config().DeliveryFeeCents)
}

func TestBuildRequiresDefaultProviderCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.FeatureFlags.PaymentProvider = "square"

	_, err := Build(context.Background(), Params{Config: cfg, Logger: testLogger(), DB: db.NewFromGorm(dbtest.NewSQLite(t))})
	require.ErrorContains(t, err, "payment registry")
}

func TestBuildRequiresRedisForRedisSnapshots(t *testing.T) {
	cfg := testConfig()
	cfg.Cart.SnapshotStore = "redis"

	_, err := Build(context.Background(), Params{Config: cfg, Logger: testLogger(), DB: db.NewFromGorm(dbtest.NewSQLite(t))})
	require.ErrorContains(t, err, "redis client is required")
}

func TestCartStoragePairsMemorySnapshotsWithLocalLock(t *testing.T) {
	repo, locker, err := cartStorage(config.CartConfig{SnapshotStore: "Memory"}, nil)
	require.NoError(t, err)
	require.IsType(t, &cart.MemorySnapshotRepository{}, repo)
	require.IsType(t, &cart.LocalSessionLocker{}, locker)
}

func TestNewCalculatorRejectsInvalidPricing(t *testing.T) {
	_, err := NewCalculator(config.PricingConfig{TaxRate: "0.05", DeliveryFeeCents: -1, Currency: "usd"})
	require.Error(t, err)
}
