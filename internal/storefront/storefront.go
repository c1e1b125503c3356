// Package storefront assembles the services shared by the storefront binaries.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/sunrise-backend/internal/cart"
	"github.com/angelmondragon/sunrise-backend/internal/checkout"
	"github.com/angelmondragon/sunrise-backend/internal/orders"
	"github.com/angelmondragon/sunrise-backend/internal/payments"
	product "github.com/angelmondragon/sunrise-backend/internal/products"
	"github.com/angelmondragon/sunrise-backend/pkg/config"
	"github.com/angelmondragon/sunrise-backend/pkg/db"
	"github.com/angelmondragon/sunrise-backend/pkg/enums"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
	"github.com/angelmondragon/sunrise-backend/pkg/metrics"
	"github.com/angelmondragon/sunrise-backend/pkg/outbox"
	"github.com/angelmondragon/sunrise-backend/pkg/pricing"
	"github.com/angelmondragon/sunrise-backend/pkg/redis"
	pkgsquare "github.com/angelmondragon/sunrise-backend/pkg/square"
	pkgstripe "github.com/angelmondragon/sunrise-backend/pkg/stripe"
)

const snapshotStoreMemory = "memory"

type Params struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	// Redis may be nil when cart snapshots are kept in memory.
	Redis      *redis.Client
	Registerer prometheus.Registerer
}

// Storefront holds the wired domain services.
type Storefront struct {
	Calculator *pricing.Calculator
	Products   *product.Service
	Cart       *cart.Service
	Orders     *orders.Service
	Checkout   *checkout.Service
	Outbox     *outbox.Service
	OutboxRepo *outbox.Repository
	Payments   *payments.Registry
	Stripe     *pkgstripe.Client
	Square     *pkgsquare.Client
}

// Build wires pricing, catalog, cart, orders, payments and checkout.
func Build(ctx context.Context, p Params) (*Storefront, error) {
	if p.Config == nil {
		return nil, errors.New("config is required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if p.DB == nil {
		return nil, errors.New("database client is required")
	}
	cfg := p.Config

	calc, err := NewCalculator(cfg.Pricing)
	if err != nil {
		return nil, err
	}

	productService, err := product.NewService(product.NewRepository(p.DB.DB()), p.Logger)
	if err != nil {
		return nil, fmt.Errorf("products service: %w", err)
	}

	snapshots, locker, err := cartStorage(cfg.Cart, p.Redis)
	if err != nil {
		return nil, err
	}
	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:       snapshots,
		Locker:     locker,
		Calculator: calc,
		Catalog:    productService,
		Logger:     p.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("cart service: %w", err)
	}

	orderRepo := orders.NewRepository(p.DB.DB())
	orderService, err := orders.NewService(orderRepo, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	sf := &Storefront{
		Calculator: calc,
		Products:   productService,
		Cart:       cartService,
		Orders:     orderService,
	}

	if err := sf.wirePayments(ctx, cfg, p.Logger); err != nil {
		return nil, err
	}

	currency, err := enums.ParseCurrency(cfg.Pricing.Currency)
	if err != nil {
		return nil, fmt.Errorf("pricing currency: %w", err)
	}

	sf.OutboxRepo = outbox.NewRepository(p.DB.DB())
	sf.Outbox = outbox.NewService(sf.OutboxRepo, p.Logger)

	sf.Checkout, err = checkout.NewService(checkout.ServiceParams{
		DB:       p.DB,
		Attempts: checkout.NewAttemptRepository(p.DB.DB()),
		Orders:   orderRepo,
		Cart:     cartService,
		Gateways: sf.Payments,
		Outbox:   sf.Outbox,
		Metrics:  metrics.NewCheckoutMetrics(p.Registerer),
		Logger:   p.Logger,
		Config:   cfg.Checkout,
		Currency: currency,
	})
	if err != nil {
		return nil, fmt.Errorf("checkout service: %w", err)
	}
	return sf, nil
}

// NewCalculator builds the pricing calculator from configuration.
func NewCalculator(cfg config.PricingConfig) (*pricing.Calculator, error) {
	pricingCfg, err := pricing.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("pricing config: %w", err)
	}
	calc, err := pricing.NewCalculator(pricingCfg)
	if err != nil {
		return nil, fmt.Errorf("pricing calculator: %w", err)
	}
	return calc, nil
}

// cartStorage pairs the snapshot store with a session lock of the same reach:
// process-local for memory snapshots, Redis-wide otherwise.
func cartStorage(cfg config.CartConfig, client *redis.Client) (cart.SnapshotRepository, cart.SessionLocker, error) {
	if strings.EqualFold(strings.TrimSpace(cfg.SnapshotStore), snapshotStoreMemory) {
		return cart.NewMemorySnapshotRepository(), cart.NewLocalSessionLocker(), nil
	}
	if client == nil {
		return nil, nil, errors.New("redis client is required for redis cart snapshots")
	}
	repo, err := cart.NewRedisSnapshotRepository(client, cfg.SnapshotTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("cart snapshot repository: %w", err)
	}
	locker, err := cart.NewRedisSessionLocker(client, cfg.LockTTL, cfg.LockWait)
	if err != nil {
		return nil, nil, fmt.Errorf("cart session lock: %w", err)
	}
	return repo, locker, nil
}

// wirePayments connects every provider with credentials. The configured
// default provider must be among them.
func (sf *Storefront) wirePayments(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	provider, err := enums.ParsePaymentProvider(cfg.FeatureFlags.PaymentProvider)
	if err != nil {
		return fmt.Errorf("payment provider: %w", err)
	}

	var gateways []payments.Gateway
	if strings.TrimSpace(cfg.Stripe.APIKey) != "" {
		sf.Stripe, err = pkgstripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return fmt.Errorf("stripe client: %w", err)
		}
		gateway, err := payments.NewStripeGateway(sf.Stripe, logg)
		if err != nil {
			return fmt.Errorf("stripe gateway: %w", err)
		}
		gateways = append(gateways, gateway)
	}
	if strings.TrimSpace(cfg.Square.AccessToken) != "" {
		sf.Square, err = pkgsquare.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			return fmt.Errorf("square client: %w", err)
		}
		gateway, err := payments.NewSquareGateway(sf.Square, logg)
		if err != nil {
			return fmt.Errorf("square gateway: %w", err)
		}
		gateways = append(gateways, gateway)
	}

	sf.Payments, err = payments.NewRegistry(provider, gateways...)
	if err != nil {
		return fmt.Errorf("payment registry: %w", err)
	}
	return nil
}
