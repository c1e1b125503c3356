package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/sunrise-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/sunrise-backend/api/controllers/webhooks"
	"github.com/angelmondragon/sunrise-backend/api/middleware"
	"github.com/angelmondragon/sunrise-backend/internal/webhooks/guard"
	"github.com/angelmondragon/sunrise-backend/pkg/auth"
	"github.com/angelmondragon/sunrise-backend/pkg/config"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
	"github.com/angelmondragon/sunrise-backend/pkg/redis"
	"github.com/angelmondragon/sunrise-backend/pkg/square"
	"github.com/angelmondragon/sunrise-backend/pkg/stripe"
)

// Dependencies are the services the API routes delegate to. Webhook entries
// are optional; a nil processor client leaves its route unmounted.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	Readiness   map[string]controllers.Pinger
	Idempotency redis.ResponseStore
	Gatherer    prometheus.Gatherer
	CartSigner  *auth.CartSigner

	Products controllers.ProductService
	Cart     controllers.CartService
	Checkout controllers.CheckoutService
	Orders   controllers.OrderService

	StripeClient         *stripe.Client
	StripeWebhookService webhookcontrollers.StripeWebhookService
	StripeWebhookGuard   *guard.IdempotencyGuard

	SquareClient         *square.Client
	SquareWebhookService webhookcontrollers.SquareWebhookService
	SquareWebhookGuard   *guard.IdempotencyGuard
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		if deps.StripeClient != nil {
			r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhookService, deps.StripeClient, deps.StripeWebhookGuard, logg))
		}
		if deps.SquareClient != nil {
			r.Post("/square", webhookcontrollers.SquareWebhook(deps.SquareWebhookService, deps.SquareClient, deps.SquareWebhookGuard, logg))
		}
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(deps.Products, logg))
		r.Get("/products/{productId}", controllers.ProductGet(deps.Products, logg))
		r.Get("/orders/{orderId}", controllers.OrderGet(deps.Orders, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.CartSession(deps.CartSigner, logg, nil))
			replay := func(ttl time.Duration) func(http.Handler) http.Handler {
				return middleware.Idempotent(deps.Idempotency, ttl, logg)
			}

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(deps.Cart, logg))
				r.Delete("/", controllers.CartClear(deps.Cart, logg))
				r.Put("/tip", controllers.CartUpdateTip(deps.Cart, logg))
				r.With(replay(middleware.CartReplayTTL)).Post("/items", controllers.CartAddItem(deps.Cart, logg))
				r.Patch("/items/{uniqueId}", controllers.CartUpdateQuantity(deps.Cart, logg))
				r.Put("/items/{uniqueId}/modifications", controllers.CartUpdateModifications(deps.Cart, logg))
				r.Delete("/items/{uniqueId}", controllers.CartRemoveItem(deps.Cart, logg))
			})
			r.With(replay(middleware.CheckoutReplayTTL)).Post("/checkout/payment-intent", controllers.CheckoutBegin(deps.Checkout, logg))
			r.With(replay(middleware.CheckoutReplayTTL)).Post("/checkout/confirm", controllers.CheckoutConfirm(deps.Checkout, logg))
		})
	})

	return r
}
