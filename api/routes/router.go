package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanamarche/hanamarche-backend/api/controllers"
	webhookcontrollers "github.com/hanamarche/hanamarche-backend/api/controllers/webhooks"
	"github.com/hanamarche/hanamarche-backend/api/middleware"
	checkoutsvc "github.com/hanamarche/hanamarche-backend/internal/checkout"
	"github.com/hanamarche/hanamarche-backend/internal/ledger"
	"github.com/hanamarche/hanamarche-backend/internal/payout"
	"github.com/hanamarche/hanamarche-backend/internal/settlement"
	storesvc "github.com/hanamarche/hanamarche-backend/internal/stores"
	"github.com/hanamarche/hanamarche-backend/pkg/config"
	"github.com/hanamarche/hanamarche-backend/pkg/db"
	"github.com/hanamarche/hanamarche-backend/pkg/logger"
	"github.com/hanamarche/hanamarche-backend/pkg/redis"
	"github.com/hanamarche/hanamarche-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	checkoutService checkoutsvc.Service,
	ledgerService ledger.Service,
	storeService storesvc.Service,
	payoutService payout.Service,
	stripeClient *stripe.Client,
	settlementService *settlement.Service,
	eventGuard *settlement.EventGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(settlementService, stripeClient, eventGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/checkout/sessions", func(r chi.Router) {
			r.Post("/", controllers.StartCheckout(checkoutService, logg))
			r.Get("/{sessionId}", controllers.GetCheckoutSession(checkoutService, logg))
		})

		r.Route("/customers/{customerId}", func(r chi.Router) {
			r.Get("/points", controllers.CustomerPoints(ledgerService, logg))
		})

		r.Route("/stores/{storeId}", func(r chi.Router) {
			r.Get("/", controllers.GetStore(storeService, logg))
			r.Get("/payouts", controllers.ListStorePayouts(payoutService, logg))
		})
	})

	return r
}
