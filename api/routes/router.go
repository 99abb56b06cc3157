package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hundredwebs/petimage-backend/api/controllers"
	webhookcontrollers "github.com/hundredwebs/petimage-backend/api/controllers/webhooks"
	"github.com/hundredwebs/petimage-backend/api/middleware"
	"github.com/hundredwebs/petimage-backend/internal/credits"
	"github.com/hundredwebs/petimage-backend/internal/products"
	"github.com/hundredwebs/petimage-backend/internal/subscriptions"
	creemwebhook "github.com/hundredwebs/petimage-backend/internal/webhooks/creem"
	"github.com/hundredwebs/petimage-backend/pkg/config"
	"github.com/hundredwebs/petimage-backend/pkg/creem"
	"github.com/hundredwebs/petimage-backend/pkg/db"
	"github.com/hundredwebs/petimage-backend/pkg/logger"
	"github.com/hundredwebs/petimage-backend/pkg/metrics"
	"github.com/hundredwebs/petimage-backend/pkg/redis"
)

type Params struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        *redis.Client
	Creem        *creem.Client
	Catalog      *products.Catalog
	Credits      *credits.Service
	Subs         *subscriptions.Service
	Webhook      *creemwebhook.Service
	WebhookGuard *creemwebhook.IdempotencyGuard
	Metrics      *metrics.WebhookMetrics
	Registry     *prometheus.Registry
}

func NewRouter(p Params) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.DB, p.Redis, p.Logger))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Get("/products", controllers.ListProducts(p.Catalog, p.Creem.Environment() != "live"))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/creem", webhookcontrollers.CreemWebhook(p.Webhook, p.Creem, p.WebhookGuard, p.Metrics, p.Logger))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(p.Config.JWT, p.Logger))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/me", func(r chi.Router) {
			r.Get("/credits", controllers.GetCredits(p.Credits, p.Logger))
			r.Get("/credits/history", controllers.GetCreditHistory(p.Credits, p.Logger))
			r.Post("/credits/spend", controllers.SpendCredits(p.Credits, p.Logger))
		})

		r.With(middleware.RateLimit(
			"checkout",
			p.Redis,
			p.Config.RateLimit.CheckoutLimit,
			p.Config.RateLimit.CheckoutWindow,
			p.Logger,
		)).Post("/checkout", controllers.CreateCheckout(p.Creem, p.Catalog, p.Logger))

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", controllers.ListSubscriptions(p.Subs, p.Logger))
			r.Post("/{subscriptionID}/cancel", controllers.CancelSubscription(p.Subs, p.Logger))
		})
	})

	return r
}
