package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/gigdesk-backend/api/controllers"
	invoicecontrollers "github.com/angelmondragon/gigdesk-backend/api/controllers/invoices"
	subscriptioncontrollers "github.com/angelmondragon/gigdesk-backend/api/controllers/subscriptions"
	webhookcontrollers "github.com/angelmondragon/gigdesk-backend/api/controllers/webhooks"
	"github.com/angelmondragon/gigdesk-backend/api/middleware"
	"github.com/angelmondragon/gigdesk-backend/internal/webhooks"
	"github.com/angelmondragon/gigdesk-backend/pkg/config"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
	"github.com/angelmondragon/gigdesk-backend/pkg/metrics"
	"github.com/angelmondragon/gigdesk-backend/pkg/plans"
	"github.com/angelmondragon/gigdesk-backend/pkg/razorpay"
	"github.com/angelmondragon/gigdesk-backend/pkg/redis"
	"github.com/angelmondragon/gigdesk-backend/pkg/stripe"
)

// Deps carries everything the HTTP surface needs. Nil services are mounted
// anyway and answer 500, except webhooks, which are only mounted for the
// configured gateway.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	Metrics *metrics.Registry
	Redis   *redis.Client
	Catalog plans.Catalog

	DB      controllers.Pinger
	Storage controllers.Pinger

	Generation    controllers.GenerationService
	Usage         controllers.UsageService
	Clients       controllers.ClientService
	Invoices      invoicecontrollers.Service
	Subscriptions subscriptioncontrollers.Service

	RazorpayClient  *razorpay.Client
	RazorpayWebhook webhookcontrollers.RazorpayWebhookService
	RazorpayGuard   *webhooks.IdempotencyGuard

	StripeClient  *stripe.Client
	StripeWebhook webhookcontrollers.StripeWebhookService
	StripeGuard   *webhooks.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	catalog := deps.Catalog
	if catalog == nil {
		catalog = plans.Default()
	}
	reg := deps.Metrics
	if reg == nil {
		reg = metrics.New()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg, reg.HTTP),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(reg.HTTP),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	checks := []controllers.ReadinessCheck{{Name: "database", Pinger: deps.DB}}
	if deps.Redis != nil {
		checks = append(checks, controllers.ReadinessCheck{Name: "redis", Pinger: deps.Redis})
	}
	if deps.Storage != nil {
		checks = append(checks, controllers.ReadinessCheck{Name: "storage", Pinger: deps.Storage})
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, checks...))
	})
	r.Method(http.MethodGet, "/metrics", reg.Handler())

	r.Get("/api/v1/plans", controllers.PlansList(catalog))

	if deps.RazorpayWebhook != nil {
		r.Post("/api/v1/webhooks/razorpay", webhookcontrollers.RazorpayWebhook(deps.RazorpayWebhook, deps.RazorpayClient, deps.RazorpayGuard, logg))
	}
	if deps.StripeWebhook != nil {
		r.Post("/api/v1/webhooks/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.StripeClient, deps.StripeGuard, logg))
	}

	generatePolicy := middleware.NewRateLimitPolicy("generate", cfg.RateLimit.GenerateWindow, cfg.RateLimit.GenerateLimit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, logg))
		}

		if deps.Redis != nil {
			r.With(middleware.UserRateLimit(generatePolicy, deps.Redis, logg)).Post("/generate", controllers.Generate(deps.Generation, logg))
		} else {
			r.Post("/generate", controllers.Generate(deps.Generation, logg))
		}

		r.Get("/usage", controllers.UsageCurrent(deps.Usage, logg))
		r.Get("/usage/history", controllers.UsageHistory(deps.Usage, logg))

		r.Get("/subscription", subscriptioncontrollers.Fetch(deps.Subscriptions, logg))
		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", subscriptioncontrollers.Create(deps.Subscriptions, logg))
			r.Post("/verify", subscriptioncontrollers.Verify(deps.Subscriptions, logg))
			r.Post("/cancel", subscriptioncontrollers.Cancel(deps.Subscriptions, logg))
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", invoicecontrollers.List(deps.Invoices, logg))
			r.Post("/", invoicecontrollers.Create(deps.Invoices, logg))
			r.Post("/status", invoicecontrollers.PreviewStatus(deps.Invoices, logg))
			r.Get("/{id}", invoicecontrollers.Detail(deps.Invoices, logg))
			r.Post("/{id}/paid", invoicecontrollers.MarkPaid(deps.Invoices, logg))
			r.Get("/{id}/pdf", invoicecontrollers.PDF(deps.Invoices, logg))
		})

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", controllers.ClientList(deps.Clients, logg))
			r.Post("/", controllers.ClientCreate(deps.Clients, logg))
		})

		r.Post("/tax/estimate", controllers.TaxEstimate(logg))
	})

	return r
}
