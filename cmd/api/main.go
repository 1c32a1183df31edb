package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/gigdesk-backend/api/routes"
	"github.com/angelmondragon/gigdesk-backend/internal/ai"
	"github.com/angelmondragon/gigdesk-backend/internal/ai/gemini"
	"github.com/angelmondragon/gigdesk-backend/internal/ai/openai"
	"github.com/angelmondragon/gigdesk-backend/internal/clients"
	"github.com/angelmondragon/gigdesk-backend/internal/generation"
	"github.com/angelmondragon/gigdesk-backend/internal/invoices"
	"github.com/angelmondragon/gigdesk-backend/internal/quota"
	"github.com/angelmondragon/gigdesk-backend/internal/subscriptions"
	"github.com/angelmondragon/gigdesk-backend/internal/usage"
	"github.com/angelmondragon/gigdesk-backend/internal/webhooks"
	razorpaywebhook "github.com/angelmondragon/gigdesk-backend/internal/webhooks/razorpay"
	stripewebhook "github.com/angelmondragon/gigdesk-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/gigdesk-backend/pkg/config"
	"github.com/angelmondragon/gigdesk-backend/pkg/db"
	"github.com/angelmondragon/gigdesk-backend/pkg/instance"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
	"github.com/angelmondragon/gigdesk-backend/pkg/metrics"
	"github.com/angelmondragon/gigdesk-backend/pkg/migrate"
	"github.com/angelmondragon/gigdesk-backend/pkg/plans"
	"github.com/angelmondragon/gigdesk-backend/pkg/razorpay"
	"github.com/angelmondragon/gigdesk-backend/pkg/redis"
	"github.com/angelmondragon/gigdesk-backend/pkg/storage"
	"github.com/angelmondragon/gigdesk-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := context.Background()

	loc, err := cfg.Quota.Location()
	requireResource(ctx, logg, "timezone", err)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	reg := metrics.New()
	catalog := plans.Default()

	subsRepo := subscriptions.NewRepository(dbClient.DB())
	usageRepo := usage.NewRepository(dbClient.DB())
	planCache := quota.NewPlanCache(redisClient, cfg.Quota.PlanCacheTTL)

	gate, err := quota.NewGate(quota.GateParams{
		Billing:  subsRepo,
		Ledger:   usageRepo,
		Cache:    planCache,
		Catalog:  catalog,
		Location: loc,
		Logger:   logg,
		Metrics:  reg.Generation,
	})
	requireResource(ctx, logg, "quota gate", err)

	provider, err := newProvider(ctx, cfg.AI)
	requireResource(ctx, logg, "ai provider", err)

	proxy, err := ai.NewProxy(ai.ProxyParams{
		Provider:    provider,
		Store:       ai.NewStore(dbClient.DB()),
		Models:      ai.Models{Standard: cfg.AI.StandardModel, Premium: cfg.AI.PremiumModel},
		MaxTokens:   cfg.AI.MaxOutputTokens,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
		Logger:      logg,
		Metrics:     reg.Generation,
	})
	requireResource(ctx, logg, "ai proxy", err)

	generationService, err := generation.NewService(gate, proxy, logg)
	requireResource(ctx, logg, "generation service", err)

	usageService, err := usage.NewService(usage.ServiceParams{
		Repo:     usageRepo,
		Plans:    gate,
		Catalog:  catalog,
		Location: loc,
	})
	requireResource(ctx, logg, "usage service", err)

	clientsRepo := clients.NewRepository(dbClient.DB())
	clientService, err := clients.NewService(clientsRepo, gate, nil)
	requireResource(ctx, logg, "client service", err)

	var objectStore storage.Storage
	if cfg.Storage.Enabled() {
		s3Store, err := storage.NewS3(ctx, cfg.Storage, logg)
		requireResource(ctx, logg, "object storage", err)
		objectStore = s3Store
	}

	invoiceService, err := invoices.NewService(invoices.ServiceParams{
		Repo:      invoices.NewRepository(dbClient.DB()),
		Quota:     gate,
		Clients:   clientsRepo,
		Storage:   objectStore,
		PDFURLTTL: cfg.Storage.DownloadURLTTL,
		Location:  loc,
		Logger:    logg,
	})
	requireResource(ctx, logg, "invoice service", err)

	deps := routes.Deps{
		Config:     cfg,
		Logger:     logg,
		Metrics:    reg,
		Redis:      redisClient,
		Catalog:    catalog,
		DB:         dbClient,
		Generation: generationService,
		Usage:      usageService,
		Clients:    clientService,
		Invoices:   invoiceService,
	}
	if objectStore != nil {
		deps.Storage = objectStore
	}

	var gateway subscriptions.PaymentGateway
	switch strings.ToLower(strings.TrimSpace(cfg.Payments.Gateway)) {
	case "stripe":
		stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
		requireResource(ctx, logg, "stripe client", err)
		gateway = subscriptions.NewStripeGateway(stripeClient)
		deps.StripeClient = stripeClient
	default:
		razorpayClient, err := razorpay.NewClient(ctx, cfg.Razorpay, logg)
		requireResource(ctx, logg, "razorpay client", err)
		gateway = subscriptions.NewRazorpayGateway(razorpayClient)
		deps.RazorpayClient = razorpayClient
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:       subsRepo,
		Usage:      usageRepo,
		Gateway:    gateway,
		Tx:         dbClient,
		Cache:      planCache,
		Catalog:    catalog,
		Location:   loc,
		Currency:   cfg.Payments.Currency,
		SuccessURL: cfg.Payments.SuccessURL,
		CancelURL:  cfg.Payments.CancelURL,
		Logger:     logg,
	})
	requireResource(ctx, logg, "subscription service", err)
	deps.Subscriptions = subscriptionService

	if deps.StripeClient != nil {
		deps.StripeWebhook, err = stripewebhook.NewService(subscriptionService, logg)
		requireResource(ctx, logg, "stripe webhook service", err)
		deps.StripeGuard, err = webhooks.NewIdempotencyGuard(redisClient, cfg.Payments.WebhookTTL, "stripe-webhook")
		requireResource(ctx, logg, "stripe webhook guard", err)
	}
	if deps.RazorpayClient != nil {
		deps.RazorpayWebhook, err = razorpaywebhook.NewService(subscriptionService, logg)
		requireResource(ctx, logg, "razorpay webhook service", err)
		deps.RazorpayGuard, err = webhooks.NewIdempotencyGuard(redisClient, cfg.Payments.WebhookTTL, "razorpay-webhook")
		requireResource(ctx, logg, "razorpay webhook guard", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"ai_provider": provider.Name(),
		"gateway":     cfg.Payments.Gateway,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(deps),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func newProvider(ctx context.Context, cfg config.AIConfig) (ai.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ai.ProviderOpenAI:
		return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Timeout)
	case ai.ProviderGemini:
		return gemini.New(ctx, cfg.GeminiAPIKey)
	case ai.ProviderMock:
		return ai.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
