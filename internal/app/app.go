package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	authclient "github.com/myshop/storefront/internal/auth"
	"github.com/myshop/storefront/internal/catalog"
	"github.com/myshop/storefront/internal/domain/cart"
	"github.com/myshop/storefront/internal/domain/checkout"
	"github.com/myshop/storefront/internal/domain/product"
	"github.com/myshop/storefront/internal/handler"
	"github.com/myshop/storefront/internal/orderapi"
	"github.com/myshop/storefront/internal/storage/memory"
	"github.com/myshop/storefront/internal/storage/postgres"
	"github.com/myshop/storefront/pkg/health"
	"github.com/myshop/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("cart_backend", cfg.CartBackend),
	)

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Cart storage: session-lifetime memory or durable postgres.
	var carts cart.Store = memory.NewCartStore()
	var catalogSource product.Source = catalog.NewClient(cfg.CatalogURL)

	if cfg.CartBackend == CartBackendPostgres {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}

		healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
			return pool.Ping(ctx)
		})

		carts = postgres.NewCartStore(pool)

		// With a database available, front the remote catalog with the local
		// snapshot cache.
		cached := catalog.NewCachedSource(catalogSource, postgres.NewCatalogCache(pool))
		if err := cached.Warm(ctx); err != nil {
			lg.Warn("Catalog cache warmup failed", zap.Error(err))
		}
		catalogSource = cached
	}

	// External collaborators.
	verifier := authclient.NewRemoteVerifier(cfg.AuthServiceURL)
	orderGateway := orderapi.NewClient(cfg.OrderServiceURL)

	checkoutSvc := checkout.NewService(carts, orderGateway, cfg.Checkout.SubmitTimeout)

	h, err := handler.New(
		handler.Config{ImageBaseURL: cfg.ImageBaseURL},
		catalogSource,
		carts,
		checkoutSvc,
		verifier,
		m.MeterProvider(),
	)
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Routes(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Checkout.SubmitTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
