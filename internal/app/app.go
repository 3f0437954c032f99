package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/vireon/internal/domain/auth"
	"github.com/xenking/vireon/internal/domain/cart"
	"github.com/xenking/vireon/internal/domain/dashboard"
	"github.com/xenking/vireon/internal/domain/order"
	"github.com/xenking/vireon/internal/handler"
	"github.com/xenking/vireon/pkg/health"
	"github.com/xenking/vireon/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr), zap.String("storage", cfg.Storage))

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	// Health check service.
	healthSvc := health.New()
	if store.pool != nil {
		healthSvc.Add(health.Readiness, "postgres", 5*time.Second, health.PingCheck(store.pool))
		healthSvc.Add(health.Readiness, "postgres_pool", time.Second, health.PoolSaturationCheck(store.pool),
			health.WithThresholds(6, 1))
	}
	healthSvc.Add(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Add(health.Liveness, "gc_pause", time.Second, health.GCMaxPauseCheck(time.Second),
		health.WithThresholds(5, 2))
	healthSvc.Start(ctx, 10*time.Second)

	// Domain services.
	tokens := auth.NewTokens([]byte(cfg.JWT.Secret), cfg.JWT.TTL, cfg.JWT.Issuer)
	accounts := auth.NewAccounts(store.users, tokens)
	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		if err := accounts.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			return errors.Wrap(err, "bootstrap admin")
		}
		lg.Info("Administrator ensured", zap.String("email", cfg.Admin.Email))
	}

	orderService, err := order.NewService(store.products, store.carts, store.orders, store.notifications, order.Config{
		Transactor:            store.tx,
		ValidationConcurrency: cfg.Checkout.ValidationConcurrency,
		TracerProvider:        m.TracerProvider(),
		MeterProvider:         m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	// HTTP handlers.
	h := handler.NewHandler(handler.Deps{
		Accounts:      accounts,
		Tokens:        tokens,
		Products:      store.products,
		Carts:         cart.NewService(store.carts, store.products),
		Orders:        orderService,
		Notifications: store.notifications,
		Dashboard:     dashboard.NewService(store.stats),
	})

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Routes(mux)
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.HeaderIdempotencyKey},
				ExposeHeaders:    []string{httpmiddleware.HeaderRequestID},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
				Skip:   isProbe,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("vireon-api", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

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
		healthSvc.Stop()
		close(shutdownDone)
	}()

	healthSvc.SetReady(true)
	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

func isProbe(r *http.Request) bool {
	return r.URL.Path == "/livez" || r.URL.Path == "/readyz"
}
