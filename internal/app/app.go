package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-discounts/internal/domain/pricing"
	"github.com/xenking/kart-discounts/internal/handler"
	"github.com/xenking/kart-discounts/pkg/health"
	"github.com/xenking/kart-discounts/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	svc, err := NewPricingService(cfg.Rules, pricing.WithCurrency(cfg.Currency))
	if err != nil {
		return errors.Wrap(err, "build discount rules")
	}
	lg.Info("Discount rules loaded", zap.Strings("order", svc.Rules()))

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("rules", time.Second, func(context.Context) error {
		if len(svc.Rules()) == 0 {
			return errors.New("no discount rules configured")
		}
		return nil
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	routes, err := NewRouter(ctx, cfg, svc, healthSvc, m)
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           routes,
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

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// NewRouter mounts the health probes and the quote API on one mux and wraps
// it with the middleware chain.
func NewRouter(
	ctx context.Context,
	cfg *Config,
	svc handler.Calculator,
	healthSvc *health.Health,
	m httpmiddleware.Telemetry,
) (http.Handler, error) {
	h, err := handler.New(
		handler.Config{MaxBodyBytes: cfg.MaxBodyBytes},
		svc,
		m.TracerProvider(),
		m.MeterProvider(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create handler")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	return httpmiddleware.Wrap(mux,
		httpmiddleware.Instrument("kart-discounts", m),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.LogRequests(),
		httpmiddleware.Recovery(),
	), nil
}
