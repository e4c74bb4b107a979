package app

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-folio/internal/checkout"
	"github.com/noah-isme/backend-folio/internal/common"
	"github.com/noah-isme/backend-folio/internal/health"
	"github.com/noah-isme/backend-folio/internal/lock"
	"github.com/noah-isme/backend-folio/internal/obs"
	"github.com/noah-isme/backend-folio/internal/payment"
	"github.com/noah-isme/backend-folio/internal/ratelimit"
	"github.com/noah-isme/backend-folio/internal/security"
	"github.com/noah-isme/backend-folio/internal/taxconfig"
	"github.com/noah-isme/backend-folio/internal/voucher"
)

// NewRouter builds every service over d and mounts the HTTP surface.
func NewRouter(d Dependencies) (http.Handler, error) {
	cfg := d.Config
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	if d.Validator == nil {
		d.Validator = validator.New()
	}
	log := d.Logger

	folioMetrics := obs.NewFolioMetrics(cfg.Obs.MetricsNamespace, d.Registry)
	httpMetrics := obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.HTTPBuckets), d.Registry)

	locker := lock.Locker{R: d.Redis, MaxWait: cfg.CheckoutLockWait}
	vouchers := &voucher.Service{Q: d.Store, Now: d.Now}
	taxes := &taxconfig.Service{
		Q:     d.Store,
		Cache: taxconfig.NewCache(d.Redis, cfg.TaxCacheTTL),
		Log:   log.With().Str("component", "taxconfig").Logger(),
	}
	payments := &payment.Service{
		Q:       d.Store,
		Locker:  locker,
		LockTTL: cfg.CheckoutLockTTL,
		Metrics: folioMetrics,
		Log:     log.With().Str("component", "payment").Logger(),
	}
	checkouts := &checkout.Service{
		Store:                     d.Store,
		Vouchers:                  vouchers,
		Taxes:                     taxes,
		Locker:                    locker,
		LockTTL:                   cfg.CheckoutLockTTL,
		BaseCurrency:              cfg.BaseCurrency,
		Policy:                    cfg.NightPolicy(),
		LargeTransactionThreshold: cfg.LargeTransactionThreshold,
		Now:                       d.Now,
		Metrics:                   folioMetrics,
		Log:                       log.With().Str("component", "checkout").Logger(),
	}

	checkoutHandler := &checkout.Handler{Svc: checkouts, Validate: d.Validator}
	paymentHandler := &payment.Handler{Svc: payments, Validate: d.Validator}
	voucherHandler := &voucher.Handler{Svc: vouchers, Validate: d.Validator}
	taxHandler := &taxconfig.Handler{Svc: taxes}
	healthHandler := health.Handler{Checker: health.Deps{DB: d.DB, Redis: d.Redis}}

	idem := common.Idem{R: d.Redis, TTL: cfg.IdempotencyTTL}
	onLimiterError := func(err error) { log.Warn().Err(err).Msg("rate limiter unavailable") }
	onReject := func(key string) { log.Info().Str("bucket", key).Msg("rate limited") }
	checkoutLimit := ratelimit.Handler{
		Limiter:  ratelimit.Limiter{Client: d.Redis},
		Config:   ratelimit.Config{Key: ratelimit.PerReservation("id"), Window: cfg.CheckoutRateWindow, Max: cfg.CheckoutRateLimit},
		OnError:  onLimiterError,
		OnReject: onReject,
	}
	walkInLimit := ratelimit.Handler{
		Limiter:  ratelimit.Limiter{Client: d.Redis},
		Config:   ratelimit.Config{Key: ratelimit.PerClientIP, Window: cfg.CheckoutRateWindow, Max: cfg.WalkInRateLimit},
		OnError:  onLimiterError,
		OnReject: onReject,
	}

	var apiLimiter func(http.Handler) http.Handler
	if d.Redis != nil {
		l, err := NewAPILimiter(d.Redis, cfg.APIRateLimit)
		if err != nil {
			return nil, err
		}
		apiLimiter = apiLimit(l, log)
	} else {
		apiLimiter = apiLimit(nil, log)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.EnableHSTS}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.MaxBodyBytes}.Middleware)
	if cfg.Obs.EnableTracing {
		r.Use(obs.RouteSpanMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: log}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key", "X-Actor-ID", "X-Actor-Role", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Idempotent-Replayed", "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(common.ActorMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	if cfg.Obs.EnablePprof {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.Obs.PprofUser, cfg.Obs.PprofPass))
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/v1", func(v chi.Router) {
		v.Use(apiLimiter)

		v.Route("/reservations/{id}", func(res chi.Router) {
			res.Get("/folio", checkoutHandler.Preview)
			res.With(idem.Middleware).Post("/payments", paymentHandler.Record)
			res.With(checkoutLimit.Middleware, idem.Middleware).Post("/checkout", checkoutHandler.Checkout)
		})
		v.With(walkInLimit.Middleware, idem.Middleware).Post("/walk-in-sales", checkoutHandler.WalkInSale)
		v.Post("/vouchers/preview", voucherHandler.Preview)
		v.Get("/tax-config", taxHandler.Active)
		v.Post("/tax-config/refresh", taxHandler.Refresh)
	})

	if !cfg.Obs.EnableTracing {
		return r, nil
	}
	return otelhttp.NewHandler(r, "folio-api",
		otelhttp.WithFilter(func(req *http.Request) bool {
			return !strings.HasPrefix(req.URL.Path, "/health") && req.URL.Path != "/metrics"
		}),
	), nil
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
