// Package app assembles the folio API: services, middleware and routes.
package app

import (
	"net/http"
	"strconv"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-folio/internal/checkout"
	"github.com/noah-isme/backend-folio/internal/common"
	"github.com/noah-isme/backend-folio/internal/config"
	"github.com/noah-isme/backend-folio/internal/health"
)

// Dependencies enumerates the infrastructure shared across modules.
type Dependencies struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Store     checkout.Store
	DB        health.Pinger
	Redis     *redis.Client
	Validator *validator.Validate
	// Registry receives every collector; /metrics serves it.
	Registry *prometheus.Registry
	Now      func() time.Time
}

// NewLimiterStore wires a rate limiter store backed by Redis.
func NewLimiterStore(rdb *redis.Client) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "folio:limiter"})
}

// NewAPILimiter builds the coarse per-client limiter for the whole API from a
// formatted rate such as "600-M".
func NewAPILimiter(rdb *redis.Client, formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	store, err := NewLimiterStore(rdb)
	if err != nil {
		return nil, err
	}
	return limiter.New(store, rate), nil
}

// apiLimit applies l per client IP. Store failures let the request through.
func apiLimit(l *limiter.Limiter, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lc, err := l.Get(r.Context(), "ip:"+common.ClientIP(r))
			if err != nil {
				log.Warn().Err(err).Msg("api rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))
			if lc.Reached {
				common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, retry later", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
