package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-folio/internal/common"
)

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	// Key returns the bucket for a request; an empty key skips limiting.
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler enforces rate limits before delegating to the next handler.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
	// OnReject is called with the bucket key of every refused request.
	OnReject func(key string)
}

// PerReservation buckets requests by the {param} route parameter, so retries
// against one folio are throttled without affecting other rooms.
func PerReservation(param string) func(*http.Request) string {
	return func(r *http.Request) string {
		id := strings.ToLower(strings.TrimSpace(chi.URLParam(r, param)))
		if id == "" {
			return ""
		}
		return "reservation:" + id
	}
}

// PerClientIP buckets requests by caller address.
func PerClientIP(r *http.Request) string {
	ip := common.ClientIP(r)
	if ip == "" {
		return ""
	}
	return "ip:" + ip
}

// Middleware implements the http.Handler middleware interface. Limiter
// failures let the request through.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Config.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := h.Config.Key(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		d, err := h.Limiter.Allow(r.Context(), key, h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(max(h.Config.Max, 0)))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			if h.OnReject != nil {
				h.OnReject(key)
			}
			retryAfter := max(int(time.Until(d.ResetAt).Seconds()), 0)
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, retry later", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
