package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-folio/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		BaseCurrency:              "IDR",
		HotelLocation:             time.UTC,
		LateCheckoutCutoff:        14 * time.Hour,
		LargeTransactionThreshold: decimal.NewFromInt(50000000),
		CheckoutLockTTL:           5 * time.Second,
		CheckoutLockWait:          100 * time.Millisecond,
		IdempotencyTTL:            time.Minute,
		TaxCacheTTL:               time.Minute,
		CheckoutRateLimit:         1,
		CheckoutRateWindow:        time.Minute,
		APIRateLimit:              "100-M",
		WalkInRateLimit:           10,
		MaxBodyBytes:              1 << 10,
		SecurityHeaders:           true,
		Obs:                       config.ObsConfig{MetricsNamespace: "folio"},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	h, err := NewRouter(Dependencies{Config: cfg, Logger: zerolog.Nop(), Redis: rdb})
	require.NoError(t, err)
	return h
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthAndHeaders(t *testing.T) {
	h := newTestRouter(t, testConfig())

	rec := serve(h, http.MethodGet, "/health/live", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = serve(h, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "db not configured")

	rec = serve(h, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestRouterServesMetrics(t *testing.T) {
	h := newTestRouter(t, testConfig())
	serve(h, http.MethodGet, "/health/live", "")

	rec := serve(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "folio_http_requests_total")
}

func TestRouterAPILimiter(t *testing.T) {
	cfg := testConfig()
	cfg.APIRateLimit = "2-M"
	h := newTestRouter(t, cfg)

	for i := 0; i < 2; i++ {
		rec := serve(h, http.MethodGet, "/v1/reservations/abc/folio", "")
		require.NotEqual(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := serve(h, http.MethodGet, "/v1/reservations/abc/folio", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), "RATE_LIMITED")

	rec = serve(h, http.MethodGet, "/health/live", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterCheckoutLimitedPerReservation(t *testing.T) {
	h := newTestRouter(t, testConfig())

	rec := serve(h, http.MethodPost, "/v1/reservations/abc/checkout", `{}`)
	require.NotEqual(t, http.StatusTooManyRequests, rec.Code)
	rec = serve(h, http.MethodPost, "/v1/reservations/abc/checkout", `{}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	rec = serve(h, http.MethodPost, "/v1/reservations/def/checkout", `{}`)
	require.NotEqual(t, http.StatusTooManyRequests, rec.Code)
}

func TestRouterRejectsOversizedBody(t *testing.T) {
	h := newTestRouter(t, testConfig())
	rec := serve(h, http.MethodPost, "/v1/vouchers/preview", `{"code":"`+strings.Repeat("A", 2048)+`"}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestNewRouterRequiresConfig(t *testing.T) {
	_, err := NewRouter(Dependencies{})
	require.Error(t, err)

	cfg := testConfig()
	cfg.APIRateLimit = "lots"
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()
	_, err = NewRouter(Dependencies{Config: cfg, Redis: rdb})
	require.Error(t, err)
}

func TestProtectPprof(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := protectPprof(ok, "ops", "secret")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("ops", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
