package obs

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// RouteInfo describes the route a request matched. Pattern keeps metric
// labels bounded; ReservationID tags folio requests in logs and spans.
type RouteInfo struct {
	Pattern       string
	ReservationID string
}

type routeInfoKey struct{}

// WithRoute pins info on ctx, overriding what chi reports.
func WithRoute(ctx context.Context, info RouteInfo) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routeInfoKey{}, info)
}

// RouteFrom reports the matched route of r. chi fills its route context while
// routing, so outer middleware must call this after the handler returns.
func RouteFrom(r *http.Request) RouteInfo {
	info, _ := r.Context().Value(routeInfoKey{}).(RouteInfo)
	rc := chi.RouteContext(r.Context())
	if rc == nil {
		return info
	}
	if info.Pattern == "" {
		info.Pattern = rc.RoutePattern()
	}
	if info.ReservationID == "" && strings.Contains(info.Pattern, "/reservations/{id}") {
		info.ReservationID = rc.URLParam("id")
	}
	return info
}
