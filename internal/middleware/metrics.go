package middleware

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"app-groups-sync/internal/metrics"
)

// Metrics records request counts and latency labelled by the matched route template,
// so ids in paths do not explode label cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		wrapped := wrap(w)

		next.ServeHTTP(wrapped, r)

		route := routeTemplate(r)
		timer.ObserveDurationVec(metrics.HTTPRequestDuration, r.Method, route)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
