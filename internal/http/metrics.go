package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/target/convenios-ui/internal/observability/statsd"
)

// Metrics records a request counter and a latency timing per matched route.
// It must wrap the ServeMux directly so the matched pattern is visible after dispatch.
func Metrics(sink statsd.Sink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if sink == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			tags := map[string]string{
				"method": r.Method,
				"route":  routeTag(r.Pattern),
				"status": strconv.Itoa(ww.status),
			}
			sink.Count("http.requests", 1, tags)
			sink.Timing("http.request_duration", time.Since(start), tags)
		})
	}
}

// routeTag strips the method from a ServeMux pattern ("POST /auth/login" -> "/auth/login").
// Unmatched requests share one tag so arbitrary paths do not explode cardinality.
func routeTag(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	if _, path, ok := strings.Cut(pattern, " "); ok {
		return path
	}
	return pattern
}
