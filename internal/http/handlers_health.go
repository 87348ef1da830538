package httpx

import (
	"context"
	"io"
	"net/http"
	"time"
)

const (
	healthResponse   = `{"status":"ok"}`
	degradedResponse = `{"status":"unavailable"}`
	readyTimeout     = 2 * time.Second
)

// healthHandler returns a simple 200 OK status for liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, r, http.StatusOK, healthResponse)
}

// readyHandler reports 503 while any dependency check fails.
func readyHandler(checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		for _, check := range checks {
			if err := check(ctx); err != nil {
				writeHealth(w, r, http.StatusServiceUnavailable, degradedResponse)
				return
			}
		}
		writeHealth(w, r, http.StatusOK, healthResponse)
	}
}

func writeHealth(w http.ResponseWriter, r *http.Request, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, body); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}
