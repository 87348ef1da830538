package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	"github.com/target/convenios-ui/internal/observability/statsd"
	"github.com/target/convenios-ui/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth         *service.AuthService
	Board        *service.BoardService
	CookieDomain string
	CookieMaxAge time.Duration
	// EventKeepAlive is the idle interval on /auth/events. Zero uses the default.
	EventKeepAlive time.Duration
	// ReadyChecks back GET /readyz, e.g. database and Redis pings.
	ReadyChecks []func(context.Context) error
	// Metrics receives per-route request counts and latencies. Optional.
	Metrics statsd.Sink
	Logger  *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{
		Svc:          services.Auth,
		CookieDomain: services.CookieDomain,
		CookieMaxAge: services.CookieMaxAge,
		Logger:       logger,
	}
	if services.Board != nil {
		authHandlers.Boards = services.Board
	}
	registerAuthRoutes(mux, authHandlers, &EventHandlers{Svc: services.Auth, KeepAlive: services.EventKeepAlive, Logger: logger})
	registerBoardRoutes(mux, &BoardHandlers{Svc: services.Board, Logger: logger}, services.Auth)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler(services.ReadyChecks...))

	return Recover(logger)(Logging(logger)(Metrics(services.Metrics)(mux)))
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, events *EventHandlers) {
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/register", h.Register)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
	mux.HandleFunc("GET /auth/events", events.Stream)
}

func registerBoardRoutes(mux *http.ServeMux, h *BoardHandlers, auth SessionResolver) {
	authed := RequireAuth(auth)
	editor := RequireRole(auth, domainauth.RoleManagerial)

	mux.Handle("GET /api/board", authed(http.HandlerFunc(h.View)))
	mux.Handle("POST /api/board/reset", authed(http.HandlerFunc(h.Reset)))
	mux.Handle("POST /api/board/drag-start", editor(http.HandlerFunc(h.DragStart)))
	mux.Handle("POST /api/board/drag-over", editor(http.HandlerFunc(h.DragOver)))
	mux.Handle("POST /api/board/drop", editor(http.HandlerFunc(h.Drop)))
	mux.Handle("POST /api/board/drag-cancel", editor(http.HandlerFunc(h.CancelDrag)))
}
