package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/target/convenios-ui/config"
	httpx "github.com/target/convenios-ui/internal/http"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewHTTPServer builds the server for cfg without starting it.
func NewHTTPServer(cfg *HTTPServerConfig) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	handler := httpx.NewRouter(httpx.RouterServices{
		Auth:           cfg.Services.Auth,
		Board:          cfg.Services.Board,
		CookieDomain:   appCfg.HTTP.CookieDomain,
		CookieMaxAge:   appCfg.Auth.SessionTTL,
		EventKeepAlive: appCfg.HTTP.EventKeepAlive,
		ReadyChecks:    readyChecks(cfg.DB, cfg.RedisClient),
		Metrics:        cfg.Services.Metrics,
		Logger:         logger,
	})

	addr := appCfg.HTTP.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No write timeout: /auth/events streams for the life of the session.
		IdleTimeout: 120 * time.Second,
	}
}

func readyChecks(db *sql.DB, client redis.UniversalClient) []func(context.Context) error {
	var checks []func(context.Context) error
	if db != nil {
		checks = append(checks, db.PingContext)
	}
	if client != nil {
		checks = append(checks, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
	return checks
}

// RunConfig contains the dependencies for Run.
type RunConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	// Listener is used instead of binding Config.HTTP.Addr when set.
	Listener net.Listener
	Logger   *slog.Logger
}

// Run serves HTTP and receives auth events until ctx is done or a component
// fails, then shuts the server down gracefully.
func Run(ctx context.Context, cfg *RunConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("run config with app config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := NewHTTPServer(&HTTPServerConfig{
		Config:      cfg.Config,
		Services:    cfg.Services,
		DB:          cfg.DB,
		RedisClient: cfg.RedisClient,
		Logger:      logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	// Request contexts end with gctx so open event streams return on shutdown.
	server.BaseContext = func(net.Listener) context.Context { return gctx }

	if events := cfg.Services.Identity.Events; events != nil {
		g.Go(func() error {
			return events.Run(gctx)
		})
	}

	g.Go(func() error {
		var err error
		if cfg.Listener != nil {
			logger.InfoContext(gctx, "starting HTTP server", "addr", cfg.Listener.Addr().String())
			err = server.Serve(cfg.Listener)
		} else {
			logger.InfoContext(gctx, "starting HTTP server", "addr", server.Addr)
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")
		timeout := cfg.Config.HTTP.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		logger.Info("HTTP server stopped")
		return nil
	})

	return g.Wait()
}
