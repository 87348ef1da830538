package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/target/convenios-ui/config"
	redisadapter "github.com/target/convenios-ui/internal/adapters/redis"
	"github.com/target/convenios-ui/internal/data"
	"github.com/target/convenios-ui/internal/devseed"
	"github.com/target/convenios-ui/internal/observability/statsd"
	"github.com/target/convenios-ui/internal/ports"
	"github.com/target/convenios-ui/internal/service"
)

// ServiceDeps contains the infrastructure services are built on.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// ServiceContainer holds every constructed application service.
type ServiceContainer struct {
	Auth     *service.AuthService
	Board    *service.BoardService
	Identity AuthComponents
	// Metrics is disabled (but non-nil) when STATSD_ADDR is empty.
	Metrics *statsd.Client
}

// Close releases resources owned by the container.
func (c ServiceContainer) Close() error {
	return c.Metrics.Close()
}

// NewServices wires the identity provider, the auth service and the board service.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	identity, err := BuildAuth(ctx, AuthConfig{
		Auth:        cfg.Auth,
		EventChan:   cfg.Redis.EventChannel,
		DB:          deps.DB,
		RedisClient: deps.RedisClient,
		HTTPClient:  deps.HTTPClient,
		Logger:      logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	auth := service.NewAuthService(service.AuthServiceOptions{
		Provider: identity.Provider,
		Records:  identity.Records,
		Roles:    identity.Roles,
		Logger:   logger,
	})

	board, err := buildBoardService(cfg.Board, deps, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	metrics, err := statsd.Dial(ctx, statsd.Config{
		Address:    cfg.Metrics.Address,
		Prefix:     cfg.Metrics.Prefix,
		GlobalTags: cfg.Metrics.Tags,
		Logger:     logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("connect metrics: %w", err)
	}

	return ServiceContainer{Auth: auth, Board: board, Identity: identity, Metrics: metrics}, nil
}

func buildBoardService(cfg config.BoardConfig, deps *ServiceDeps, logger *slog.Logger) (*service.BoardService, error) {
	var (
		source ports.WorkItemSource
		writer ports.AssignmentWriter
	)
	switch cfg.Source {
	case config.BoardSourceSample:
		source = devseed.StaticSource{}
	case config.BoardSourcePostgres:
		if deps.DB == nil {
			return nil, errors.New("board: postgres source requires a database")
		}
		repo := data.NewWorkItemRepo(deps.DB)
		source = repo
		if cfg.PersistEnabled() {
			writer = repo
		}
	default:
		return nil, fmt.Errorf("unsupported board source %q", cfg.Source)
	}

	var store ports.BoardStore
	if deps.RedisClient != nil {
		store = redisadapter.NewBoardStore(deps.RedisClient, cfg.StateTTL)
	}

	logger.Info("board configured", "source", cfg.Source, "persist_moves", writer != nil)
	return service.NewBoardService(service.BoardServiceOptions{
		Source:     source,
		Store:      store,
		Writer:     writer,
		DragTTL:    cfg.DragTTL,
		UrgentDays: cfg.UrgentDays,
		Logger:     logger,
	}), nil
}
