package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/convenios-ui/config"
	"github.com/target/convenios-ui/internal/migrate"
)

const (
	connectTimeout      = 5 * time.Second
	defaultMaxOpenConns = 25
)

// DatabaseConfig contains configuration for database and Redis connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// ConnectDB opens the Postgres pool through the pgx stdlib driver and pings it.
func ConnectDB(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", postgresDSN(cfg.DBConfig))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	maxOpen := cfg.DBConfig.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(min(5, maxOpen))
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "database connected",
			"host", cfg.DBConfig.Host,
			"port", cfg.DBConfig.Port,
			"database", cfg.DBConfig.Name,
			"max_open_conns", maxOpen,
		)
	}
	return db, nil
}

// postgresDSN builds a URL-form DSN so credentials with reserved characters survive.
func postgresDSN(cfg config.DBConfig) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	q := u.Query()
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

type redisMode string

const (
	redisDirect   redisMode = "direct"
	redisSentinel redisMode = "sentinel"
	redisCluster  redisMode = "cluster"
)

// ConnectRedis establishes a connection to Redis in direct, sentinel or cluster mode.
//
//nolint:ireturn // the concrete client depends on the configured mode.
func ConnectRedis(ctx context.Context, cfg DatabaseConfig) (redis.UniversalClient, error) {
	mode, opts, err := redisOptions(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}

	var client redis.UniversalClient
	switch mode {
	case redisCluster:
		client = redis.NewClusterClient(opts.Cluster())
	case redisSentinel:
		client = redis.NewFailoverClient(opts.Failover())
	default:
		client = redis.NewClient(opts.Simple())
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis (%s): %w", mode, pingErr)
	}

	if cfg.Logger != nil {
		addrs := make([]string, len(opts.Addrs))
		for i, a := range opts.Addrs {
			addrs[i] = redactAddr(a)
		}
		cfg.Logger.InfoContext(ctx, "redis connected",
			"mode", string(mode),
			"addrs", strings.Join(addrs, ","),
			"master", opts.MasterName,
			"db", opts.DB,
		)
	}
	return client, nil
}

// redisOptions resolves the configured mode into universal options.
// Cluster mode without nodes falls back to the URI as a single seed node.
func redisOptions(cfg config.RedisConfig) (redisMode, *redis.UniversalOptions, error) {
	switch {
	case cfg.UseCluster:
		opts := &redis.UniversalOptions{Addrs: normalizeAddrs(cfg.ClusterNodes), Password: cfg.Password}
		if len(opts.Addrs) == 0 && strings.TrimSpace(cfg.URI) != "" {
			seed, err := optionsFromURI(cfg)
			if err != nil {
				return "", nil, err
			}
			seed.DB = 0
			opts = seed
		}
		if len(opts.Addrs) == 0 {
			return "", nil, errors.New("redis cluster configuration requires at least one address")
		}
		return redisCluster, opts, nil

	case cfg.UseSentinel:
		nodes := normalizeAddrs(cfg.SentinelNodes)
		if len(nodes) == 0 {
			return "", nil, errors.New("redis sentinel configuration requires at least one sentinel node")
		}
		if cfg.SentinelMasterName == "" {
			return "", nil, errors.New("redis sentinel configuration requires a master name")
		}
		return redisSentinel, &redis.UniversalOptions{
			Addrs:            nodes,
			MasterName:       cfg.SentinelMasterName,
			Password:         cfg.Password,
			SentinelPassword: cfg.SentinelPassword,
			DB:               cfg.DB,
		}, nil

	default:
		if strings.TrimSpace(cfg.URI) == "" {
			return "", nil, errors.New("redis direct configuration requires a URI")
		}
		opts, err := optionsFromURI(cfg)
		if err != nil {
			return "", nil, err
		}
		return redisDirect, opts, nil
	}
}

// optionsFromURI accepts either a host:port pair or a redis:// / rediss:// URL.
// A URL carries its own database; its password falls back to the separate setting.
func optionsFromURI(cfg config.RedisConfig) (*redis.UniversalOptions, error) {
	uri := strings.TrimSpace(cfg.URI)
	if !strings.HasPrefix(uri, "redis://") && !strings.HasPrefix(uri, "rediss://") {
		return &redis.UniversalOptions{Addrs: []string{uri}, Password: cfg.Password, DB: cfg.DB}, nil
	}
	parsed, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts := &redis.UniversalOptions{
		Addrs:     []string{parsed.Addr},
		Username:  parsed.Username,
		Password:  parsed.Password,
		DB:        parsed.DB,
		TLSConfig: parsed.TLSConfig,
	}
	if opts.Password == "" {
		opts.Password = cfg.Password
	}
	return opts, nil
}

// redactAddr strips credentials from a Redis address before logging.
func redactAddr(addr string) string {
	if u, err := url.Parse(addr); err == nil && u.User != nil {
		u.User = url.User("*")
		return u.Redacted()
	}
	if i := strings.LastIndex(addr, "@"); i > -1 {
		return addr[i+1:]
	}
	return addr
}

func normalizeAddrs(raw []string) []string {
	result := make([]string, 0, len(raw))
	for _, addr := range raw {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// RunMigrations runs database migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := migrate.Run(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed")
	}

	return nil
}
