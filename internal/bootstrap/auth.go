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
	"github.com/target/convenios-ui/internal/adapters/authroles"
	"github.com/target/convenios-ui/internal/adapters/localauth"
	"github.com/target/convenios-ui/internal/adapters/oidc"
	redisadapter "github.com/target/convenios-ui/internal/adapters/redis"
	"github.com/target/convenios-ui/internal/data"
	"github.com/target/convenios-ui/internal/ports"
)

// SessionRevoker ends every session of a user. Both providers implement it.
type SessionRevoker interface {
	SignOutUser(ctx context.Context, userID string) (int, error)
}

// IdentityProvider is a provider that can also revoke all sessions of a user.
type IdentityProvider interface {
	ports.IdentityProvider
	SessionRevoker
}

// AuthConfig contains configuration for the identity provider.
type AuthConfig struct {
	Auth        config.AuthConfig
	EventChan   string
	DB          *sql.DB
	RedisClient redis.UniversalClient
	// HTTPClient is used for OIDC discovery and token requests. Optional.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// AuthComponents holds the provider and the shared stores it was built on.
type AuthComponents struct {
	Provider IdentityProvider
	Tokens   *redisadapter.TokenStore
	Events   *redisadapter.EventBus
	Records  *data.UserRecordRepo
	Roles    authroles.StaticRoleMapper
}

// BuildAuth creates the identity provider selected by cfg.Auth.Mode.
func BuildAuth(ctx context.Context, cfg AuthConfig) (AuthComponents, error) {
	if cfg.RedisClient == nil {
		return AuthComponents{}, errors.New("auth: redis client is required")
	}
	if cfg.DB == nil {
		return AuthComponents{}, errors.New("auth: database is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	out := AuthComponents{
		Tokens: redisadapter.NewTokenStore(cfg.RedisClient, redisadapter.TokenStoreOptions{
			FallbackTTL: cfg.Auth.SessionTTL,
		}),
		Events: redisadapter.NewEventBus(cfg.RedisClient, redisadapter.EventBusOptions{
			Channel: cfg.EventChan,
			Logger:  logger,
		}),
		Records: data.NewUserRecordRepo(cfg.DB),
		Roles:   authroles.New(cfg.Auth.Roles.Admin, cfg.Auth.Roles.Managerial, cfg.Auth.Roles.Standard),
	}

	switch cfg.Auth.Mode {
	case config.AuthModeLocal:
		prov, err := localauth.NewProvider(localauth.Options{
			Credentials: data.NewCredentialRepo(cfg.DB),
			Tokens:      out.Tokens,
			Events:      out.Events,
			Secret:      cfg.Auth.Local.JWTSecret,
			SessionTTL:  cfg.Auth.SessionTTL,
			BcryptCost:  cfg.Auth.Local.BcryptCost,
			Logger:      logger,
		})
		if err != nil {
			return AuthComponents{}, fmt.Errorf("build local provider: %w", err)
		}
		out.Provider = prov

	case config.AuthModeOIDC:
		prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
			ClientID:     cfg.Auth.OIDC.ClientID,
			ClientSecret: cfg.Auth.OIDC.ClientSecret,
			Scope:        cfg.Auth.OIDC.Scope,
			DiscoveryURL: cfg.Auth.OIDC.DiscoveryURL,
			RoleClaim:    cfg.Auth.OIDC.RoleClaim,
			SessionTTL:   cfg.Auth.SessionTTL,
			HTTPClient:   cfg.HTTPClient,
			Records:      out.Records,
			Tokens:       out.Tokens,
			Events:       out.Events,
			Logger:       logger,
		})
		if err != nil {
			return AuthComponents{}, fmt.Errorf("build oidc provider: %w", err)
		}
		out.Provider = prov

	default:
		return AuthComponents{}, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}

	logger.InfoContext(ctx, "identity provider configured", "mode", cfg.Auth.Mode)
	return out, nil
}
