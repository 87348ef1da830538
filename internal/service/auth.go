package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/convenios-ui/internal/data"
	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	"github.com/target/convenios-ui/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider     ports.IdentityProvider
	Records      ports.UserRecordStore
	Roles        ports.RoleMapper
	TimeProvider data.TimeProvider
	Logger       *slog.Logger
}

// AuthService builds session machines and resolves provider sessions into identities.
type AuthService struct {
	provider     ports.IdentityProvider
	records      ports.UserRecordStore
	roles        ports.RoleMapper
	timeProvider data.TimeProvider
	logger       *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &AuthService{
		provider:     opts.Provider,
		records:      opts.Records,
		roles:        opts.Roles,
		timeProvider: opts.TimeProvider,
		logger:       opts.Logger,
	}
}

// NewMachine returns a machine in the Resolving state holding token.
// An empty token resolves to Anonymous.
func (s *AuthService) NewMachine(token string) *SessionMachine {
	return newSessionMachine(s, token)
}

// Resolve builds a machine for token and runs the session check. Used per request.
func (s *AuthService) Resolve(ctx context.Context, token string) *SessionMachine {
	m := s.NewMachine(token)
	m.CheckExistingSession(ctx)
	return m
}

// resolveIdentity performs the identity record lookup for a provider user id.
func (s *AuthService) resolveIdentity(ctx context.Context, userID string) (domainauth.Identity, error) {
	if userID == "" {
		return domainauth.Identity{}, errors.New("provider session has no user id")
	}
	rec, err := s.records.GetUserRecord(ctx, userID)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("get user record: %w", err)
	}
	return s.identityFromRecord(rec), nil
}

func (s *AuthService) identityFromRecord(rec domainauth.UserRecord) domainauth.Identity {
	return domainauth.Identity{
		ID:          rec.ID,
		DisplayName: rec.Name,
		Email:       rec.Email,
		Role:        s.roles.Map(rec.RoleString),
		Department:  rec.Department,
	}
}
