package oidc

// Package oidc provides an OpenID Connect identity provider for convenios.
// Sign-in uses the resource-owner password grant; sessions are opaque tokens
// registered in the shared token store.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/oauth2"

	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	"github.com/target/convenios-ui/internal/ports"
)

const (
	defaultRoleClaim  = "app_metadata.tipo_usuario"
	defaultSessionTTL = 8 * time.Hour
)

// ErrSignUpUnsupported is returned by SignUp; accounts are managed by the OIDC issuer.
var ErrSignUpUnsupported = errors.New("sign up is not supported by the oidc provider")

var _ ports.IdentityProvider = (*Provider)(nil)

// Provider implements ports.IdentityProvider against an OIDC issuer.
type Provider struct {
	config     *oauth2.Config
	httpClient *http.Client
	roleClaim  string
	ttl        time.Duration
	now        func() time.Time
	logger     *slog.Logger

	records ports.UserRecordStore
	tokens  ports.TokenStore
	events  ports.EventBus

	verifier *gooidc.IDTokenVerifier
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	DiscoveryURL string
	// RoleClaim is a JMESPath expression evaluated against the ID token claims.
	RoleClaim  string
	SessionTTL time.Duration // caps sessions whose access token has no expiry
	HTTPClient *http.Client  // Optional, defaults to a client with a 30s timeout

	Records ports.UserRecordStore
	Tokens  ports.TokenStore
	Events  ports.EventBus // Optional
	Now     func() time.Time
	Logger  *slog.Logger
}

// NewProvider creates a new OIDC provider. It fetches the discovery document once.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if config.RoleClaim == "" {
		config.RoleClaim = defaultRoleClaim
	}
	if _, err := jmespath.Compile(config.RoleClaim); err != nil {
		return nil, fmt.Errorf("compile role claim %q: %w", config.RoleClaim, err)
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = defaultSessionTTL
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	scopes := strings.Fields(config.Scope)
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "email", "profile"}
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Scopes:       scopes,
			Endpoint:     op.Endpoint(),
		},
		httpClient: httpClient,
		roleClaim:  config.RoleClaim,
		ttl:        config.SessionTTL,
		now:        config.Now,
		logger:     config.Logger,
		records:    config.Records,
		tokens:     config.Tokens,
		events:     config.Events,
		verifier:   op.Verifier(&gooidc.Config{ClientID: config.ClientID, Now: config.Now}),
	}, nil
}

func validateConfig(config ProviderConfig) error {
	switch {
	case config.ClientID == "":
		return errors.New("client ID is required")
	case config.ClientSecret == "":
		return errors.New("client secret is required")
	case config.DiscoveryURL == "":
		return errors.New("discovery URL is required")
	case config.Records == nil:
		return errors.New("user record store is required")
	case config.Tokens == nil:
		return errors.New("token store is required")
	}
	return nil
}

func (p *Provider) GetSession(ctx context.Context, token string) (domainauth.ProviderSession, error) {
	return p.tokens.Get(ctx, token)
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (domainauth.ProviderSession, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := p.config.PasswordCredentialsToken(ctx, strings.TrimSpace(email), password)
	if err != nil {
		if isInvalidGrant(err) {
			return domainauth.ProviderSession{}, ports.ErrInvalidCredentials
		}
		return domainauth.ProviderSession{}, fmt.Errorf("password grant: %w", err)
	}

	fields, err := p.extractFromIDToken(ctx, tok)
	if err != nil {
		return domainauth.ProviderSession{}, fmt.Errorf("extract id_token: %w", err)
	}
	if err := p.provision(ctx, fields); err != nil {
		return domainauth.ProviderSession{}, err
	}

	opaque, err := generateRandomString(43)
	if err != nil {
		return domainauth.ProviderSession{}, fmt.Errorf("generate session token: %w", err)
	}
	expiresAt := p.now().Add(p.ttl)
	if !tok.Expiry.IsZero() && tok.Expiry.Before(expiresAt) {
		expiresAt = tok.Expiry
	}
	sess := domainauth.ProviderSession{
		Token:     opaque,
		UserID:    fields.userID,
		Email:     fields.email,
		ExpiresAt: expiresAt,
	}
	if err := p.tokens.Put(ctx, sess); err != nil {
		return domainauth.ProviderSession{}, fmt.Errorf("store session: %w", err)
	}
	p.publish(ctx, domainauth.ProviderEvent{Kind: domainauth.EventSignedIn, Session: sess})
	return sess, nil
}

func (p *Provider) SignUp(context.Context, ports.SignUpInput) (domainauth.ProviderSession, error) {
	return domainauth.ProviderSession{}, ErrSignUpUnsupported
}

func (p *Provider) SignOut(ctx context.Context, token string) error {
	sess, err := p.tokens.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("get session: %w", err)
	}
	if err := p.tokens.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	p.publish(ctx, domainauth.ProviderEvent{
		Kind:    domainauth.EventSignedOut,
		Session: domainauth.ProviderSession{Token: token, UserID: sess.UserID, Email: sess.Email},
	})
	return nil
}

// SignOutUser revokes every session of userID.
func (p *Provider) SignOutUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, errors.New("user id is required")
	}
	n, err := p.tokens.DeleteUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	p.publish(ctx, domainauth.ProviderEvent{
		Kind:    domainauth.EventSignedOut,
		Session: domainauth.ProviderSession{UserID: userID},
	})
	return n, nil
}

func (p *Provider) OnAuthStateChange(ctx context.Context, fn func(domainauth.ProviderEvent)) (func(), error) {
	if p.events == nil {
		return func() {}, nil
	}
	return p.events.Subscribe(ctx, fn)
}

// provision creates the user record on first sign-in. Existing records are left alone;
// the application table is authoritative for roles once a user exists.
func (p *Provider) provision(ctx context.Context, f idFields) error {
	_, err := p.records.GetUserRecord(ctx, f.userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ports.ErrRecordNotFound) {
		return fmt.Errorf("get user record: %w", err)
	}
	rec := domainauth.UserRecord{
		ID:         f.userID,
		Name:       firstNonEmpty(f.name, f.email),
		Email:      f.email,
		RoleString: f.role,
	}
	if err := p.records.CreateUserRecord(ctx, rec); err != nil {
		return fmt.Errorf("create user record: %w", err)
	}
	p.logger.InfoContext(ctx, "provisioned user record", "user_id", f.userID, "role", f.role)
	return nil
}

type idFields struct {
	userID string
	email  string
	name   string
	role   string
}

func (p *Provider) extractFromIDToken(ctx context.Context, tok *oauth2.Token) (idFields, error) {
	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		return idFields{}, err
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return idFields{}, fmt.Errorf("verify id_token: %w", err)
	}
	var claims map[string]any
	if err := idTok.Claims(&claims); err != nil {
		return idFields{}, fmt.Errorf("parse id_token claims: %w", err)
	}
	f, err := mapClaims(claims, p.roleClaim)
	if err != nil {
		return idFields{}, err
	}
	if f.userID == "" {
		return idFields{}, errors.New("id_token has no subject")
	}
	return f, nil
}

// mapClaims reads identity fields from raw claims. The role comes from the
// roleClaim JMESPath expression; a missing or non-string value yields "".
func mapClaims(claims map[string]any, roleClaim string) (idFields, error) {
	f := idFields{
		userID: stringClaim(claims, "sub"),
		email:  strings.ToLower(stringClaim(claims, "email")),
		name: firstNonEmpty(
			stringClaim(claims, "name"),
			strings.TrimSpace(stringClaim(claims, "given_name")+" "+stringClaim(claims, "family_name")),
		),
	}
	v, err := jmespath.Search(roleClaim, claims)
	if err != nil {
		return idFields{}, fmt.Errorf("evaluate role claim: %w", err)
	}
	if s, ok := v.(string); ok {
		f.role = s
	}
	return f, nil
}

func stringClaim(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}

func isInvalidGrant(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return false
	}
	if re.ErrorCode == "invalid_grant" {
		return true
	}
	return re.Response != nil && re.Response.StatusCode == http.StatusUnauthorized
}

func (p *Provider) publish(ctx context.Context, ev domainauth.ProviderEvent) {
	if p.events == nil {
		return
	}
	if err := p.events.Publish(ctx, ev); err != nil {
		p.logger.WarnContext(ctx, "publish auth event failed", "event", ev.Kind, "error", err)
	}
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < length {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
