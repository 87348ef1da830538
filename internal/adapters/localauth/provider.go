// Package localauth is the built-in identity provider: bcrypt password credentials,
// HS256 access tokens and a revocable session registry.
package localauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	"github.com/target/convenios-ui/internal/ports"
)

const (
	defaultSessionTTL = 8 * time.Hour
	issuer            = "convenios"
)

var _ ports.IdentityProvider = (*Provider)(nil)

// Options configures the local provider.
// Credentials, Tokens and Secret are required. Events may be nil when no
// cross-process notifications are needed.
type Options struct {
	Credentials ports.CredentialStore
	Tokens      ports.TokenStore
	Events      ports.EventBus
	Secret      string
	SessionTTL  time.Duration // default 8h when zero
	BcryptCost  int           // default bcrypt.DefaultCost when zero
	Now         func() time.Time
	Logger      *slog.Logger
}

// Provider implements ports.IdentityProvider with locally stored credentials.
type Provider struct {
	creds  ports.CredentialStore
	tokens ports.TokenStore
	events ports.EventBus
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
	logger *slog.Logger

	// dummyHash is compared against when an email is unknown.
	dummyHash []byte
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// NewProvider validates opts and builds a Provider.
func NewProvider(opts Options) (*Provider, error) {
	if opts.Credentials == nil {
		return nil, errors.New("local auth: credential store is required")
	}
	if opts.Tokens == nil {
		return nil, errors.New("local auth: token store is required")
	}
	if strings.TrimSpace(opts.Secret) == "" {
		return nil, errors.New("local auth: jwt secret is required")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("local auth: prepare dummy hash: %w", err)
	}

	return &Provider{
		creds:     opts.Credentials,
		tokens:    opts.Tokens,
		events:    opts.Events,
		secret:    []byte(opts.Secret),
		ttl:       opts.SessionTTL,
		cost:      opts.BcryptCost,
		now:       opts.Now,
		logger:    opts.Logger,
		dummyHash: dummy,
	}, nil
}

// HashPassword returns the bcrypt hash stored for a local credential.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (p *Provider) GetSession(ctx context.Context, token string) (domainauth.ProviderSession, error) {
	claims, err := p.parse(token)
	if err != nil {
		return domainauth.ProviderSession{}, fmt.Errorf("%w: %w", ports.ErrSessionNotFound, err)
	}

	sess, err := p.tokens.Get(ctx, token)
	if err != nil {
		return domainauth.ProviderSession{}, err
	}
	if sess.UserID != claims.Subject {
		return domainauth.ProviderSession{}, fmt.Errorf("%w: subject mismatch", ports.ErrSessionNotFound)
	}
	return sess, nil
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (domainauth.ProviderSession, error) {
	cred, err := p.creds.GetCredentialByEmail(ctx, domainauth.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ports.ErrCredentialNotFound) {
			// Same bcrypt cost as a wrong password.
			_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(password))
			return domainauth.ProviderSession{}, ports.ErrInvalidCredentials
		}
		return domainauth.ProviderSession{}, fmt.Errorf("get credential: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return domainauth.ProviderSession{}, ports.ErrInvalidCredentials
	}
	return p.issue(ctx, cred)
}

func (p *Provider) SignUp(ctx context.Context, in ports.SignUpInput) (domainauth.ProviderSession, error) {
	email := domainauth.NormalizeEmail(in.Email)
	if email == "" {
		return domainauth.ProviderSession{}, errors.New("email is required")
	}
	hash, err := HashPassword(in.Password, p.cost)
	if err != nil {
		return domainauth.ProviderSession{}, err
	}

	cred, err := p.creds.CreateAccount(ctx, ports.Account{
		Email:        email,
		PasswordHash: hash,
		Name:         in.Metadata.Name,
		RoleString:   in.RoleString,
	})
	if err != nil {
		return domainauth.ProviderSession{}, fmt.Errorf("create account: %w", err)
	}
	return p.issue(ctx, cred)
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

// SignOutUser revokes every session of userID and tells every process about it.
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

func (p *Provider) issue(ctx context.Context, cred ports.Credential) (domainauth.ProviderSession, error) {
	now := p.now()
	exp := now.Add(p.ttl)
	claims := accessClaims{
		Email: cred.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   cred.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return domainauth.ProviderSession{}, fmt.Errorf("sign access token: %w", err)
	}

	sess := domainauth.ProviderSession{
		Token:     signed,
		UserID:    cred.ID,
		Email:     cred.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := p.tokens.Put(ctx, sess); err != nil {
		return domainauth.ProviderSession{}, fmt.Errorf("store session: %w", err)
	}

	p.publish(ctx, domainauth.ProviderEvent{Kind: domainauth.EventSignedIn, Session: sess})
	return sess, nil
}

func (p *Provider) parse(token string) (*accessClaims, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	claims := &accessClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("subject claim required")
	}
	return claims, nil
}

func (p *Provider) publish(ctx context.Context, ev domainauth.ProviderEvent) {
	if p.events == nil {
		return
	}
	if err := p.events.Publish(ctx, ev); err != nil {
		p.logger.WarnContext(ctx, "publish auth event failed", "event", ev.Kind, "error", err)
	}
}
