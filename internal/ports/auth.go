package ports

// Package ports defines interfaces (hexagonal ports) for identity and board behavior.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/target/convenios-ui/internal/domain/auth"
)

var (
	// ErrSessionNotFound is returned when a provider session token is unknown, revoked or expired.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidCredentials is returned by providers when email or password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrRecordNotFound is returned by a UserRecordStore when no record exists for the id.
	ErrRecordNotFound = errors.New("user record not found")
	// ErrCredentialNotFound is returned by a CredentialStore when no credential exists for the email.
	ErrCredentialNotFound = errors.New("credential not found")
)

// SignUpMetadata is stored alongside a new provider credential.
type SignUpMetadata struct {
	Name string `json:"name"`
}

// SignUpInput groups parameters for IdentityProvider.SignUp.
// Providers that own the user record write it with RoleString in the same step as the credential.
type SignUpInput struct {
	Email      string
	Password   string
	Metadata   SignUpMetadata
	RoleString string
}

// IdentityProvider verifies credentials and owns provider sessions.
type IdentityProvider interface {
	// GetSession returns the live session for token, or ErrSessionNotFound.
	GetSession(ctx context.Context, token string) (domainauth.ProviderSession, error)

	// SignInWithPassword verifies credentials and opens a session. Bad credentials yield ErrInvalidCredentials.
	SignInWithPassword(ctx context.Context, email, password string) (domainauth.ProviderSession, error)

	// SignUp creates a credential and opens a session. A registered email yields ErrDuplicateEmail.
	SignUp(ctx context.Context, in SignUpInput) (domainauth.ProviderSession, error)

	// SignOut invalidates the session for token. Unknown tokens are not an error.
	SignOut(ctx context.Context, token string) error

	// OnAuthStateChange delivers provider events to fn until the returned func is called.
	OnAuthStateChange(ctx context.Context, fn func(domainauth.ProviderEvent)) (unsubscribe func(), err error)
}

// UserRecordStore holds application profiles keyed by provider user id.
type UserRecordStore interface {
	// GetUserRecord returns the record for id, or ErrRecordNotFound.
	GetUserRecord(ctx context.Context, id string) (domainauth.UserRecord, error)
	// CreateUserRecord inserts rec. A taken email yields ErrDuplicateEmail.
	CreateUserRecord(ctx context.Context, rec domainauth.UserRecord) error
}

// RoleMapper maps provider-side role strings to application roles and back.
type RoleMapper interface {
	Map(roleString string) domainauth.Role
	RoleString(role domainauth.Role) string
}

// TokenStore is the registry of live provider sessions. Providers use it for revocation.
type TokenStore interface {
	Put(ctx context.Context, sess domainauth.ProviderSession) error
	Get(ctx context.Context, token string) (domainauth.ProviderSession, error)
	Delete(ctx context.Context, token string) error
	// DeleteUser drops every session of userID and reports how many were removed.
	DeleteUser(ctx context.Context, userID string) (int, error)
}

// EventBus fans provider events out to every subscribed session machine.
type EventBus interface {
	Publish(ctx context.Context, ev domainauth.ProviderEvent) error
	Subscribe(ctx context.Context, fn func(domainauth.ProviderEvent)) (unsubscribe func(), err error)
}

// Credential is a locally managed password credential.
type Credential struct {
	ID           string
	Email        string
	PasswordHash string
	Metadata     SignUpMetadata
	CreatedAt    time.Time
}

// CredentialStore persists local password credentials.
type CredentialStore interface {
	// GetCredentialByEmail returns the credential for email, or ErrCredentialNotFound.
	GetCredentialByEmail(ctx context.Context, email string) (Credential, error)
	// CreateAccount inserts the credential and its user record atomically and returns the
	// credential with ID and CreatedAt set. A taken email yields ErrDuplicateEmail and writes nothing.
	CreateAccount(ctx context.Context, a Account) (Credential, error)
}

// Account is a new login together with its application profile.
type Account struct {
	Email        string
	PasswordHash string
	Name         string
	RoleString   string
	Department   string
}
