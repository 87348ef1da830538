package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the identity provider the application signs users in with.
type AuthMode string

const (
	// AuthModeLocal keeps bcrypt credentials in Postgres and issues signed access tokens.
	AuthModeLocal AuthMode = "local"
	// AuthModeOIDC delegates password verification to an OpenID Connect provider.
	AuthModeOIDC AuthMode = "oidc"
)

const (
	minJWTSecretLen   = 32
	minBcryptCost     = 4
	maxBcryptCost     = 31
	defaultSessionTTL = 8 * time.Hour
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "local", "oidc":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: local, oidc)", v)
	}
}

// LocalAuthConfig configures the built-in provider (AUTH_MODE=local).
type LocalAuthConfig struct {
	// JWTSecret signs access tokens. At least 32 bytes.
	JWTSecret  string `env:"JWT_SECRET"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"10"`
}

// OIDCConfig configures the OpenID Connect provider (AUTH_MODE=oidc).
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	// RoleClaim is a JMESPath expression evaluated against the ID token claims.
	RoleClaim string `env:"ROLE_CLAIM" envDefault:"app_metadata.tipo_usuario"`
}

// RoleVocabulary names the role strings stored in user records.
type RoleVocabulary struct {
	Admin      string `env:"AUTH_ADMIN_ROLE"      envDefault:"admin"`
	Managerial string `env:"AUTH_MANAGERIAL_ROLE" envDefault:"gerente"`
	Standard   string `env:"AUTH_STANDARD_ROLE"   envDefault:"padrao"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"local"`

	// SessionTTL bounds provider sessions and the session cookie.
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"8h"`

	Local LocalAuthConfig `envPrefix:"AUTH_"`
	OIDC  OIDCConfig      `envPrefix:"OIDC_"`
	Roles RoleVocabulary
}

// Sanitize clamps values to ranges the providers accept.
func (a *AuthConfig) Sanitize() {
	if a.SessionTTL <= 0 {
		a.SessionTTL = defaultSessionTTL
	}
	if a.Local.BcryptCost < minBcryptCost {
		a.Local.BcryptCost = minBcryptCost
	}
	if a.Local.BcryptCost > maxBcryptCost {
		a.Local.BcryptCost = maxBcryptCost
	}
	a.Roles.Admin = strings.TrimSpace(a.Roles.Admin)
	a.Roles.Managerial = strings.TrimSpace(a.Roles.Managerial)
	a.Roles.Standard = strings.TrimSpace(a.Roles.Standard)
}

// Validate checks the settings required by the selected mode.
func (a *AuthConfig) Validate() error {
	var errs []error
	switch a.Mode {
	case AuthModeLocal:
		if len(a.Local.JWTSecret) < minJWTSecretLen {
			errs = append(errs, fmt.Errorf("AUTH_JWT_SECRET must be at least %d bytes", minJWTSecretLen))
		}
	case AuthModeOIDC:
		if a.OIDC.ClientID == "" {
			errs = append(errs, errors.New("OIDC_CLIENT_ID is required"))
		}
		if a.OIDC.DiscoveryURL == "" {
			errs = append(errs, errors.New("OIDC_DISCOVERY_URL is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported AUTH_MODE %q", a.Mode))
	}
	if a.Roles.Admin == "" || a.Roles.Managerial == "" || a.Roles.Standard == "" {
		errs = append(errs, errors.New("role vocabulary must not be empty"))
	} else if a.Roles.Admin == a.Roles.Managerial || a.Roles.Admin == a.Roles.Standard ||
		a.Roles.Managerial == a.Roles.Standard {
		errs = append(errs, errors.New("role vocabulary entries must be distinct"))
	}
	return errors.Join(errs...)
}
