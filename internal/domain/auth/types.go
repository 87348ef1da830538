// Package auth contains domain-level types for identities and client sessions.
// It is pure and free of framework/adapter concerns.
package auth

import (
	"slices"
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and JSON payloads.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManagerial Role = "managerial"
	RoleStandard   Role = "standard"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManagerial, RoleStandard:
		return true
	default:
		return false
	}
}

// Identity is the role-bearing principal exposed to the rest of the application.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
	Department  string `json:"department,omitempty"`
}

// Satisfies returns true when the identity passes a check for any of the required roles.
// Admin satisfies every check.
func (i Identity) Satisfies(required ...Role) bool {
	if i.Role == RoleAdmin {
		return true
	}
	return slices.Contains(required, i.Role)
}

// NormalizeEmail is the canonical form credentials and user records are stored under.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ProviderSession is the live session an identity provider hands back after sign-in.
// Token is opaque to the application and is what the client presents on later requests.
type ProviderSession struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s ProviderSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// EventKind enumerates provider auth-state notifications.
type EventKind string

const (
	EventSignedIn  EventKind = "SIGNED_IN"
	EventSignedOut EventKind = "SIGNED_OUT"
)

// ProviderEvent is delivered asynchronously by the identity provider.
// A SIGNED_OUT event with an empty Session.Token and a non-empty Session.UserID
// signs that user out of every session.
type ProviderEvent struct {
	Kind    EventKind       `json:"event"`
	Session ProviderSession `json:"session"`
}

// UserRecord is the application-side profile row keyed by the provider user id.
type UserRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	RoleString string `json:"role"`
	Department string `json:"department,omitempty"`
}

// SessionState is a point-in-time snapshot of one client's session.
type SessionState struct {
	Resolving     bool      `json:"resolving"`
	Authenticated bool      `json:"authenticated"`
	Identity      *Identity `json:"user,omitempty"`
}

// Authorize reports whether the session passes a role-gated check.
// Anonymous and resolving sessions never pass.
func Authorize(s SessionState, required ...Role) bool {
	if !s.Authenticated || s.Identity == nil {
		return false
	}
	return s.Identity.Satisfies(required...)
}
