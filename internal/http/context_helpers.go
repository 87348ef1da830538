package httpx

import (
	"context"

	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	"github.com/target/convenios-ui/internal/service"
)

// sessionKey is an unexported context key type to avoid collisions across packages.
type sessionKey struct{}

// SetSessionInContext returns a child context that carries the resolved session machine.
// If m is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, m *service.SessionMachine) context.Context {
	if m == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, m)
}

// SessionFromContext returns the session machine stored by the auth middleware.
func SessionFromContext(ctx context.Context) (*service.SessionMachine, bool) {
	m, ok := ctx.Value(sessionKey{}).(*service.SessionMachine)
	return m, ok && m != nil
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (domainauth.Identity, bool) {
	m, ok := SessionFromContext(ctx)
	if !ok {
		return domainauth.Identity{}, false
	}
	st := m.State()
	if !st.Authenticated || st.Identity == nil {
		return domainauth.Identity{}, false
	}
	return *st.Identity, true
}
