package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	"github.com/target/convenios-ui/internal/ports"
)

func TestMemoryProvider_SignInAndSignOut(t *testing.T) {
	p := NewMemoryProvider()
	p.AddUser("u1", "Admin@Example.com", "admin123")
	ctx := context.Background()

	_, err := p.SignInWithPassword(ctx, "admin@example.com", "wrong")
	require.ErrorIs(t, err, ports.ErrInvalidCredentials)

	sess, err := p.SignInWithPassword(ctx, "admin@example.com", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)
	assert.NotEmpty(t, sess.Token)

	got, err := p.GetSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	var events []domainauth.ProviderEvent
	unsubscribe, err := p.OnAuthStateChange(ctx, func(ev domainauth.ProviderEvent) { events = append(events, ev) })
	require.NoError(t, err)

	require.NoError(t, p.SignOut(ctx, sess.Token))
	_, err = p.GetSession(ctx, sess.Token)
	require.ErrorIs(t, err, ports.ErrSessionNotFound)
	require.Len(t, events, 1)
	assert.Equal(t, domainauth.EventSignedOut, events[0].Kind)

	unsubscribe()
	assert.Equal(t, 0, p.Subscribers())
}

func TestMemoryProvider_SignUp(t *testing.T) {
	p := NewMemoryProvider()
	p.TTL = time.Hour
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.Now = func() time.Time { return fixed }
	ctx := context.Background()

	sess, err := p.SignUp(ctx, ports.SignUpInput{Email: "new@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(time.Hour), sess.ExpiresAt)

	_, err = p.SignUp(ctx, ports.SignUpInput{Email: "NEW@example.com", Password: "pw"})
	require.ErrorIs(t, err, ports.ErrDuplicateEmail)
}

func TestMemoryProvider_SignUpWritesRecords(t *testing.T) {
	p := NewMemoryProvider()
	p.Records = NewMemoryUserRecords(domainauth.UserRecord{ID: "taken", Email: "taken@example.com"})
	p.Records.CreateErr = errors.New("not used by sign-up")
	ctx := context.Background()

	sess, err := p.SignUp(ctx, ports.SignUpInput{
		Email: "new@example.com", Password: "pw", Metadata: ports.SignUpMetadata{Name: "Nova"}, RoleString: "padrao",
	})
	require.NoError(t, err)
	rec, err := p.Records.GetUserRecord(ctx, sess.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Nova", rec.Name)
	assert.Equal(t, "padrao", rec.RoleString)

	_, err = p.SignUp(ctx, ports.SignUpInput{Email: "taken@example.com", Password: "pw"})
	require.ErrorIs(t, err, ports.ErrDuplicateEmail)
	_, err = p.SignInWithPassword(ctx, "taken@example.com", "pw")
	require.ErrorIs(t, err, ports.ErrInvalidCredentials)
}

func TestMemoryUserRecords(t *testing.T) {
	store := NewMemoryUserRecords(domainauth.UserRecord{ID: "u1", Email: "a@example.com"})
	ctx := context.Background()

	_, err := store.GetUserRecord(ctx, "missing")
	require.ErrorIs(t, err, ports.ErrRecordNotFound)

	err = store.CreateUserRecord(ctx, domainauth.UserRecord{ID: "u2", Email: "A@example.com"})
	require.ErrorIs(t, err, ports.ErrDuplicateEmail)

	require.NoError(t, store.CreateUserRecord(ctx, domainauth.UserRecord{ID: "u2", Email: "b@example.com"}))
	rec, err := store.GetUserRecord(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", rec.Email)
}

func TestStaticRoleMapper(t *testing.T) {
	m := DefaultRoleMapper()
	assert.Equal(t, domainauth.RoleAdmin, m.Map("admin"))
	assert.Equal(t, domainauth.RoleManagerial, m.Map("gerente"))
	assert.Equal(t, domainauth.RoleStandard, m.Map("gerencial"))
	assert.Equal(t, "padrao", m.RoleString(domainauth.RoleStandard))
}
