package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/convenios-ui/internal/data"
	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	"github.com/target/convenios-ui/internal/mocks"
	authmocks "github.com/target/convenios-ui/internal/mocks/auth"
	"github.com/target/convenios-ui/internal/ports"
)

type authFixture struct {
	svc      *AuthService
	provider *authmocks.MemoryProvider
	records  *authmocks.MemoryUserRecords
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	provider := authmocks.NewMemoryProvider()
	provider.AddUser("u-admin", "admin@example.com", "admin123")
	provider.AddUser("u-gerente", "gerente@example.com", "gerente123")
	provider.AddUser("u-padrao", "usuario@example.com", "usuario123")

	records := authmocks.NewMemoryUserRecords(
		domainauth.UserRecord{ID: "u-admin", Name: "Administrador", Email: "admin@example.com", RoleString: "admin"},
		domainauth.UserRecord{ID: "u-gerente", Name: "Gerente", Email: "gerente@example.com", RoleString: "gerente", Department: "Obras Urbanas"},
		domainauth.UserRecord{ID: "u-padrao", Name: "Usuário", Email: "usuario@example.com", RoleString: "padrao"},
	)

	svc := NewAuthService(AuthServiceOptions{
		Provider: provider,
		Records:  records,
		Roles:    authmocks.DefaultRoleMapper(),
	})
	return authFixture{svc: svc, provider: provider, records: records}
}

func (f authFixture) signIn(t *testing.T, email, password string) string {
	t.Helper()
	sess, err := f.provider.SignInWithPassword(context.Background(), email, password)
	require.NoError(t, err)
	return sess.Token
}

// recordStates collects every state delivered to watchers.
func recordStates(m *SessionMachine) *[]domainauth.SessionState {
	var states []domainauth.SessionState
	m.Watch(func(s domainauth.SessionState) { states = append(states, s) })
	return &states
}

func assertNeverResolvingAgain(t *testing.T, states []domainauth.SessionState) {
	t.Helper()
	for i, s := range states {
		assert.False(t, s.Resolving, "state %d re-entered resolving", i)
	}
}

func TestSessionMachine_StartsResolving(t *testing.T) {
	f := newAuthFixture(t)
	m := f.svc.NewMachine("")

	st := m.State()
	assert.True(t, st.Resolving)
	assert.False(t, st.Authenticated)
	assert.Nil(t, st.Identity)
	assert.False(t, m.IsAuthorized(domainauth.RoleStandard))
}

func TestCheckExistingSession(t *testing.T) {
	t.Run("no token resolves anonymous", func(t *testing.T) {
		f := newAuthFixture(t)
		st := f.svc.NewMachine("").CheckExistingSession(context.Background())
		assert.False(t, st.Resolving)
		assert.False(t, st.Authenticated)
	})

	t.Run("live session resolves identity", func(t *testing.T) {
		f := newAuthFixture(t)
		token := f.signIn(t, "gerente@example.com", "gerente123")

		m := f.svc.NewMachine(token)
		st := m.CheckExistingSession(context.Background())
		assert.False(t, st.Resolving)
		require.True(t, st.Authenticated)
		assert.Equal(t, domainauth.RoleManagerial, st.Identity.Role)
		assert.Equal(t, "Obras Urbanas", st.Identity.Department)
		assert.Equal(t, token, m.Token())
	})

	t.Run("unknown token resolves anonymous", func(t *testing.T) {
		f := newAuthFixture(t)
		st := f.svc.NewMachine("stale").CheckExistingSession(context.Background())
		assert.False(t, st.Resolving)
		assert.False(t, st.Authenticated)
	})

	t.Run("lookup failure fails open", func(t *testing.T) {
		f := newAuthFixture(t)
		token := f.signIn(t, "admin@example.com", "admin123")
		f.records.GetErr = errors.New("db down")

		st := f.svc.NewMachine(token).CheckExistingSession(context.Background())
		assert.False(t, st.Resolving)
		assert.False(t, st.Authenticated)
	})

	t.Run("provider failure fails open", func(t *testing.T) {
		f := newAuthFixture(t)
		f.provider.Err = errors.New("provider unreachable")

		st := f.svc.NewMachine("tok").CheckExistingSession(context.Background())
		assert.False(t, st.Resolving)
		assert.False(t, st.Authenticated)
	})

	t.Run("expired session resolves anonymous", func(t *testing.T) {
		f := newAuthFixture(t)
		now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		f.provider.TTL = time.Hour
		f.provider.Now = func() time.Time { return now }
		token := f.signIn(t, "admin@example.com", "admin123")

		f.svc.timeProvider = data.NewFixedTimeProvider(now.Add(2 * time.Hour))
		st := f.svc.NewMachine(token).CheckExistingSession(context.Background())
		assert.False(t, st.Authenticated)
	})
}

func TestLogin_AdminScenario(t *testing.T) {
	f := newAuthFixture(t)
	m := f.svc.NewMachine("")
	m.CheckExistingSession(context.Background())

	id, err := m.Login(context.Background(), "admin@example.com", "admin123")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, id.Role)
	assert.Equal(t, "Administrador", id.DisplayName)
	assert.True(t, m.IsAuthorized("anything"))
	assert.True(t, m.IsAuthorized(domainauth.RoleManagerial))
	assert.NotEmpty(t, m.Token())
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(f authFixture)
		email  string
		pass   string
		reason domainauth.FailureReason
	}{
		{
			name:   "bad password",
			email:  "admin@example.com",
			pass:   "nope",
			reason: domainauth.ReasonInvalidCredentials,
		},
		{
			name:   "unknown email",
			email:  "ghost@example.com",
			pass:   "x",
			reason: domainauth.ReasonInvalidCredentials,
		},
		{
			name:   "provider down",
			setup:  func(f authFixture) { f.provider.Err = errors.New("timeout") },
			email:  "admin@example.com",
			pass:   "admin123",
			reason: domainauth.ReasonProviderUnavailable,
		},
		{
			name:   "record lookup fails",
			setup:  func(f authFixture) { f.records.GetErr = errors.New("db down") },
			email:  "admin@example.com",
			pass:   "admin123",
			reason: domainauth.ReasonLookupFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			m := f.svc.NewMachine("")
			m.CheckExistingSession(context.Background())
			if tt.setup != nil {
				tt.setup(f)
			}
			before := m.State()

			_, err := m.Login(context.Background(), tt.email, tt.pass)
			require.Error(t, err)
			assert.Equal(t, tt.reason, domainauth.ReasonOf(err))
			assert.Equal(t, before, m.State(), "failed login must not mutate state")
			assert.Empty(t, m.Token())

			f.provider.Err = nil
			assert.Equal(t, 0, f.provider.Sessions(), "no provider session may be left open")
		})
	}
}

func TestLogin_FailureWhileResolvingKeepsGate(t *testing.T) {
	f := newAuthFixture(t)
	m := f.svc.NewMachine("")

	_, err := m.Login(context.Background(), "admin@example.com", "wrong")
	require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	assert.True(t, m.State().Resolving)

	m.CheckExistingSession(context.Background())
	assert.False(t, m.State().Resolving)
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)
	m := f.svc.NewMachine("")
	m.CheckExistingSession(context.Background())

	id, err := m.Register(context.Background(), RegisterInput{
		Name: "Maria", Email: "maria@example.com", Password: "segredo",
	})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleStandard, id.Role)
	assert.True(t, m.State().Authenticated)

	rec, err := f.records.GetUserRecord(context.Background(), id.ID)
	require.NoError(t, err)
	assert.Equal(t, "padrao", rec.RoleString)
	assert.Equal(t, "Maria", rec.Name)
	assert.False(t, m.IsAuthorized(domainauth.RoleManagerial))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	m := f.svc.NewMachine("")
	m.CheckExistingSession(context.Background())

	_, err := m.Register(context.Background(), RegisterInput{
		Name: "Outro", Email: "admin@example.com", Password: "x",
	})
	require.ErrorIs(t, err, domainauth.ErrDuplicateEmail)
	assert.False(t, m.State().Authenticated)
}

func TestRegister_DuplicateRecordDiscardsSession(t *testing.T) {
	f := newAuthFixture(t)
	// The provider has no credential for this email but the record store already has the address.
	require.NoError(t, f.records.CreateUserRecord(context.Background(),
		domainauth.UserRecord{ID: "legacy", Email: "legado@example.com"}))
	m := f.svc.NewMachine("")

	_, err := m.Register(context.Background(), RegisterInput{
		Name: "Legado", Email: "legado@example.com", Password: "x",
	})
	require.ErrorIs(t, err, domainauth.ErrDuplicateEmail)
	assert.Equal(t, 0, f.provider.Sessions())
	assert.False(t, m.State().Authenticated)
}

func TestRegister_NormalizesEmail(t *testing.T) {
	f := newAuthFixture(t)
	m := f.svc.NewMachine("")

	id, err := m.Register(context.Background(), RegisterInput{
		Name: "Novo", Email: " Novo@Example.COM ", Password: "segredo",
	})
	require.NoError(t, err)
	assert.Equal(t, "novo@example.com", id.Email)

	rec, err := f.records.GetUserRecord(context.Background(), id.ID)
	require.NoError(t, err)
	assert.Equal(t, "novo@example.com", rec.Email)
}

func TestRegister_RetryAfterRecordWriteFailure(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	in := RegisterInput{Name: "Maria", Email: "maria@example.com", Password: "segredo"}

	f.records.CreateErr = errors.New("connection reset")
	_, err := f.svc.NewMachine("").Register(ctx, in)
	var authErr *domainauth.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, domainauth.ReasonLookupFailed, authErr.Reason)
	assert.Equal(t, 0, f.provider.Sessions())

	f.records.CreateErr = nil
	m := f.svc.NewMachine("")
	id, err := m.Register(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleStandard, id.Role)
	assert.True(t, m.State().Authenticated)

	login := f.svc.NewMachine("")
	got, err := login.Login(ctx, "maria@example.com", "segredo")
	require.NoError(t, err)
	assert.Equal(t, id.ID, got.ID)

	t.Run("wrong password stays a duplicate", func(t *testing.T) {
		_, err := f.svc.NewMachine("").Register(ctx, RegisterInput{Name: "X", Email: "maria@example.com", Password: "outra"})
		require.ErrorIs(t, err, domainauth.ErrDuplicateEmail)
	})
}

func TestRegister_CompleteAccountIsDuplicateEvenWithPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.NewMachine("").Register(context.Background(), RegisterInput{
		Name: "Outro", Email: "admin@example.com", Password: "admin123",
	})
	require.ErrorIs(t, err, domainauth.ErrDuplicateEmail)
	assert.Equal(t, 0, f.provider.Sessions())
}

func TestRegister_ProviderOwnedRecord(t *testing.T) {
	f := newAuthFixture(t)
	f.provider.Records = f.records
	f.records.CreateErr = errors.New("record is written by the provider")
	m := f.svc.NewMachine("")

	id, err := m.Register(context.Background(), RegisterInput{
		Name: "Joana", Email: "Joana@Example.com", Password: "segredo",
	})
	require.NoError(t, err)
	assert.Equal(t, "Joana", id.DisplayName)
	assert.Equal(t, "joana@example.com", id.Email)
	assert.Equal(t, domainauth.RoleStandard, id.Role)

	t.Run("record lookup failure discards the session", func(t *testing.T) {
		f.records.GetErr = errors.New("timeout")
		defer func() { f.records.GetErr = nil }()
		before := f.provider.Sessions()

		_, err := f.svc.NewMachine("").Register(context.Background(), RegisterInput{
			Name: "Paulo", Email: "paulo@example.com", Password: "segredo",
		})
		var authErr *domainauth.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, domainauth.ReasonLookupFailed, authErr.Reason)
		assert.Equal(t, before, f.provider.Sessions())
	})
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t)
	token := f.signIn(t, "admin@example.com", "admin123")
	m := f.svc.NewMachine(token)
	m.CheckExistingSession(context.Background())
	states := recordStates(m)

	require.NoError(t, m.Logout(context.Background()))

	st := m.State()
	assert.False(t, st.Authenticated)
	assert.False(t, st.Resolving)
	assert.Nil(t, st.Identity)
	assert.Empty(t, m.Token())
	assert.Equal(t, 0, f.provider.Sessions())
	require.Len(t, *states, 1)
}

func TestLogout_ProviderErrorStillClearsState(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	provider := mocks.NewMockIdentityProvider(ctrl)
	svc := NewAuthService(AuthServiceOptions{
		Provider: provider,
		Records:  authmocks.NewMemoryUserRecords(domainauth.UserRecord{ID: "u1", RoleString: "admin"}),
		Roles:    authmocks.DefaultRoleMapper(),
	})
	provider.EXPECT().GetSession(gomock.Any(), "tok").Return(domainauth.ProviderSession{Token: "tok", UserID: "u1"}, nil)
	provider.EXPECT().SignOut(gomock.Any(), "tok").Return(errors.New("network"))

	m := svc.NewMachine("tok")
	require.True(t, m.CheckExistingSession(context.Background()).Authenticated)

	err := m.Logout(context.Background())
	require.Error(t, err)
	assert.False(t, m.State().Authenticated)
}

func TestLogin_LateResultAfterLogoutIsDiscarded(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	provider := mocks.NewMockIdentityProvider(ctrl)
	records := mocks.NewMockUserRecordStore(ctrl)
	svc := NewAuthService(AuthServiceOptions{
		Provider: provider,
		Records:  records,
		Roles:    authmocks.DefaultRoleMapper(),
	})
	m := svc.NewMachine("")
	ctx := context.Background()

	late := domainauth.ProviderSession{Token: "late", UserID: "u1"}
	provider.EXPECT().SignInWithPassword(gomock.Any(), "a@example.com", "pw").
		DoAndReturn(func(ctx context.Context, _, _ string) (domainauth.ProviderSession, error) {
			require.NoError(t, m.Logout(ctx))
			return late, nil
		})
	records.EXPECT().GetUserRecord(gomock.Any(), "u1").
		Return(domainauth.UserRecord{ID: "u1", RoleString: "admin"}, nil)
	provider.EXPECT().SignOut(gomock.Any(), "late").Return(nil)

	_, err := m.Login(ctx, "a@example.com", "pw")
	require.ErrorIs(t, err, domainauth.ErrSuperseded)

	st := m.State()
	assert.False(t, st.Authenticated, "logout must not be overwritten by a late login")
	assert.False(t, st.Resolving)
	assert.Empty(t, m.Token())
}

func TestCheckExistingSession_SignedOutMidFlight(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	provider := mocks.NewMockIdentityProvider(ctrl)
	svc := NewAuthService(AuthServiceOptions{
		Provider: provider,
		Records:  authmocks.NewMemoryUserRecords(domainauth.UserRecord{ID: "u1", RoleString: "padrao"}),
		Roles:    authmocks.DefaultRoleMapper(),
	})
	m := svc.NewMachine("tok")
	states := recordStates(m)
	sess := domainauth.ProviderSession{Token: "tok", UserID: "u1"}

	provider.EXPECT().GetSession(gomock.Any(), "tok").
		DoAndReturn(func(ctx context.Context, _ string) (domainauth.ProviderSession, error) {
			m.OnProviderEvent(ctx, domainauth.ProviderEvent{Kind: domainauth.EventSignedOut, Session: sess})
			return sess, nil
		})

	st := m.CheckExistingSession(context.Background())
	assert.False(t, st.Resolving)
	assert.False(t, st.Authenticated)
	require.Len(t, *states, 1)
	assertNeverResolvingAgain(t, *states)
}

func TestOnProviderEvent_SignedOut(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	token := f.signIn(t, "usuario@example.com", "usuario123")
	m := f.svc.NewMachine(token)
	m.CheckExistingSession(ctx)
	states := recordStates(m)

	m.OnProviderEvent(ctx, domainauth.ProviderEvent{
		Kind: domainauth.EventSignedOut, Session: domainauth.ProviderSession{Token: "someone-else"},
	})
	assert.True(t, m.State().Authenticated, "events for other sessions are ignored")

	out := domainauth.ProviderEvent{Kind: domainauth.EventSignedOut, Session: domainauth.ProviderSession{Token: token}}
	m.OnProviderEvent(ctx, out)
	m.OnProviderEvent(ctx, out)

	assert.False(t, m.State().Authenticated)
	assert.Len(t, *states, 1, "repeated SIGNED_OUT is a no-op")
}

func TestOnProviderEvent_SignedOutEverywhere(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	m1 := f.svc.Resolve(ctx, f.signIn(t, "gerente@example.com", "gerente123"))
	m2 := f.svc.Resolve(ctx, f.signIn(t, "gerente@example.com", "gerente123"))
	other := f.svc.Resolve(ctx, f.signIn(t, "admin@example.com", "admin123"))

	ev := domainauth.ProviderEvent{Kind: domainauth.EventSignedOut, Session: domainauth.ProviderSession{UserID: "u-gerente"}}
	for _, m := range []*SessionMachine{m1, m2, other} {
		m.OnProviderEvent(ctx, ev)
	}

	assert.False(t, m1.State().Authenticated)
	assert.False(t, m2.State().Authenticated)
	assert.True(t, other.State().Authenticated)
}

func TestOnProviderEvent_SignedInRefreshesIdentity(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	token := f.signIn(t, "usuario@example.com", "usuario123")
	m := f.svc.Resolve(ctx, token)
	require.False(t, m.IsAuthorized(domainauth.RoleManagerial))

	f.records = authmocks.NewMemoryUserRecords(
		domainauth.UserRecord{ID: "u-padrao", Name: "Usuário", RoleString: "gerente"},
	)
	f.svc.records = f.records

	m.OnProviderEvent(ctx, domainauth.ProviderEvent{
		Kind: domainauth.EventSignedIn, Session: domainauth.ProviderSession{Token: token, UserID: "u-padrao"},
	})
	assert.True(t, m.IsAuthorized(domainauth.RoleManagerial))

	m.OnProviderEvent(ctx, domainauth.ProviderEvent{
		Kind: domainauth.EventSignedIn, Session: domainauth.ProviderSession{Token: "other", UserID: "u-admin"},
	})
	assert.Equal(t, "u-padrao", m.State().Identity.ID)
}

func TestSessionMachine_InitAndDispose(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	token := f.signIn(t, "admin@example.com", "admin123")
	m := f.svc.NewMachine(token)

	require.NoError(t, m.Init(ctx))
	assert.Equal(t, 1, f.provider.Subscribers())
	assert.True(t, m.State().Authenticated)

	// Signing out through the provider reaches the machine as an event.
	require.NoError(t, f.provider.SignOut(ctx, token))
	assert.False(t, m.State().Authenticated)

	m.Dispose()
	m.Dispose()
	assert.Equal(t, 0, f.provider.Subscribers())
}

func TestSessionMachine_InitSubscribeFailureStillResolves(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	provider := mocks.NewMockIdentityProvider(ctrl)
	svc := NewAuthService(AuthServiceOptions{
		Provider: provider,
		Records:  authmocks.NewMemoryUserRecords(),
		Roles:    authmocks.DefaultRoleMapper(),
	})
	provider.EXPECT().OnAuthStateChange(gomock.Any(), gomock.Any()).Return(nil, errors.New("bus down"))
	provider.EXPECT().GetSession(gomock.Any(), "tok").Return(domainauth.ProviderSession{}, ports.ErrSessionNotFound)

	m := svc.NewMachine("tok")
	require.Error(t, m.Init(context.Background()))
	assert.False(t, m.State().Resolving)
	m.Dispose()
}

func TestSessionMachine_ResolvingIsMonotonic(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	m := f.svc.NewMachine("")
	states := recordStates(m)

	m.CheckExistingSession(ctx)
	_, _ = m.Login(ctx, "admin@example.com", "wrong")
	_, err := m.Login(ctx, "admin@example.com", "admin123")
	require.NoError(t, err)
	token := m.Token()
	m.OnProviderEvent(ctx, domainauth.ProviderEvent{Kind: domainauth.EventSignedIn, Session: domainauth.ProviderSession{Token: token, UserID: "u-admin"}})
	require.NoError(t, m.Logout(ctx))
	m.CheckExistingSession(ctx)
	m.OnProviderEvent(ctx, domainauth.ProviderEvent{Kind: domainauth.EventSignedOut, Session: domainauth.ProviderSession{Token: token}})

	require.NotEmpty(t, *states)
	assertNeverResolvingAgain(t, *states)
	assert.False(t, m.State().Resolving)
}

func TestIsAuthorized(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	tests := []struct {
		email, password string
		required        []domainauth.Role
		want            bool
	}{
		{"admin@example.com", "admin123", []domainauth.Role{domainauth.RoleManagerial}, true},
		{"gerente@example.com", "gerente123", []domainauth.Role{domainauth.RoleManagerial}, true},
		{"usuario@example.com", "usuario123", []domainauth.Role{domainauth.RoleManagerial}, false},
		{"usuario@example.com", "usuario123", []domainauth.Role{domainauth.RoleManagerial, domainauth.RoleStandard}, true},
	}
	for _, tt := range tests {
		m := f.svc.Resolve(ctx, f.signIn(t, tt.email, tt.password))
		assert.Equal(t, tt.want, m.IsAuthorized(tt.required...), "%s %v", tt.email, tt.required)
	}
}
