package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/convenios-ui/internal/data"
	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	"github.com/target/convenios-ui/internal/mocks"
	authmocks "github.com/target/convenios-ui/internal/mocks/auth"
	"github.com/target/convenios-ui/internal/ports"
)

func TestNewAuthService_Defaults(t *testing.T) {
	svc := NewAuthService(AuthServiceOptions{
		Provider: authmocks.NewMemoryProvider(),
		Records:  authmocks.NewMemoryUserRecords(),
		Roles:    authmocks.DefaultRoleMapper(),
	})
	require.NotNil(t, svc)
	assert.IsType(t, &data.RealTimeProvider{}, svc.timeProvider)
	assert.NotNil(t, svc.logger)
}

func TestAuthService_NewMachineStartsResolving(t *testing.T) {
	f := newAuthFixture(t)
	m := f.svc.NewMachine("tok")
	assert.Equal(t, domainauth.SessionState{Resolving: true}, m.State())
	assert.Equal(t, "tok", m.Token())
}

func TestAuthService_Resolve(t *testing.T) {
	f := newAuthFixture(t)
	token := f.signIn(t, "gerente@example.com", "gerente123")

	m := f.svc.Resolve(context.Background(), token)
	st := m.State()
	require.True(t, st.Authenticated)
	assert.False(t, st.Resolving)
	require.NotNil(t, st.Identity)
	assert.Equal(t, domainauth.Identity{
		ID:          "u-gerente",
		DisplayName: "Gerente",
		Email:       "gerente@example.com",
		Role:        domainauth.RoleManagerial,
		Department:  "Obras Urbanas",
	}, *st.Identity)

	anon := f.svc.Resolve(context.Background(), "unknown-token")
	assert.Equal(t, domainauth.SessionState{}, anon.State())

	empty := f.svc.Resolve(context.Background(), "")
	assert.Equal(t, domainauth.SessionState{}, empty.State())
}

func TestAuthService_ResolveIdentity(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	records := mocks.NewMockUserRecordStore(ctrl)
	svc := NewAuthService(AuthServiceOptions{
		Provider: authmocks.NewMemoryProvider(),
		Records:  records,
		Roles:    authmocks.DefaultRoleMapper(),
	})

	_, err := svc.resolveIdentity(context.Background(), "")
	require.Error(t, err)

	records.EXPECT().GetUserRecord(gomock.Any(), "u-1").
		Return(domainauth.UserRecord{}, ports.ErrRecordNotFound)
	_, err = svc.resolveIdentity(context.Background(), "u-1")
	require.ErrorIs(t, err, ports.ErrRecordNotFound)

	records.EXPECT().GetUserRecord(gomock.Any(), "u-2").
		Return(domainauth.UserRecord{ID: "u-2", Name: "Ana", RoleString: "gerencial"}, nil)
	id, err := svc.resolveIdentity(context.Background(), "u-2")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleStandard, id.Role, "unknown role strings fall back to standard")
}
