package data

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	"github.com/target/convenios-ui/internal/ports"
	"github.com/target/convenios-ui/internal/testutil"
)

func TestUserRecordRepo_CreateAndGet(t *testing.T) {
	db := testutil.SetupAutoDB(t)
	ctx := context.Background()
	repo := NewUserRecordRepo(db)

	rec := domainauth.UserRecord{
		ID:         uuid.NewString(),
		Name:       "Gerente",
		Email:      "Gerente@Example.com",
		RoleString: "gerente",
		Department: "Contratos",
	}
	require.NoError(t, repo.CreateUserRecord(ctx, rec))

	got, err := repo.GetUserRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "gerente@example.com", got.Email)
	assert.Equal(t, "gerente", got.RoleString)
	assert.Equal(t, "Contratos", got.Department)

	byEmail, err := repo.GetUserRecordByEmail(ctx, "GERENTE@example.com")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byEmail.ID)

	t.Run("duplicate email", func(t *testing.T) {
		dup := rec
		dup.ID = uuid.NewString()
		err := repo.CreateUserRecord(ctx, dup)
		require.ErrorIs(t, err, ports.ErrDuplicateEmail)
	})

	t.Run("missing department reads as empty", func(t *testing.T) {
		other := domainauth.UserRecord{ID: uuid.NewString(), Name: "U", Email: "u@example.com", RoleString: "padrao"}
		require.NoError(t, repo.CreateUserRecord(ctx, other))
		got, err := repo.GetUserRecord(ctx, other.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Department)
	})
}

func TestUserRecordRepo_NotFound(t *testing.T) {
	db := testutil.SetupAutoDB(t)
	ctx := context.Background()
	repo := NewUserRecordRepo(db)

	_, err := repo.GetUserRecord(ctx, "missing")
	require.ErrorIs(t, err, ports.ErrRecordNotFound)

	_, err = repo.GetUserRecordByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, ports.ErrRecordNotFound)

	require.ErrorIs(t, repo.UpdateRole(ctx, "missing", "admin"), ports.ErrRecordNotFound)

	_, err = repo.GetUserRecord(ctx, "")
	require.Error(t, err)
	require.Error(t, repo.CreateUserRecord(ctx, domainauth.UserRecord{}))
}

func TestUserRecordRepo_UpdateRole(t *testing.T) {
	db := testutil.SetupAutoDB(t)
	ctx := context.Background()
	repo := NewUserRecordRepo(db)

	id := uuid.NewString()
	require.NoError(t, repo.CreateUserRecord(ctx, domainauth.UserRecord{
		ID: id, Name: "Usuário", Email: "usuario@example.com", RoleString: "padrao",
	}))
	require.NoError(t, repo.UpdateRole(ctx, id, "admin"))

	got, err := repo.GetUserRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.RoleString)
}
