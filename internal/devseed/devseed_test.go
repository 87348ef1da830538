package devseed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/target/convenios-ui/internal/adapters/authroles"
	"github.com/target/convenios-ui/internal/data"
	"github.com/target/convenios-ui/internal/domain/board"
	"github.com/target/convenios-ui/internal/ports"
)

type fakeBoard struct {
	depts     []data.Department
	contracts []data.Contract
	err       error
}

func (f *fakeBoard) SeedBoard(_ context.Context, depts []data.Department, contracts []data.Contract) error {
	f.depts, f.contracts = depts, contracts
	return f.err
}

type fakeAccounts struct {
	created []ports.Account
	errFor  map[string]error
}

func (f *fakeAccounts) CreateAccount(_ context.Context, a ports.Account) (ports.Credential, error) {
	if err := f.errFor[a.Email]; err != nil {
		return ports.Credential{}, err
	}
	f.created = append(f.created, a)
	return ports.Credential{ID: "id-" + a.Email, Email: a.Email, PasswordHash: a.PasswordHash}, nil
}

func TestStaticSource_Snapshot(t *testing.T) {
	cols, err := StaticSource{}.Snapshot(context.Background())
	require.NoError(t, err)

	b, err := board.New(cols)
	require.NoError(t, err)
	assert.Equal(t, 7, b.Count())
	assert.Equal(t, []string{"Obras Urbanas", "Infraestrutura", "Educação", "Saúde", "Turismo"}, b.Departments())

	for _, c := range b.Columns {
		for _, it := range c.Items {
			assert.Equal(t, c.Title, it.DepartmentLabel, "item %s", it.ID)
		}
	}

	cols[0].Items[0].DepartmentLabel = "mutated"
	again, err := StaticSource{}.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Obras Urbanas", again[0].Items[0].DepartmentLabel)
}

func TestRun_SeedsBoardAndUsers(t *testing.T) {
	fb := &fakeBoard{}
	fa := &fakeAccounts{}
	err := Run(context.Background(), Deps{
		Board:      fb,
		Accounts:   fa,
		Roles:      authroles.New("admin", "gerente", "padrao"),
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)

	assert.Len(t, fb.depts, 5)
	assert.Len(t, fb.contracts, 7)
	assert.Equal(t, "Turismo", fb.depts[4].Name)
	assert.Equal(t, 4, fb.depts[4].Position)

	require.Len(t, fa.created, 3)
	roles := map[string]string{}
	for _, a := range fa.created {
		roles[a.Email] = a.RoleString
		require.NotEqual(t, "admin123", a.PasswordHash)
	}
	assert.Equal(t, map[string]string{
		"admin@example.com":   "admin",
		"gerente@example.com": "gerente",
		"usuario@example.com": "padrao",
	}, roles)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(fa.created[0].PasswordHash), []byte("admin123")))
}

func TestRun_SkipsExistingUsers(t *testing.T) {
	fa := &fakeAccounts{errFor: map[string]error{"admin@example.com": ports.ErrDuplicateEmail}}
	err := Run(context.Background(), Deps{
		Board: &fakeBoard{}, Accounts: fa, Roles: authroles.New("admin", "gerente", "padrao"), BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	assert.Len(t, fa.created, 2)
}

func TestRun_Failures(t *testing.T) {
	roles := authroles.New("admin", "gerente", "padrao")

	err := Run(context.Background(), Deps{
		Board: &fakeBoard{err: errors.New("db down")}, Accounts: &fakeAccounts{}, Roles: roles,
	})
	require.ErrorContains(t, err, "seed board")

	err = Run(context.Background(), Deps{
		Board:      &fakeBoard{},
		Accounts:   &fakeAccounts{errFor: map[string]error{"usuario@example.com": errors.New("boom")}},
		Roles:      roles,
		BcryptCost: bcrypt.MinCost,
	})
	require.ErrorContains(t, err, "1 user(s) failed")

	require.Error(t, Run(context.Background(), Deps{}))
}
