// Package devseed loads the sample departments, contracts and users used in development.
package devseed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/convenios-ui/internal/adapters/localauth"
	"github.com/target/convenios-ui/internal/data"
	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	"github.com/target/convenios-ui/internal/domain/board"
	"github.com/target/convenios-ui/internal/ports"
)

// BoardSeeder writes departments and contracts.
type BoardSeeder interface {
	SeedBoard(ctx context.Context, depts []data.Department, contracts []data.Contract) error
}

// AccountCreator creates a login together with its user record.
type AccountCreator interface {
	CreateAccount(ctx context.Context, a ports.Account) (ports.Credential, error)
}

// Deps bundles the dependencies needed for development seeding.
type Deps struct {
	Board      BoardSeeder
	Accounts   AccountCreator
	Roles      ports.RoleMapper
	BcryptCost int
	Logger     *slog.Logger
}

// SampleUser is a development login.
type SampleUser struct {
	Name       string
	Email      string
	Password   string
	Role       domainauth.Role
	Department string
}

type sampleColumn struct {
	id    string
	title string
	items []board.WorkItem
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleBoard() []sampleColumn {
	return []sampleColumn{
		{id: "obras-urbanas", title: "Obras Urbanas", items: []board.WorkItem{
			{
				ID: "contract-1", Number: "CT-2023-001",
				ObjectDescription: "Pavimentação da Av. Principal - Maceió",
				CounterpartyName:  "Construtora Alpha LTDA",
				ValueCents:        125_000_000, EndDate: day(2024, time.March, 15), Status: board.StatusInProgress,
			},
			{
				ID: "contract-5", Number: "CT-2023-005",
				ObjectDescription: "Saneamento Básico - Bairro Esperança",
				CounterpartyName:  "Saneamento Epsilon LTDA",
				ValueCents:        185_000_000, EndDate: day(2024, time.May, 12), Status: board.StatusInProgress,
			},
		}},
		{id: "infraestrutura", title: "Infraestrutura", items: []board.WorkItem{
			{
				ID: "contract-3", Number: "CT-2023-003",
				ObjectDescription: "Construção de Ponte sobre o Rio São Francisco",
				CounterpartyName:  "Engenharia Gama LTDA",
				ValueCents:        450_000_000, EndDate: day(2024, time.August, 10), Status: board.StatusInProgress,
			},
		}},
		{id: "educacao", title: "Educação", items: []board.WorkItem{
			{
				ID: "contract-2", Number: "CT-2023-002",
				ObjectDescription: "Reforma da Escola Municipal Beira Rio",
				CounterpartyName:  "Construções Beta S/A",
				ValueCents:        85_000_000, EndDate: day(2023, time.December, 20), Status: board.StatusCompleted,
			},
			{
				ID: "contract-7", Number: "CT-2023-007",
				ObjectDescription: "Construção de Creche Municipal",
				CounterpartyName:  "Construções Sigma LTDA",
				ValueCents:        78_000_000, EndDate: day(2023, time.September, 30), Status: board.StatusCompleted,
			},
		}},
		{id: "saude", title: "Saúde", items: []board.WorkItem{
			{
				ID: "contract-4", Number: "CT-2023-004",
				ObjectDescription: "Ampliação do Hospital Municipal",
				CounterpartyName:  "Construtora Delta S/A",
				ValueCents:        320_000_000, EndDate: day(2024, time.June, 5), Status: board.StatusInProgress,
			},
		}},
		{id: "turismo", title: "Turismo", items: []board.WorkItem{
			{
				ID: "contract-6", Number: "CT-2023-006",
				ObjectDescription: "Revitalização da Orla",
				CounterpartyName:  "Construtora Ômega LTDA",
				ValueCents:        95_000_000, EndDate: day(2023, time.December, 25), Status: board.StatusHalted,
			},
		}},
	}
}

// SampleUsers returns the development logins.
func SampleUsers() []SampleUser {
	return []SampleUser{
		{Name: "Administrador", Email: "admin@example.com", Password: "admin123", Role: domainauth.RoleAdmin},
		{
			Name: "Gerente", Email: "gerente@example.com", Password: "gerente123",
			Role: domainauth.RoleManagerial, Department: "Contratos",
		},
		{Name: "Usuário", Email: "usuario@example.com", Password: "usuario123", Role: domainauth.RoleStandard},
	}
}

var _ ports.WorkItemSource = StaticSource{}

// StaticSource serves the sample board from memory.
type StaticSource struct{}

// Snapshot returns a fresh copy of the sample board on every call.
func (StaticSource) Snapshot(context.Context) ([]board.Column, error) {
	sample := sampleBoard()
	cols := make([]board.Column, len(sample))
	for i, c := range sample {
		items := make([]board.WorkItem, len(c.items))
		for j, it := range c.items {
			it.DepartmentLabel = c.title
			items[j] = it
		}
		cols[i] = board.Column{ID: c.id, Title: c.title, Items: items}
	}
	return cols, nil
}

// Run seeds the sample board and users. Users whose email is already registered
// are skipped, so Run can be repeated.
func Run(ctx context.Context, d Deps) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if d.Board == nil || d.Accounts == nil || d.Roles == nil {
		return errors.New("devseed: board, accounts and roles are required")
	}

	depts, contracts := boardRows()
	if err := d.Board.SeedBoard(ctx, depts, contracts); err != nil {
		return fmt.Errorf("seed board: %w", err)
	}
	logger.InfoContext(ctx, "seeded board", "departments", len(depts), "contracts", len(contracts))

	failures := 0
	for _, u := range SampleUsers() {
		if err := seedUser(ctx, d, u); err != nil {
			if errors.Is(err, ports.ErrDuplicateEmail) {
				logger.InfoContext(ctx, "sample user already exists", "email", u.Email)
				continue
			}
			logger.ErrorContext(ctx, "failed to seed user", "email", u.Email, "error", err)
			failures++
			continue
		}
		logger.InfoContext(ctx, "seeded user", "email", u.Email, "role", u.Role)
	}
	if failures > 0 {
		return fmt.Errorf("devseed: %d user(s) failed", failures)
	}
	return nil
}

func seedUser(ctx context.Context, d Deps, u SampleUser) error {
	hash, err := localauth.HashPassword(u.Password, d.BcryptCost)
	if err != nil {
		return err
	}
	_, err = d.Accounts.CreateAccount(ctx, ports.Account{
		Email:        u.Email,
		PasswordHash: hash,
		Name:         u.Name,
		RoleString:   d.Roles.RoleString(u.Role),
		Department:   u.Department,
	})
	return err
}

func boardRows() ([]data.Department, []data.Contract) {
	sample := sampleBoard()
	depts := make([]data.Department, 0, len(sample))
	var contracts []data.Contract
	for i, c := range sample {
		depts = append(depts, data.Department{Name: c.title, Position: i})
		for _, it := range c.items {
			contracts = append(contracts, data.Contract{
				Number:     it.Number,
				Object:     it.ObjectDescription,
				Company:    it.CounterpartyName,
				ValueCents: it.ValueCents,
				EndDate:    it.EndDate,
				Status:     it.Status,
				Department: c.title,
			})
		}
	}
	return depts, contracts
}
