package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/target/convenios-ui/internal/data/pgxutil"
	"github.com/target/convenios-ui/internal/domain/board"
	apperrors "github.com/target/convenios-ui/internal/errors"
	"github.com/target/convenios-ui/internal/ports"
)

var (
	_ ports.WorkItemSource   = (*WorkItemRepo)(nil)
	_ ports.AssignmentWriter = (*WorkItemRepo)(nil)
)

// WorkItemRepo reads the board from setores/contratos and persists department moves.
type WorkItemRepo struct {
	DB *sql.DB
}

// NewWorkItemRepo creates a new WorkItemRepo instance.
func NewWorkItemRepo(db *sql.DB) *WorkItemRepo {
	return &WorkItemRepo{DB: db}
}

type departmentRow struct {
	ID   string `db:"id"`
	Nome string `db:"nome_setor"`
}

type contractRow struct {
	ID          string    `db:"id"`
	Numero      string    `db:"numero_contrato"`
	Objeto      string    `db:"objeto"`
	Fornecedor  string    `db:"fornecedor"`
	ValorCents  int64     `db:"valor_cents"`
	DataTermino time.Time `db:"data_termino_execucao"`
	Status      string    `db:"status"`
	SetorID     string    `db:"setor_id"`
}

// Snapshot returns one column per department, ordered by posicao then name,
// each holding its contracts ordered by number.
func (r *WorkItemRepo) Snapshot(ctx context.Context) ([]board.Column, error) {
	var (
		depts     []departmentRow
		contracts []contractRow
	)
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT id::text AS id, nome_setor FROM setores ORDER BY posicao, nome_setor`)
		if err != nil {
			return err
		}
		depts, err = pgx.CollectRows(rows, pgx.RowToStructByName[departmentRow])
		if err != nil {
			return err
		}

		rows, err = conn.Query(ctx, `
			SELECT id::text AS id, numero_contrato, objeto, fornecedor,
			       (valor_original * 100)::bigint AS valor_cents,
			       data_termino_execucao, status, setor_id::text AS setor_id
			FROM contratos
			ORDER BY numero_contrato`)
		if err != nil {
			return err
		}
		contracts, err = pgx.CollectRows(rows, pgx.RowToStructByName[contractRow])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load board snapshot: %w", apperrors.MapDBError(err))
	}
	return buildColumns(depts, contracts), nil
}

func buildColumns(depts []departmentRow, contracts []contractRow) []board.Column {
	cols := make([]board.Column, len(depts))
	index := make(map[string]int, len(depts))
	for i, d := range depts {
		cols[i] = board.Column{ID: d.ID, Title: d.Nome, Items: []board.WorkItem{}}
		index[d.ID] = i
	}
	for _, c := range contracts {
		i, ok := index[c.SetorID]
		if !ok {
			continue
		}
		status, err := board.ParseStatus(c.Status)
		if err != nil {
			status = board.Status(c.Status)
		}
		cols[i].Items = append(cols[i].Items, board.WorkItem{
			ID:                c.ID,
			Number:            c.Numero,
			ObjectDescription: c.Objeto,
			CounterpartyName:  c.Fornecedor,
			ValueCents:        c.ValorCents,
			EndDate:           c.DataTermino,
			Status:            status,
			DepartmentLabel:   cols[i].Title,
		})
	}
	return cols
}

// AssignDepartment moves the contract itemID to the department columnID.
func (r *WorkItemRepo) AssignDepartment(ctx context.Context, itemID, columnID string) error {
	if itemID == "" || columnID == "" {
		return errors.New("item and column ids are required")
	}
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx,
			`UPDATE contratos SET setor_id = $2::uuid, updated_at = now() WHERE id = $1::uuid`,
			itemID, columnID)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("assign department: %w", apperrors.MapDBError(err))
	}
	if affected == 0 {
		return fmt.Errorf("assign department: %w: %s", board.ErrItemNotFound, itemID)
	}
	return nil
}

// Department is a board column as stored in setores.
type Department struct {
	Name        string
	Description string
	Position    int
}

// Contract is a contratos row as written by the seeder.
type Contract struct {
	Number     string
	Object     string
	Company    string
	ValueCents int64
	StartDate  time.Time
	EndDate    time.Time
	Status     board.Status
	Department string
}

// SeedBoard inserts departments and contracts in one transaction. Rows whose
// unique key already exists are left untouched, so seeding is repeatable.
func (r *WorkItemRepo) SeedBoard(ctx context.Context, depts []Department, contracts []Contract) error {
	return pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			for _, d := range depts {
				if _, err := tx.Exec(ctx, `
					INSERT INTO setores (nome_setor, descricao, posicao)
					VALUES ($1, $2, $3)
					ON CONFLICT (nome_setor) DO NOTHING`,
					d.Name, d.Description, d.Position); err != nil {
					return fmt.Errorf("insert department %s: %w", d.Name, apperrors.MapDBError(err))
				}
			}
			for _, c := range contracts {
				var start *time.Time
				if !c.StartDate.IsZero() {
					start = &c.StartDate
				}
				if _, err := tx.Exec(ctx, `
					INSERT INTO contratos (numero_contrato, objeto, fornecedor, valor_original,
					                       data_inicio_execucao, data_termino_execucao, status, setor_id)
					SELECT $1, $2, $3, $4::numeric / 100, $5, $6, $7, s.id
					FROM setores s WHERE s.nome_setor = $8
					ON CONFLICT (numero_contrato) DO NOTHING`,
					c.Number, c.Object, c.Company, c.ValueCents, start, c.EndDate, string(c.Status), c.Department); err != nil {
					return fmt.Errorf("insert contract %s: %w", c.Number, apperrors.MapDBError(err))
				}
			}
			return nil
		},
	})
}
