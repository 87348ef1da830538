package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/target/convenios-ui/internal/data/pgxutil"
	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	apperrors "github.com/target/convenios-ui/internal/errors"
	"github.com/target/convenios-ui/internal/ports"
)

var _ ports.UserRecordStore = (*UserRecordRepo)(nil)

// UserRecordRepo stores application profiles in the usuarios table.
type UserRecordRepo struct {
	DB *sql.DB
}

// NewUserRecordRepo creates a new UserRecordRepo instance.
func NewUserRecordRepo(db *sql.DB) *UserRecordRepo {
	return &UserRecordRepo{DB: db}
}

const userColumns = "id, nome, email, tipo_usuario, COALESCE(setor, '') AS setor"

type userRow struct {
	ID          string `db:"id"`
	Nome        string `db:"nome"`
	Email       string `db:"email"`
	TipoUsuario string `db:"tipo_usuario"`
	Setor       string `db:"setor"`
}

func (r userRow) record() domainauth.UserRecord {
	return domainauth.UserRecord{
		ID:         r.ID,
		Name:       r.Nome,
		Email:      r.Email,
		RoleString: r.TipoUsuario,
		Department: r.Setor,
	}
}

// GetUserRecord returns the record for id, or ports.ErrRecordNotFound.
func (r *UserRecordRepo) GetUserRecord(ctx context.Context, id string) (domainauth.UserRecord, error) {
	if id == "" {
		return domainauth.UserRecord{}, errors.New("id is required")
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM usuarios WHERE id = $1`, id)
}

// GetUserRecordByEmail returns the record registered under email, or ports.ErrRecordNotFound.
func (r *UserRecordRepo) GetUserRecordByEmail(ctx context.Context, email string) (domainauth.UserRecord, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM usuarios WHERE email = lower($1)`, email)
}

func (r *UserRecordRepo) getOne(ctx context.Context, query string, arg string) (domainauth.UserRecord, error) {
	var row userRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, arg)
		if err != nil {
			return err
		}
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[userRow])
		return err
	})
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsNotFound(mapped) {
			return domainauth.UserRecord{}, ports.ErrRecordNotFound
		}
		return domainauth.UserRecord{}, fmt.Errorf("get user record: %w", mapped)
	}
	return row.record(), nil
}

// CreateUserRecord inserts rec. A taken email yields ports.ErrDuplicateEmail.
func (r *UserRecordRepo) CreateUserRecord(ctx context.Context, rec domainauth.UserRecord) error {
	if rec.ID == "" {
		return errors.New("id is required")
	}
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return insertUser(ctx, conn, rec)
	})
	return mapUserWriteErr(err)
}

// UpdateRole changes the stored role string of the user id.
func (r *UserRecordRepo) UpdateRole(ctx context.Context, id, roleString string) error {
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx,
			`UPDATE usuarios SET tipo_usuario = $2, updated_at = now() WHERE id = $1`, id, roleString)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update role: %w", apperrors.MapDBError(err))
	}
	if affected == 0 {
		return ports.ErrRecordNotFound
	}
	return nil
}

// execer is satisfied by *pgx.Conn and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertUser(ctx context.Context, conn execer, rec domainauth.UserRecord) error {
	var setor *string
	if rec.Department != "" {
		setor = &rec.Department
	}
	_, err := conn.Exec(ctx, `
		INSERT INTO usuarios (id, nome, email, tipo_usuario, setor)
		VALUES ($1, $2, lower($3), $4, $5)`,
		rec.ID, rec.Name, rec.Email, rec.RoleString, setor)
	return err
}

func mapUserWriteErr(err error) error {
	if err == nil {
		return nil
	}
	mapped := apperrors.MapDBError(err)
	if apperrors.IsConflictOn(mapped, "email") {
		return ports.ErrDuplicateEmail
	}
	return fmt.Errorf("create user record: %w", mapped)
}
