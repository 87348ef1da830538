package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/target/convenios-ui/internal/data/pgxutil"
	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	apperrors "github.com/target/convenios-ui/internal/errors"
	"github.com/target/convenios-ui/internal/ports"
)

var _ ports.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo stores local password credentials in auth_credentials.
type CredentialRepo struct {
	DB *sql.DB
}

// NewCredentialRepo creates a new CredentialRepo instance.
func NewCredentialRepo(db *sql.DB) *CredentialRepo {
	return &CredentialRepo{DB: db}
}

const credentialColumns = "id::text AS id, email, password_hash, metadata, created_at"

type credentialRow struct {
	ID           string               `db:"id"`
	Email        string               `db:"email"`
	PasswordHash string               `db:"password_hash"`
	Metadata     ports.SignUpMetadata `db:"metadata"`
	CreatedAt    time.Time            `db:"created_at"`
}

func (r credentialRow) credential() ports.Credential {
	return ports.Credential(r)
}

// GetCredentialByEmail returns the credential for email, or ports.ErrCredentialNotFound.
func (r *CredentialRepo) GetCredentialByEmail(ctx context.Context, email string) (ports.Credential, error) {
	var row credentialRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+credentialColumns+` FROM auth_credentials WHERE email = lower($1)`, email)
		if err != nil {
			return err
		}
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[credentialRow])
		return err
	})
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsNotFound(mapped) {
			return ports.Credential{}, ports.ErrCredentialNotFound
		}
		return ports.Credential{}, fmt.Errorf("get credential: %w", mapped)
	}
	return row.credential(), nil
}

// CreateAccount inserts the credential and the matching usuarios row in one transaction.
// Either both rows exist afterwards or neither does.
func (r *CredentialRepo) CreateAccount(ctx context.Context, a ports.Account) (ports.Credential, error) {
	if a.Email == "" || a.PasswordHash == "" {
		return ports.Credential{}, errors.New("email and password hash are required")
	}
	var cred ports.Credential
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var err error
			cred, err = insertCredential(ctx, tx, ports.Credential{
				Email:        a.Email,
				PasswordHash: a.PasswordHash,
				Metadata:     ports.SignUpMetadata{Name: a.Name},
			})
			if err != nil {
				return err
			}
			return insertUser(ctx, tx, domainauth.UserRecord{
				ID:         cred.ID,
				Name:       a.Name,
				Email:      cred.Email,
				RoleString: a.RoleString,
				Department: a.Department,
			})
		},
	})
	if err != nil {
		return ports.Credential{}, mapCredentialWriteErr(err)
	}
	return cred, nil
}

// querier is satisfied by *pgx.Conn and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func insertCredential(ctx context.Context, q querier, c ports.Credential) (ports.Credential, error) {
	rows, err := q.Query(ctx, `
		INSERT INTO auth_credentials (email, password_hash, metadata)
		VALUES (lower($1), $2, $3)
		RETURNING `+credentialColumns,
		c.Email, c.PasswordHash, c.Metadata)
	if err != nil {
		return ports.Credential{}, err
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[credentialRow])
	if err != nil {
		return ports.Credential{}, err
	}
	return row.credential(), nil
}

func mapCredentialWriteErr(err error) error {
	mapped := apperrors.MapDBError(err)
	if apperrors.IsConflictOn(mapped, "email") {
		return ports.ErrDuplicateEmail
	}
	return fmt.Errorf("create credential: %w", mapped)
}
