package errors

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//nolint:gochecknoglobals // compiled once
var (
	// reKeyField extracts the column list from "Key (field)=(value) already exists.".
	reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)
	// reReferencedFrom detects parent deletion: "... is still referenced from table ...".
	reReferencedFrom = regexp.MustCompile(`is still referenced from table "?([^"]+)"?`)
	// reNotPresent detects missing parent: "... is not present in table ...".
	reNotPresent = regexp.MustCompile(`is not present in table "?([^"]+)"?`)
)

//nolint:gochecknoglobals // static read-only lookup
var tableNames = map[string]string{
	"setores":          "Department",
	"usuarios":         "User",
	"contratos":        "Contract",
	"auth_credentials": "Credential",
}

// MapDBError maps driver errors to AppError instances:
//   - pgx.ErrNoRows → not_found
//   - unique violation → conflict, with the column in Field when it can be found
//   - foreign key violation → foreign_key
//   - check and NOT NULL violations → validation
//   - context deadline or cancellation → timeout / canceled
//
// Unrecognized errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "Request timed out. Please try again.")
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, "Request was canceled.")
	case errors.Is(err, pgx.ErrNoRows):
		return Wrap(err, ErrCodeNotFound, "Resource not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}
	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return &AppError{
			Code:    ErrCodeConflict,
			Message: "This value already exists. Please choose a different one.",
			Field:   uniqueField(pgErr),
			Cause:   pgErr,
		}
	case pgerrcode.ForeignKeyViolation:
		return Wrap(pgErr, ErrCodeForeignKey, foreignKeyMessage(pgErr))
	case pgerrcode.CheckViolation:
		return &AppError{Code: ErrCodeValidation, Message: "This field has an invalid value.", Field: pgErr.ColumnName, Cause: pgErr}
	case pgerrcode.NotNullViolation:
		return &AppError{Code: ErrCodeValidation, Message: "This field is required.", Field: pgErr.ColumnName, Cause: pgErr}
	default:
		return Wrap(pgErr, ErrCodeInternal, "A database error occurred. Please try again.")
	}
}

// uniqueField prefers ColumnName, then the Detail key list, then the constraint name.
func uniqueField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return m[1]
	}
	return inferFieldFromConstraint(pgErr.ConstraintName)
}

func foreignKeyMessage(pgErr *pgconn.PgError) string {
	if m := reReferencedFrom.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return "Cannot delete because this item is in use by " + mapTableToDomain(m[1]) + "."
	}
	if m := reNotPresent.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return "Cannot complete operation because the referenced " + mapTableToDomain(m[1]) + " does not exist."
	}
	if pgErr.TableName != "" {
		return "Cannot complete operation because this item is in use by " + mapTableToDomain(pgErr.TableName) + "."
	}
	return inferForeignKeyMessage(pgErr.ConstraintName)
}

// inferFieldFromConstraint infers the column from "table_field_key" style names.
// Constraints on several columns or on expressions yield "".
// e.g. "usuarios_email_key" → "email", "setores_nome_setor_key" → "".
func inferFieldFromConstraint(constraintName string) string {
	parts := strings.Split(constraintName, "_")
	if len(parts) != 3 {
		return ""
	}
	if isFunctionName(parts[1]) {
		return ""
	}
	return parts[1]
}

// mapTableToDomain maps table names to user-facing names.
func mapTableToDomain(tableName string) string {
	tableName = strings.ToLower(strings.TrimSpace(tableName))
	if name, ok := tableNames[tableName]; ok {
		return name
	}
	words := strings.Split(strings.ReplaceAll(tableName, "_", " "), " ")
	for i, w := range words {
		if w != "" && w[0] >= 'a' && w[0] <= 'z' {
			words[i] = string(w[0]-32) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func inferForeignKeyMessage(constraintName string) string {
	constraintName = strings.ToLower(constraintName)
	switch {
	case strings.Contains(constraintName, "setor"):
		return "Cannot complete operation because the department is in use or does not exist."
	case strings.Contains(constraintName, "usuario"):
		return "Cannot complete operation because the user is still referenced."
	default:
		return "Cannot complete operation because this item is in use."
	}
}

func isFunctionName(s string) bool {
	return slices.Contains([]string{
		"lower", "upper", "trim", "ltrim", "rtrim",
		"md5", "sha1", "sha256", "encode", "decode",
	}, strings.ToLower(s))
}
