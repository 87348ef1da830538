package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{name: "message only", err: &AppError{Code: ErrCodeNotFound, Message: "contract not found"}, want: "contract not found"},
		{
			name: "with cause",
			err:  Wrap(errors.New("connection refused"), ErrCodeInternal, "load board"),
			want: "load board: connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", Wrap(cause, ErrCodeInternal, "inner"))
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause through AppError")
	}
	if GetCode(err) != ErrCodeInternal {
		t.Errorf("GetCode() = %v, want %v", GetCode(err), ErrCodeInternal)
	}
}

func TestWrap_NilError(t *testing.T) {
	if err := Wrap(nil, ErrCodeInternal, "x"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestPredicates(t *testing.T) {
	conflict := &AppError{Code: ErrCodeConflict, Field: "email"}
	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{name: "conflict", got: Is(conflict, ErrCodeConflict), want: true},
		{name: "conflict on email", got: IsConflictOn(conflict, "email"), want: true},
		{name: "conflict on other field", got: IsConflictOn(conflict, "nome_setor"), want: false},
		{name: "not found on conflict", got: IsNotFound(conflict), want: false},
		{name: "foreign key", got: Is(&AppError{Code: ErrCodeForeignKey}, ErrCodeForeignKey), want: true},
		{name: "plain error", got: IsConflictOn(errors.New("x"), ""), want: false},
		{name: "nil", got: IsNotFound(nil), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestFieldOf(t *testing.T) {
	if f := fieldOf(&AppError{Code: ErrCodeValidation, Field: "valor"}); f != "valor" {
		t.Errorf("fieldOf() = %q", f)
	}
	if f := fieldOf(errors.New("x")); f != "" {
		t.Errorf("fieldOf() on plain error = %q", f)
	}
}
