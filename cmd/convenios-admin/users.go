package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/target/convenios-ui/config"
	"github.com/target/convenios-ui/internal/adapters/authroles"
	"github.com/target/convenios-ui/internal/adapters/localauth"
	redisadapter "github.com/target/convenios-ui/internal/adapters/redis"
	"github.com/target/convenios-ui/internal/bootstrap"
	"github.com/target/convenios-ui/internal/data"
	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	"github.com/target/convenios-ui/internal/ports"
)

const userCommandTimeout = 30 * time.Second

type createUserOptions struct {
	Email      string
	Name       string
	Role       domainauth.Role
	Department string
	Password   string
}

type setRoleOptions struct {
	Email string
	Role  domainauth.Role
}

type revokeOptions struct {
	Email  string
	UserID string
}

func runCreateUser(cmdCtx *commandContext, args []string) error {
	opts, err := parseCreateUserFlags(args, cmdCtx.Stderr)
	if err != nil {
		return err
	}
	if cmdCtx.Config.Auth.Mode != config.AuthModeLocal {
		return fmt.Errorf("create-user requires AUTH_MODE=local (current: %s)", cmdCtx.Config.Auth.Mode)
	}
	if opts.Password == "" {
		if writeErr := writef(cmdCtx.Stderr, "Password for %s: ", opts.Email); writeErr != nil {
			return writeErr
		}
		opts.Password, err = readLine(cmdCtx.Stdin)
		if err != nil || opts.Password == "" {
			return errors.New("a password is required")
		}
	}

	hash, err := localauth.HashPassword(opts.Password, cmdCtx.Config.Auth.Local.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return withDatabase(cmdCtx, userCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		cred, createErr := data.NewCredentialRepo(db).CreateAccount(ctx, ports.Account{
			Email:        opts.Email,
			PasswordHash: hash,
			Name:         opts.Name,
			RoleString:   roleMapper(cmdCtx.Config).RoleString(opts.Role),
			Department:   opts.Department,
		})
		if errors.Is(createErr, ports.ErrDuplicateEmail) {
			return fmt.Errorf("%s is already registered", opts.Email)
		}
		if createErr != nil {
			return createErr
		}
		cmdCtx.Logger.InfoContext(ctx, "user created", "id", cred.ID, "email", cred.Email, "role", opts.Role)
		return writef(cmdCtx.Stdout, "%s\n", cred.ID)
	})
}

func runSetRole(cmdCtx *commandContext, args []string) error {
	opts, err := parseSetRoleFlags(args, cmdCtx.Stderr)
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, userCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewUserRecordRepo(db)
		rec, getErr := repo.GetUserRecordByEmail(ctx, opts.Email)
		if getErr != nil {
			return fmt.Errorf("find user %s: %w", opts.Email, getErr)
		}
		roleString := roleMapper(cmdCtx.Config).RoleString(opts.Role)
		if updateErr := repo.UpdateRole(ctx, rec.ID, roleString); updateErr != nil {
			return fmt.Errorf("update role: %w", updateErr)
		}
		cmdCtx.Logger.InfoContext(ctx, "role updated", "id", rec.ID, "from", rec.RoleString, "to", roleString)
		return nil
	})
}

func runRevokeSessions(cmdCtx *commandContext, args []string) error {
	opts, err := parseRevokeFlags(args, cmdCtx.Stderr)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, userCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		userID := opts.UserID
		if userID == "" {
			rec, getErr := data.NewUserRecordRepo(db).GetUserRecordByEmail(ctx, opts.Email)
			if getErr != nil {
				return fmt.Errorf("find user %s: %w", opts.Email, getErr)
			}
			userID = rec.ID
		}

		client, connErr := bootstrap.ConnectRedis(ctx, bootstrap.DatabaseConfig{
			RedisConfig: cmdCtx.Config.Redis,
			Logger:      cmdCtx.Logger,
		})
		if connErr != nil {
			return fmt.Errorf("connect redis: %w", connErr)
		}
		defer func() {
			if cerr := client.Close(); cerr != nil {
				cmdCtx.Logger.Warn("redis close failed", "error", cerr)
			}
		}()

		n, revokeErr := revokeUser(ctx, revokeDeps{
			Tokens: redisadapter.NewTokenStore(client, redisadapter.TokenStoreOptions{}),
			Events: redisadapter.NewEventBus(client, redisadapter.EventBusOptions{
				Channel: cmdCtx.Config.Redis.EventChannel,
				Logger:  cmdCtx.Logger,
			}),
		}, userID)
		if revokeErr != nil {
			return revokeErr
		}
		cmdCtx.Logger.InfoContext(ctx, "sessions revoked", "user_id", userID, "sessions", n)
		return writef(cmdCtx.Stdout, "revoked %d session(s)\n", n)
	})
}

type revokeDeps struct {
	Tokens ports.TokenStore
	Events ports.EventBus
}

// revokeUser drops every stored session of userID and broadcasts SIGNED_OUT so
// running servers end the matching live sessions.
func revokeUser(ctx context.Context, d revokeDeps, userID string) (int, error) {
	n, err := d.Tokens.DeleteUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	if err := d.Events.Publish(ctx, domainauth.ProviderEvent{
		Kind:    domainauth.EventSignedOut,
		Session: domainauth.ProviderSession{UserID: userID},
	}); err != nil {
		return n, fmt.Errorf("publish sign-out: %w", err)
	}
	return n, nil
}

func roleMapper(cfg config.AppConfig) authroles.StaticRoleMapper {
	return authroles.New(cfg.Auth.Roles.Admin, cfg.Auth.Roles.Managerial, cfg.Auth.Roles.Standard)
}

func parseRole(s string) (domainauth.Role, error) {
	r := domainauth.Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid --role %q (valid options: admin, managerial, standard)", s)
	}
	return r, nil
}

func parseCreateUserFlags(args []string, out io.Writer) (createUserOptions, error) {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(out)

	var (
		opts createUserOptions
		role string
	)
	fs.StringVar(&opts.Email, "email", "", "Login email (required)")
	fs.StringVar(&opts.Name, "name", "", "Display name (required)")
	fs.StringVar(&role, "role", string(domainauth.RoleAdmin), "Role: admin, managerial or standard")
	fs.StringVar(&opts.Department, "department", "", "Department shown on the profile")
	fs.StringVar(&opts.Password, "password", "", "Password; read from stdin when omitted")

	if err := fs.Parse(args); err != nil {
		return createUserOptions{}, err
	}
	opts.Email = strings.TrimSpace(opts.Email)
	opts.Name = strings.TrimSpace(opts.Name)
	if opts.Email == "" || opts.Name == "" {
		return createUserOptions{}, errors.New("--email and --name are required")
	}
	r, err := parseRole(role)
	if err != nil {
		return createUserOptions{}, err
	}
	opts.Role = r
	return opts, nil
}

func parseSetRoleFlags(args []string, out io.Writer) (setRoleOptions, error) {
	fs := flag.NewFlagSet("set-role", flag.ContinueOnError)
	fs.SetOutput(out)

	var (
		opts setRoleOptions
		role string
	)
	fs.StringVar(&opts.Email, "email", "", "User email (required)")
	fs.StringVar(&role, "role", "", "Role: admin, managerial or standard (required)")

	if err := fs.Parse(args); err != nil {
		return setRoleOptions{}, err
	}
	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return setRoleOptions{}, errors.New("--email is required")
	}
	r, err := parseRole(role)
	if err != nil {
		return setRoleOptions{}, err
	}
	opts.Role = r
	return opts, nil
}

func parseRevokeFlags(args []string, out io.Writer) (revokeOptions, error) {
	fs := flag.NewFlagSet("revoke-sessions", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts revokeOptions
	fs.StringVar(&opts.Email, "email", "", "User email")
	fs.StringVar(&opts.UserID, "user-id", "", "User id; takes precedence over --email")

	if err := fs.Parse(args); err != nil {
		return revokeOptions{}, err
	}
	opts.Email = strings.TrimSpace(opts.Email)
	opts.UserID = strings.TrimSpace(opts.UserID)
	if opts.Email == "" && opts.UserID == "" {
		return revokeOptions{}, errors.New("one of --email or --user-id is required")
	}
	return opts, nil
}
