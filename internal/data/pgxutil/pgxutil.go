// Package pgxutil runs pgx-native queries over a database/sql pool opened with the pgx stdlib driver.
package pgxutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// TxConfig configures WithPgxTx. Zero values mean a read-write transaction
// at the server's default isolation level.
type TxConfig struct {
	ReadOnly  bool
	Isolation pgx.TxIsoLevel
	Fn        func(pgx.Tx) error
}

func (c TxConfig) options() pgx.TxOptions {
	opts := pgx.TxOptions{IsoLevel: c.Isolation, AccessMode: pgx.ReadWrite}
	if c.ReadOnly {
		opts.AccessMode = pgx.ReadOnly
	}
	return opts
}

// WithPgxConn acquires a pooled connection, unwraps the underlying *pgx.Conn and runs fn with it.
func WithPgxConn(ctx context.Context, db *sql.DB, fn func(*pgx.Conn) error) error {
	if db == nil {
		return errors.New("pgxutil: nil database")
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	// Close returns the connection to the pool; failures only matter to the pool.
	defer func() { _ = conn.Close() }()

	return conn.Raw(func(dc any) error {
		std, ok := dc.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T; open the pool with the pgx driver", dc)
		}
		return fn(std.Conn())
	})
}

// WithPgxTx runs cfg.Fn inside a transaction and commits when it returns nil.
// Any error from Fn rolls back; a failed rollback is joined to that error.
func WithPgxTx(ctx context.Context, db *sql.DB, cfg TxConfig) error {
	if cfg.Fn == nil {
		return errors.New("pgxutil: transaction func is required")
	}
	return WithPgxConn(ctx, db, func(conn *pgx.Conn) (err error) {
		tx, err := conn.BeginTx(ctx, cfg.options())
		if err != nil {
			return fmt.Errorf("begin pgx tx: %w", err)
		}
		defer func() {
			if err == nil {
				return
			}
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}()

		if err = cfg.Fn(tx); err != nil {
			return err
		}
		if err = tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit pgx tx: %w", err)
		}
		return nil
	})
}
