// Package database bootstraps the PostgreSQL connection and owns the schema.
// The pool is a plain *sql.DB over the pgx stdlib driver so stores can honor
// a context-carried transaction without caring which it talks to.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// WithTx stores a transaction in ctx so every store under one boundary reads
// and writes through it.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, tx)
}

// From returns the transaction carried in ctx when present, otherwise db.
func From(ctx context.Context, db *sql.DB) Querier {
	if t, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return t
	}
	return db
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// rejection (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Open connects and verifies the pool.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id         UUID PRIMARY KEY,
		value      TEXT NOT NULL,
		program_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (program_id, value)
	)`,
	`CREATE TABLE IF NOT EXISTS entities (
		id         UUID PRIMARY KEY,
		category   TEXT NOT NULL,
		value      TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (category, value)
	)`,
	`CREATE TABLE IF NOT EXISTS whois_associations (
		id         UUID PRIMARY KEY,
		category   TEXT NOT NULL,
		entity_id  UUID NOT NULL,
		program_id TEXT NOT NULL,
		org_id     UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE NULLS NOT DISTINCT (category, entity_id, program_id, org_id)
	)`,
	`CREATE TABLE IF NOT EXISTS rdap_associations (
		id         UUID PRIMARY KEY,
		category   TEXT NOT NULL,
		entity_id  UUID NOT NULL,
		program_id TEXT NOT NULL,
		org_id     UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE NULLS NOT DISTINCT (category, entity_id, program_id, org_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_whois_associations_org ON whois_associations (org_id, program_id, category)`,
	`CREATE INDEX IF NOT EXISTS idx_rdap_associations_org ON rdap_associations (org_id, program_id, category)`,
}

// Migrate applies the schema. Statements are idempotent so boot-time
// application is safe for every environment this service runs in.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
